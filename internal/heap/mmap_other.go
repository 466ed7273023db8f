//go:build !unix || tinygo

package heap

// WithMmap is unavailable on this platform and leaves the Go backend in place.
func WithMmap() Option {
	return func(*Heap) {}
}

// MmapSupported reports whether WithMmap is available on this platform.
const MmapSupported = false
