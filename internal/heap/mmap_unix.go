//go:build unix && !tinygo

package heap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type mmapBackend struct{}

func (mmapBackend) alloc(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return b, nil
}

func (mmapBackend) free(b []byte) error {
	if err := unix.Munmap(b[:cap(b)]); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// WithMmap backs every block with its own anonymous mapping. Blocks are page aligned.
func WithMmap() Option {
	return func(h *Heap) { h.be = mmapBackend{} }
}

// MmapSupported reports whether WithMmap is available on this platform.
const MmapSupported = true
