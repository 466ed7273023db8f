// Package heap is the process-wide tagged allocator the OS layer draws its
// workspaces and object quotas from.
package heap

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// Tag identifies the subsystem an allocation is charged to.
type Tag uint8

const (
	TagOS Tag = iota
	TagAux
	TagUser
	tagCount
)

func (t Tag) String() string {
	switch t {
	case TagOS:
		return "os"
	case TagAux:
		return "aux"
	case TagUser:
		return "user"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

var (
	ErrBadTag       = errors.New("heap: bad tag")
	ErrNotAllocated = errors.New("heap: block not allocated")
)

// Allocator is the interface the OS layer consumes.
type Allocator interface {
	// Allocate returns size bytes charged to tag, or nil if the heap is exhausted.
	Allocate(tag Tag, size int) []byte
	// Free returns a block obtained from Allocate.
	Free(tag Tag, b []byte) error
	// Charge accounts size bytes of object storage to tag without handing out memory.
	Charge(tag Tag, size int) bool
	// Credit returns a Charge.
	Credit(tag Tag, size int)
}

// Stats are per-tag counters.
type Stats struct {
	Allocs uint64
	Frees  uint64
	InUse  int
	Peak   int
}

type backend interface {
	alloc(size int) ([]byte, error)
	free(b []byte) error
}

type block struct {
	tag  Tag
	size int
	buf  []byte
}

// Heap is a tagged allocator with an optional byte limit.
type Heap struct {
	mu      sync.Mutex
	be      backend
	limit   int
	inUse   int
	stats   [tagCount]Stats
	blocks  map[uintptr]block
	onFault func(error)
}

// Option configures a Heap.
type Option func(*Heap)

// WithLimit caps the total bytes in use across all tags. Zero means unlimited.
func WithLimit(n int) Option {
	return func(h *Heap) { h.limit = n }
}

// WithFaultHandler installs a handler for frees of unknown or mismatched blocks.
func WithFaultHandler(fn func(error)) Option {
	return func(h *Heap) { h.onFault = fn }
}

// New returns a heap backed by Go memory.
func New(opts ...Option) *Heap {
	h := &Heap{
		be:     goBackend{},
		blocks: make(map[uintptr]block),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Heap) reserve(tag Tag, size int) bool {
	if h.limit > 0 && h.inUse+size > h.limit {
		return false
	}
	h.inUse += size
	st := &h.stats[tag]
	st.Allocs++
	st.InUse += size
	if st.InUse > st.Peak {
		st.Peak = st.InUse
	}
	return true
}

func (h *Heap) release(tag Tag, size int) {
	h.inUse -= size
	st := &h.stats[tag]
	st.Frees++
	st.InUse -= size
}

// Allocate implements Allocator.
func (h *Heap) Allocate(tag Tag, size int) []byte {
	if tag >= tagCount || size <= 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.reserve(tag, size) {
		return nil
	}
	b, err := h.be.alloc(size)
	if err != nil || len(b) < size {
		h.inUse -= size
		h.stats[tag].Allocs--
		h.stats[tag].InUse -= size
		return nil
	}
	b = b[:size:size]
	h.blocks[addr(b)] = block{tag: tag, size: size, buf: b}
	return b
}

// Free implements Allocator. Freeing nil is a no-op.
func (h *Heap) Free(tag Tag, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	h.mu.Lock()
	blk, ok := h.blocks[addr(b)]
	if !ok {
		h.mu.Unlock()
		return h.fault(fmt.Errorf("free %p: %w", unsafe.Pointer(&b[0]), ErrNotAllocated))
	}
	if blk.tag != tag {
		h.mu.Unlock()
		return h.fault(fmt.Errorf("free %p as %s, allocated as %s: %w", unsafe.Pointer(&b[0]), tag, blk.tag, ErrBadTag))
	}
	delete(h.blocks, addr(b))
	h.release(tag, blk.size)
	h.mu.Unlock()
	return h.be.free(blk.buf)
}

// Charge implements Allocator.
func (h *Heap) Charge(tag Tag, size int) bool {
	if tag >= tagCount || size < 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reserve(tag, size)
}

// Credit implements Allocator.
func (h *Heap) Credit(tag Tag, size int) {
	if tag >= tagCount || size < 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.release(tag, size)
}

// Stats returns the counters for tag.
func (h *Heap) Stats(tag Tag) Stats {
	if tag >= tagCount {
		return Stats{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats[tag]
}

// InUse returns the total bytes in use.
func (h *Heap) InUse() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inUse
}

func (h *Heap) fault(err error) error {
	if h.onFault != nil {
		h.onFault(err)
	}
	return err
}

func addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

type goBackend struct{}

func (goBackend) alloc(size int) ([]byte, error) { return make([]byte, size), nil }
func (goBackend) free([]byte) error              { return nil }
