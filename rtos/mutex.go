package rtos

import (
	"errors"
	"unsafe"

	"osal/kernel"
)

// Mutex is a recursive mutex owned by the locking thread.
type Mutex struct {
	os  *OS
	km  kernel.Mutex
	own ownership
}

// MutexCreate returns a heap-owned mutex.
func (o *OS) MutexCreate() (*Mutex, error) {
	m := &Mutex{os: o, own: ownedHeap}
	if !o.charge(unsafe.Sizeof(*m)) {
		return nil, ErrOutOfMemory
	}
	m.km.Init(o.k)
	return m, nil
}

// MutexDelete frees a mutex from MutexCreate and sets *h to nil. Deleting a
// nil handle is a no-op; deleting an embedded mutex fails.
func (o *OS) MutexDelete(h **Mutex) error {
	if h == nil || *h == nil {
		return nil
	}
	m := *h
	if m.own != ownedHeap {
		return ErrBadParameter
	}
	m.own = unowned
	o.credit(unsafe.Sizeof(*m))
	*h = nil
	return nil
}

// Init sets up m in place. m must not come from MutexCreate.
func (m *Mutex) Init(o *OS) error {
	if m == nil || o == nil || m.own == ownedHeap {
		return ErrBadParameter
	}
	m.os = o
	m.own = ownedCaller
	m.km.Init(o.k)
	return nil
}

// Deinit retires an embedded mutex.
func (m *Mutex) Deinit() {
	if m != nil && m.own == ownedCaller {
		m.own = unowned
	}
}

func (m *Mutex) ready() bool { return m != nil && m.own != unowned }

// Lock acquires m, waiting as long as needed.
func (m *Mutex) Lock() error {
	if !m.ready() {
		return ErrBadParameter
	}
	if err := m.km.Lock(kernel.Forever); err != nil {
		return fail(err)
	}
	return nil
}

// TryLock acquires m without waiting. It returns ErrBusy if another thread
// holds it.
func (m *Mutex) TryLock() error {
	if !m.ready() {
		return ErrBadParameter
	}
	err := m.km.Lock(kernel.NoWait)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, kernel.ErrBusy):
		return ErrBusy
	default:
		return fail(err)
	}
}

// Unlock releases one level of ownership.
func (m *Mutex) Unlock() error {
	if !m.ready() {
		return ErrBadParameter
	}
	if err := m.km.Unlock(); err != nil {
		return fail(err)
	}
	return nil
}

// Locked reports whether any thread holds m.
func (m *Mutex) Locked() bool { return m.ready() && m.km.Locked() }
