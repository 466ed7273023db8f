package kernel

import (
	"sync"

	"github.com/petermattis/goid"
)

// Mutex is a recursive mutex owned by the locking goroutine.
type Mutex struct {
	k     *Kernel
	mu    sync.Mutex
	owner int64
	depth uint32
	q     waitQueue
}

// Init initializes an unlocked mutex.
func (m *Mutex) Init(k *Kernel) {
	m.mu.Lock()
	m.k = k
	m.owner = 0
	m.depth = 0
	m.q.flush(ErrReset)
	m.mu.Unlock()
}

// Lock acquires the mutex, waiting up to to. A thread that already owns the
// mutex locks it again without blocking.
func (m *Mutex) Lock(to Timeout) error {
	if m.k == nil {
		return ErrInvalid
	}
	if err := m.k.checkBlocking(to); err != nil {
		return err
	}

	me := goid.Get()
	m.mu.Lock()
	switch m.owner {
	case 0:
		m.owner = me
		m.depth = 1
		m.mu.Unlock()
		return nil
	case me:
		m.depth++
		m.mu.Unlock()
		return nil
	}
	if to.IsNoWait() {
		m.mu.Unlock()
		return ErrBusy
	}
	w := m.k.newWaiter()
	m.q.push(w)
	m.mu.Unlock()

	return m.k.pend(w, to, m.cancel)
}

func (m *Mutex) cancel(w *waiter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.q.remove(w)
}

// Unlock releases one level of ownership. The last release hands the mutex
// to the most urgent waiter.
func (m *Mutex) Unlock() error {
	me := goid.Get()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth == 0 {
		return ErrInvalid
	}
	if m.owner != me {
		return ErrPerm
	}
	m.depth--
	if m.depth > 0 {
		return nil
	}
	if w := m.q.pop(); w != nil {
		m.owner = w.owner
		m.depth = 1
		w.ch <- nil
		return nil
	}
	m.owner = 0
	return nil
}

// Locked reports whether any goroutine owns the mutex.
func (m *Mutex) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth > 0
}
