package kernel

import (
	"runtime"
	"sync/atomic"
)

// Spinlock is a test-and-set lock for short critical sections.
type Spinlock struct {
	held atomic.Bool
}

// Key is returned by Lock and must be passed to Unlock.
type Key struct{}

// Lock spins until the lock is acquired.
func (l *Spinlock) Lock() Key {
	for !l.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
	return Key{}
}

// Unlock releases the lock.
func (l *Spinlock) Unlock(Key) {
	l.held.Store(false)
}
