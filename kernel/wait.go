package kernel

import (
	"runtime"
	"sort"

	"github.com/petermattis/goid"
)

// waiter is one pended thread. ch receives exactly one wake-up result.
type waiter struct {
	ch    chan error
	prio  int
	seq   uint64
	owner int64

	// event waits
	mask   uint32
	all    bool
	clear  uint32
	result uint32
}

// waitQueue orders waiters by priority, then arrival.
type waitQueue struct {
	seq uint64
	q   []*waiter
}

func (k *Kernel) newWaiter() *waiter {
	return &waiter{
		ch:    make(chan error, 1),
		prio:  k.Current().Priority(),
		owner: goid.Get(),
	}
}

func (wq *waitQueue) push(w *waiter) {
	wq.seq++
	w.seq = wq.seq
	i := sort.Search(len(wq.q), func(i int) bool {
		o := wq.q[i]
		if o.prio != w.prio {
			return o.prio > w.prio
		}
		return o.seq > w.seq
	})
	wq.q = append(wq.q, nil)
	copy(wq.q[i+1:], wq.q[i:])
	wq.q[i] = w
}

func (wq *waitQueue) pop() *waiter {
	if len(wq.q) == 0 {
		return nil
	}
	w := wq.q[0]
	wq.q[0] = nil
	wq.q = wq.q[1:]
	return w
}

func (wq *waitQueue) remove(w *waiter) bool {
	for i, o := range wq.q {
		if o == w {
			copy(wq.q[i:], wq.q[i+1:])
			wq.q[len(wq.q)-1] = nil
			wq.q = wq.q[:len(wq.q)-1]
			return true
		}
	}
	return false
}

func (wq *waitQueue) len() int { return len(wq.q) }

// flush wakes every waiter with err.
func (wq *waitQueue) flush(err error) {
	for w := wq.pop(); w != nil; w = wq.pop() {
		w.ch <- err
	}
}

// pend parks the caller until w is woken, the timeout expires, or the calling
// thread is aborted. cancel must remove w from its queue under the owning
// object's lock and report whether it was still queued.
//
// An aborted thread never returns from pend.
func (k *Kernel) pend(w *waiter, to Timeout, cancel func(*waiter) bool) error {
	abort := k.Current().abortCh
	var deadline uint64
	if !to.IsForever() {
		deadline = k.deadline(to)
	}

	for {
		var tick <-chan struct{}
		if !to.IsForever() {
			tick = k.tickChan()
			if k.tick.Load() >= deadline {
				if cancel(w) {
					return ErrAgain
				}
				return <-w.ch
			}
		}

		select {
		case err := <-w.ch:
			return err
		case <-tick:
		case <-abort:
			cancel(w)
			runtime.Goexit()
		}
	}
}

// checkBlocking rejects blocking calls from interrupt context.
func (k *Kernel) checkBlocking(to Timeout) error {
	if !to.IsNoWait() && k.InISR() {
		return ErrInvalid
	}
	return nil
}
