package kernel

import "sort"

// Timer is a one-shot kernel timer.
type Timer struct {
	k        *Kernel
	expiry   func(*Timer)
	userData any

	// guarded by k.mu
	deadline uint64
	seq      uint64
	armed    bool
}

// Init binds the timer to k. expiry runs in interrupt context when the timer fires.
func (t *Timer) Init(k *Kernel, expiry func(*Timer), userData any) {
	if t.k != nil {
		t.Stop()
	}
	t.k = k
	t.expiry = expiry
	t.userData = userData
}

// UserData returns the value passed to Init.
func (t *Timer) UserData() any { return t.userData }

// Start arms the timer to fire once after to. Restarting an armed timer
// replaces its deadline. Forever stops the timer; NoWait fires on the next tick.
func (t *Timer) Start(to Timeout) {
	if t.k == nil {
		return
	}
	if to.IsForever() {
		t.Stop()
		return
	}
	n := to.Ticks()
	if n == 0 {
		n = 1
	}

	k := t.k
	k.mu.Lock()
	t.deadline = k.tick.Load() + n
	t.seq++
	t.armed = true
	k.timers[t] = struct{}{}
	k.mu.Unlock()
}

// Stop disarms the timer. A stopped timer does not fire.
func (t *Timer) Stop() {
	if t.k == nil {
		return
	}
	k := t.k
	k.mu.Lock()
	t.seq++
	t.armed = false
	delete(k.timers, t)
	k.mu.Unlock()
}

// RemainingTicks returns the ticks left before the timer fires, or 0 if it is not armed.
func (t *Timer) RemainingTicks() uint64 {
	if t.k == nil {
		return 0
	}
	k := t.k
	k.mu.Lock()
	defer k.mu.Unlock()
	if !t.armed {
		return 0
	}
	now := k.tick.Load()
	if t.deadline <= now {
		return 0
	}
	return t.deadline - now
}

// expiry is a timer collected by Tick together with the arming it expired for.
type expiry struct {
	t        *Timer
	seq      uint64
	deadline uint64
}

// fire runs the expiry callback unless the timer was stopped or re-armed
// after Tick collected it.
func (t *Timer) fire(seq uint64) {
	k := t.k
	k.mu.Lock()
	stale := t.seq != seq || t.armed
	k.mu.Unlock()
	if stale || t.expiry == nil {
		return
	}
	k.RunISR(func() { t.expiry(t) })
}

func sortExpired(es []expiry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].deadline != es[j].deadline {
			return es[i].deadline < es[j].deadline
		}
		return es[i].seq < es[j].seq
	})
}
