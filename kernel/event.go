package kernel

import "sync"

// Event is a 32-bit event object.
type Event struct {
	k      *Kernel
	mu     sync.Mutex
	events uint32
	q      waitQueue
}

// Init clears all events. Threads still pended on the object are woken with ErrReset.
func (e *Event) Init(k *Kernel) {
	e.mu.Lock()
	e.k = k
	e.events = 0
	e.q.flush(ErrReset)
	e.mu.Unlock()
}

func satisfied(events, mask uint32, all bool) bool {
	if all {
		return events&mask == mask
	}
	return events&mask != 0
}

// Wait waits for any (or, with all, every) bit of mask and returns the matched bits.
// Bits in clear are removed from the object in the same step that satisfies the wait.
func (e *Event) Wait(mask uint32, all bool, clear uint32, to Timeout) (uint32, error) {
	if e.k == nil || mask == 0 {
		return 0, ErrInvalid
	}
	if err := e.k.checkBlocking(to); err != nil {
		return 0, err
	}

	e.mu.Lock()
	if satisfied(e.events, mask, all) {
		got := e.events & mask
		e.events &^= clear
		e.mu.Unlock()
		return got, nil
	}
	if to.IsNoWait() {
		e.mu.Unlock()
		return 0, ErrBusy
	}
	w := e.k.newWaiter()
	w.mask = mask
	w.all = all
	w.clear = clear
	e.q.push(w)
	e.mu.Unlock()

	if err := e.k.pend(w, to, e.cancel); err != nil {
		return 0, err
	}
	return w.result, nil
}

func (e *Event) cancel(w *waiter) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.q.remove(w)
}

// Post ORs mask into the events and wakes every waiter it satisfies.
func (e *Event) Post(mask uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events |= mask
	e.wake()
}

// Set replaces the events with mask.
func (e *Event) Set(mask uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = mask
	e.wake()
}

// Clear removes the bits in mask.
func (e *Event) Clear(mask uint32) {
	e.mu.Lock()
	e.events &^= mask
	e.mu.Unlock()
}

// Events returns the current bits.
func (e *Event) Events() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events
}

func (e *Event) wake() {
	var keep []*waiter
	for w := e.q.pop(); w != nil; w = e.q.pop() {
		if !satisfied(e.events, w.mask, w.all) {
			keep = append(keep, w)
			continue
		}
		w.result = e.events & w.mask
		e.events &^= w.clear
		w.ch <- nil
	}
	for _, w := range keep {
		e.q.push(w)
	}
}
