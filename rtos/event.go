package rtos

import (
	"unsafe"

	"osal/kernel"
)

// Event is a 32-bit event group.
type Event struct {
	os  *OS
	ke  kernel.Event
	own ownership
}

// EventCreate returns a heap-owned event group with every bit clear.
func (o *OS) EventCreate() (*Event, error) {
	e := &Event{os: o, own: ownedHeap}
	if !o.charge(unsafe.Sizeof(*e)) {
		return nil, ErrOutOfMemory
	}
	e.ke.Init(o.k)
	return e, nil
}

// EventDelete frees an event group from EventCreate and sets *h to nil.
func (o *OS) EventDelete(h **Event) error {
	if h == nil || *h == nil {
		return nil
	}
	e := *h
	if e.own != ownedHeap {
		return ErrBadParameter
	}
	e.own = unowned
	o.credit(unsafe.Sizeof(*e))
	*h = nil
	return nil
}

// Init sets up e in place with every bit clear.
func (e *Event) Init(o *OS) error {
	if e == nil || o == nil || e.own == ownedHeap {
		return ErrBadParameter
	}
	e.os = o
	e.own = ownedCaller
	e.ke.Init(o.k)
	return nil
}

// Deinit retires an embedded event group.
func (e *Event) Deinit() {
	if e != nil && e.own == ownedCaller {
		e.own = unowned
	}
}

func (e *Event) ready() bool { return e != nil && e.own != unowned }

// Wait blocks until any bit of mask is set, or every bit if all is set, and
// returns the matching bits. The bits in clearOnExit are cleared in the same
// step.
func (e *Event) Wait(mask, clearOnExit uint32, all bool) (uint32, error) {
	return e.WaitTimeout(mask, clearOnExit, all, Infinite)
}

// WaitTimeout is Wait bounded by ticks. It returns ErrTimedOut if the
// condition was not met in time.
func (e *Event) WaitTimeout(mask, clearOnExit uint32, all bool, ticks Ticks) (uint32, error) {
	if !e.ready() || mask == 0 {
		return 0, ErrBadParameter
	}
	got, err := e.ke.Wait(mask, all, clearOnExit, timeout(ticks))
	if err != nil {
		if ticks == Infinite {
			return 0, fail(err)
		}
		return 0, waitErr(err)
	}
	return got, nil
}

// Signal sets the bits in mask and wakes every waiter they satisfy.
func (e *Event) Signal(mask uint32) {
	if e.ready() {
		e.ke.Post(mask)
	}
}

// SignalISR is Signal from interrupt context.
func (e *Event) SignalISR(mask uint32) { e.Signal(mask) }

// Clear removes the bits in mask.
func (e *Event) Clear(mask uint32) {
	if e.ready() {
		e.ke.Clear(mask)
	}
}

// Events returns the bits currently set.
func (e *Event) Events() uint32 {
	if !e.ready() {
		return 0
	}
	return e.ke.Events()
}
