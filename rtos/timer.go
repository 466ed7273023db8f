package rtos

import (
	"unsafe"

	"osal/kernel"
)

// TimerFunc is called in interrupt context when a timer expires.
type TimerFunc func(arg any)

// Timer is a one-shot timer. Re-arm it from its callback for periodic use.
type Timer struct {
	os  *OS
	kt  kernel.Timer
	fn  TimerFunc
	arg any
	own ownership
}

func timerExpiry(kt *kernel.Timer) {
	t := kt.UserData().(*Timer)
	if t.ready() && t.fn != nil {
		t.fn(t.arg)
	}
}

func (t *Timer) init(o *OS, fn TimerFunc, arg any, own ownership) {
	t.kt.Stop()
	t.os = o
	t.fn = fn
	t.arg = arg
	t.own = own
	t.kt.Init(o.k, timerExpiry, t)
}

// TimerCreate returns a heap-owned timer that calls fn(arg) on expiry.
func (o *OS) TimerCreate(fn TimerFunc, arg any) (*Timer, error) {
	t := &Timer{}
	if !o.charge(unsafe.Sizeof(*t)) {
		return nil, ErrOutOfMemory
	}
	t.init(o, fn, arg, ownedHeap)
	return t, nil
}

// TimerDelete stops and frees a timer from TimerCreate and sets *h to nil.
func (o *OS) TimerDelete(h **Timer) error {
	if h == nil || *h == nil {
		return nil
	}
	t := *h
	if t.own != ownedHeap {
		return ErrBadParameter
	}
	t.kt.Stop()
	t.own = unowned
	o.credit(unsafe.Sizeof(*t))
	*h = nil
	return nil
}

// Init sets up t in place to call fn(arg) on expiry.
func (t *Timer) Init(o *OS, fn TimerFunc, arg any) error {
	if t == nil || o == nil || t.own == ownedHeap {
		return ErrBadParameter
	}
	t.init(o, fn, arg, ownedCaller)
	return nil
}

// Deinit stops an embedded timer.
func (t *Timer) Deinit() {
	if t != nil && t.own == ownedCaller {
		t.kt.Stop()
		t.own = unowned
	}
}

func (t *Timer) ready() bool { return t != nil && t.own != unowned }

// Set arms t to fire once after ticks. A zero duration fires on the next
// tick. Setting an armed timer replaces its deadline.
func (t *Timer) Set(ticks Ticks) {
	if !t.ready() {
		return
	}
	if ticks == 0 {
		ticks = 1
	}
	t.kt.Start(kernel.TicksTimeout(uint64(ticks)))
}

// SetISR is Set from interrupt context.
func (t *Timer) SetISR(ticks Ticks) { t.Set(ticks) }

// IsSet reports whether t is armed and has time left.
func (t *Timer) IsSet() bool {
	return t.ready() && t.kt.RemainingTicks() > 0
}

// Remaining returns the ticks left before t fires.
func (t *Timer) Remaining() Ticks {
	if !t.ready() {
		return 0
	}
	return Ticks(t.kt.RemainingTicks())
}

// Reset stops t.
func (t *Timer) Reset() {
	if t.ready() {
		t.kt.Stop()
	}
}
