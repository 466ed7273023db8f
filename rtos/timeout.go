package rtos

import "osal/kernel"

// Ticks is a wait duration in kernel ticks.
type Ticks uint32

const (
	// Immediate does not wait.
	Immediate Ticks = 0
	// Infinite waits forever.
	Infinite Ticks = 0xFFFFFFFF
)

// timeout translates a tick duration into a kernel Timeout.
func timeout(t Ticks) kernel.Timeout {
	switch t {
	case Infinite:
		return kernel.Forever
	case Immediate:
		return kernel.NoWait
	default:
		return kernel.TicksTimeout(uint64(t))
	}
}

// timeoutMs translates a millisecond duration. Infinite keeps its meaning.
func (o *OS) timeoutMs(ms uint32) kernel.Timeout {
	if ms == uint32(Infinite) {
		return kernel.Forever
	}
	return o.k.Msec(ms)
}

// MsToTicks converts milliseconds to ticks at the kernel tick rate, rounding up.
func (o *OS) MsToTicks(ms uint32) Ticks {
	if ms == uint32(Infinite) {
		return Infinite
	}
	n := o.k.Msec(ms).Ticks()
	if n >= uint64(Infinite) {
		return Infinite - 1
	}
	return Ticks(n)
}
