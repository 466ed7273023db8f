// Package rtos is a small RTOS-agnostic operating system layer: threads,
// mutexes, counting and binary semaphores, event groups, one-shot timers,
// thread-local storage and a per-thread notification mailbox.
//
// Every primitive maps onto a native object of the underlying kernel, which
// does all blocking and wake-up. Threads can be created from the tagged heap
// or laid out inside a caller-supplied workspace that holds both the control
// block and the stack.
//
// Blocking calls take a Ticks timeout; Infinite waits forever and Immediate
// does not wait. Signal-class calls never block and are safe from interrupt
// context.
package rtos

import (
	"fmt"
	"sync"

	"osal/hal"
	"osal/internal/heap"
	"osal/kernel"
)

// OS is one instance of the abstraction layer bound to a kernel and a heap.
type OS struct {
	k    *kernel.Kernel
	heap heap.Allocator
	log  hal.Logger

	tlsLock   kernel.Spinlock
	tlsBitmap uint32

	mainOnce sync.Once
	main     *Thread
}

// Option configures an OS.
type Option func(*OS)

// WithLogger routes diagnostic lines to l.
func WithLogger(l hal.Logger) Option {
	return func(o *OS) {
		if l != nil {
			o.log = l
		}
	}
}

// New binds the layer to k, drawing workspaces and object quotas from h.
func New(k *kernel.Kernel, h heap.Allocator, opts ...Option) *OS {
	o := &OS{k: k, heap: h, log: hal.DiscardLogger{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Kernel returns the underlying kernel.
func (o *OS) Kernel() *kernel.Kernel { return o.k }

func (o *OS) logf(format string, args ...any) {
	o.log.WriteLineString("osal: " + fmt.Sprintf(format, args...))
}

// SysStart starts the kernel timebase.
func (o *OS) SysStart() { o.k.Start() }

// SysStarted reports whether SysStart has run.
func (o *OS) SysStarted() bool { return o.k.Started() }

// SysStop stops the timebase and aborts every thread.
func (o *OS) SysStop() { o.k.Stop() }

// SysLock enters a system critical section. Calls nest per thread.
func (o *OS) SysLock() { o.k.SchedLock() }

// SysUnlock leaves a system critical section.
func (o *OS) SysUnlock() { o.k.SchedUnlock() }

// SysIsISR reports whether the caller runs in interrupt context.
func (o *OS) SysIsISR() bool { return o.k.InISR() }

// SysTicks returns the tick counter.
func (o *OS) SysTicks() uint32 { return uint32(o.k.Ticks()) }

// SysTickFreq returns the number of ticks per second.
func (o *OS) SysTickFreq() uint32 { return o.k.TickHz() }

// SysTimestamp returns the free-running cycle counter.
func (o *OS) SysTimestamp() uint32 { return o.k.Cycles() }

// SysUSTimestamp returns a free-running microsecond counter.
func (o *OS) SysUSTimestamp() uint32 { return uint32(o.k.Uptime().Microseconds()) }

// SysHalt stops the calling thread through the kernel fault path. It does not return.
func (o *OS) SysHalt(msg string) {
	o.logf("halt: %s", msg)
	o.k.Halt(msg)
}

// Priority is a thread priority; larger values are more urgent.
type Priority int

// MaxPriority returns the most urgent priority.
func (o *OS) MaxPriority() Priority { return Priority(o.k.NumPriorities() - 1) }

func (o *OS) kernelPrio(p Priority) int {
	n := o.k.NumPriorities()
	switch {
	case p < 0:
		p = 0
	case int(p) >= n:
		p = Priority(n - 1)
	}
	return n - 1 - int(p)
}

func (o *OS) osalPrio(kp int) Priority {
	return Priority(o.k.NumPriorities() - 1 - kp)
}
