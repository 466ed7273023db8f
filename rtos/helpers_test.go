package rtos

import (
	"testing"
	"time"

	"osal/internal/heap"
	"osal/kernel"
)

const (
	waitFor = 2 * time.Second
	tick    = time.Millisecond
)

// newTestOS returns a started layer on a free-running 1 kHz kernel.
func newTestOS(t *testing.T, opts ...heap.Option) (*OS, *heap.Heap) {
	t.Helper()
	cfg := kernel.DefaultConfig()
	cfg.Ticker = true
	h := heap.New(opts...)
	o := New(kernel.New(cfg), h)
	o.SysStart()
	t.Cleanup(o.SysStop)
	return o, h
}

// newManualOS returns a layer whose kernel only ticks when the test calls Tick.
func newManualOS(t *testing.T) (*OS, *kernel.Kernel) {
	t.Helper()
	k := kernel.New(kernel.DefaultConfig())
	o := New(k, heap.New())
	o.SysStart()
	t.Cleanup(o.SysStop)
	return o, k
}
