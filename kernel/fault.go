package kernel

import (
	"fmt"
	"runtime"
)

// FaultInfo describes a fatal error raised in a thread.
type FaultInfo struct {
	Thread ThreadID
	Name   string
	Value  any
	Stack  []byte
}

func (f FaultInfo) String() string {
	name := f.Name
	if name == "" {
		name = "?"
	}
	return fmt.Sprintf("fault in thread %d (%s): %v", f.Thread, name, f.Value)
}

// SetFaultHandler installs the handler invoked for thread faults and Halt.
// The handler must not panic.
func (k *Kernel) SetFaultHandler(fn func(FaultInfo)) {
	k.faultMu.Lock()
	k.fault = fn
	k.faultMu.Unlock()
}

// Fault reports an unrecoverable error attributed to the calling thread.
func (k *Kernel) Fault(v any) {
	t := k.Current()
	k.raiseFault(FaultInfo{Thread: t.id, Name: t.Name(), Value: v})
}

func (k *Kernel) raiseFault(info FaultInfo) {
	info.Stack = captureStack()
	k.faultMu.Lock()
	fn := k.fault
	k.faultMu.Unlock()
	if fn != nil {
		fn(info)
	}
}

// Halt raises a fault with msg and terminates the calling thread.
// After Halt the kernel reports Halted.
func (k *Kernel) Halt(msg string) {
	k.halted.Store(true)
	k.Fault(msg)
	runtime.Goexit()
}

// Halted reports whether Halt has been called.
func (k *Kernel) Halted() bool { return k.halted.Load() }
