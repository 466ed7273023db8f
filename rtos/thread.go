package rtos

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"osal/internal/heap"
	"osal/kernel"
)

// ThreadFunc is a thread body.
type ThreadFunc func(arg any)

// ThreadState is the lifecycle state of a thread.
type ThreadState uint8

const (
	ThreadCreated ThreadState = iota
	ThreadRunning
	ThreadTerminated
	ThreadReleased
)

func (s ThreadState) String() string {
	switch s {
	case ThreadCreated:
		return "created"
	case ThreadRunning:
		return "running"
	case ThreadTerminated:
		return "terminated"
	case ThreadReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Thread is the control block of one thread.
type Thread struct {
	os     *OS
	native kernel.Thread
	kt     *kernel.Thread

	ws        []byte
	stack     []byte
	layout    Layout
	heapOwned bool
	main      bool

	entry ThreadFunc
	arg   any

	// join is a latch: signaled once on termination, given back by every
	// successful join.
	join      kernel.Sem
	joinCount atomic.Uint32

	sem       Sem
	notify    kernel.Sem
	notifyVal atomic.Int32
	errno     int32

	tlsMu  sync.Mutex
	tls    [MaxTLSSlots]any
	tlsSet uint32

	started    atomic.Bool
	terminated atomic.Bool
	released   atomic.Bool
}

func (t *Thread) initCommon(o *OS) {
	t.os = o
	_ = t.join.Init(o.k, 0, 1)
	_ = t.notify.Init(o.k, 0, kernel.SemMaxLimit)
	_ = t.sem.init(o, 0, kernel.SemMaxLimit, ownedCaller)
	t.notifyVal.Store(0)
	t.errno = 0
	t.tlsSet = 0
	t.terminated.Store(false)
}

// ThreadCreate allocates a workspace for a stackSize-byte stack from the
// heap and starts entry(arg) on it.
func (o *OS) ThreadCreate(stackSize int, prio Priority, entry ThreadFunc, arg any, name string) (*Thread, error) {
	if stackSize <= 0 || stackSize > MaxStackSize || entry == nil {
		return nil, ErrBadParameter
	}

	ws := o.heap.Allocate(heap.TagOS, WorkspaceSize(stackSize))
	if ws == nil {
		o.logf("thread %q: no memory for %d byte stack", name, stackSize)
		return nil, ErrOutOfMemory
	}
	t, err := layoutWorkspace(ws, stackSize, true)
	if err != nil {
		_ = o.heap.Free(heap.TagOS, ws)
		return nil, err
	}
	t.heapOwned = true

	if err := o.start(t, prio, entry, arg, name); err != nil {
		_ = o.heap.Free(heap.TagOS, ws)
		return nil, err
	}
	return t, nil
}

// ThreadCreateStatic starts entry(arg) in a caller-supplied workspace. The
// stack size is taken from the workspace header (see NewWorkspace). The
// workspace must stay untouched until the thread is released.
func (o *OS) ThreadCreateStatic(ws []byte, prio Priority, entry ThreadFunc, arg any, name string) (*Thread, error) {
	if entry == nil {
		return nil, ErrBadParameter
	}
	t, err := layoutWorkspace(ws, 0, false)
	if err != nil {
		return nil, err
	}
	if err := o.start(t, prio, entry, arg, name); err != nil {
		return nil, err
	}
	return t, nil
}

func (o *OS) start(t *Thread, prio Priority, entry ThreadFunc, arg any, name string) error {
	t.initCommon(o)
	t.kt = &t.native
	t.entry = entry
	t.arg = arg
	t.native.SetName(name)

	if err := o.k.CreateThread(&t.native, t.stack, threadEntry, t, nil, nil, o.kernelPrio(prio)); err != nil {
		o.logf("thread %q: kernel create: %v", name, err)
		return fail(err)
	}
	t.started.Store(true)
	return nil
}

func threadEntry(p1, _, _ any) {
	t := p1.(*Thread)
	t.kt.SetCustomData(t)
	t.started.Store(true)
	defer t.exit()
	t.entry(t.arg)
}

// exit runs when the body returns or the thread is aborted.
func (t *Thread) exit() {
	if t.terminated.CompareAndSwap(false, true) {
		t.join.Give()
	}
}

// ThreadJoin waits until t has terminated.
func (o *OS) ThreadJoin(t *Thread) error {
	return o.ThreadJoinTimeout(t, Infinite)
}

// ThreadJoinTimeout waits up to ticks for t to terminate. It returns
// ErrTimedOut if t is still running.
func (o *OS) ThreadJoinTimeout(t *Thread, ticks Ticks) error {
	if t == nil || t.main || t.released.Load() {
		return ErrBadParameter
	}
	if err := t.join.Take(timeout(ticks)); err != nil {
		return waitErr(err)
	}
	t.joinCount.Add(1)
	t.join.Give()
	return nil
}

// ThreadRelease terminates the thread in *h if it is still running, waits
// for it, frees its workspace if it came from the heap and sets *h to nil.
// Releasing a nil handle is a no-op. A thread releasing itself does not return.
func (o *OS) ThreadRelease(h **Thread) {
	if h == nil || *h == nil {
		return
	}
	t := *h
	if t.main {
		o.logf("release of main thread ignored")
		return
	}
	if !t.released.CompareAndSwap(false, true) {
		*h = nil
		return
	}

	self := o.current() == t
	if t.terminated.CompareAndSwap(false, true) {
		if !self {
			t.kt.Abort()
		}
		t.join.Give()
	}
	if err := t.join.Take(kernel.Forever); err == nil {
		t.join.Give()
	}

	if !descriptorIntact(t.ws, t.layout) {
		o.k.Fault(fmt.Errorf("osal: thread %q: workspace control block corrupted", t.kt.Name()))
	}
	if t.heapOwned {
		if err := o.heap.Free(heap.TagOS, t.ws); err != nil {
			o.logf("thread %q: free workspace: %v", t.kt.Name(), err)
		}
	}
	*h = nil

	if self {
		t.kt.Abort()
	}
}

// ThreadName returns the name of t, or of the calling thread if t is nil.
func (o *OS) ThreadName(t *Thread) string {
	if t == nil {
		t = o.current()
	}
	return t.kt.Name()
}

// ThreadPrio returns the priority of t, or of the calling thread if t is nil.
func (o *OS) ThreadPrio(t *Thread) (Priority, error) {
	if t == nil {
		t = o.current()
	}
	if !t.main && !t.kt.Alive() {
		return 0, ErrNotFound
	}
	return o.osalPrio(t.kt.Priority()), nil
}

// ThreadSetPrio changes the priority of t, or of the calling thread if t is
// nil, and returns the previous priority.
func (o *OS) ThreadSetPrio(t *Thread, prio Priority) (Priority, error) {
	if t == nil {
		t = o.current()
	}
	old := o.osalPrio(t.kt.Priority())
	if err := t.kt.SetPriority(o.kernelPrio(prio)); err != nil {
		if errors.Is(err, kernel.ErrNoThread) {
			return old, ErrNotFound
		}
		return old, fail(err)
	}
	return old, nil
}

// ThreadCurrent returns the calling thread. Goroutines not started through
// the layer share the main thread control block.
func (o *OS) ThreadCurrent() *Thread { return o.current() }

func (o *OS) current() *Thread {
	if t, ok := o.k.Current().CustomData().(*Thread); ok && t.os == o {
		return t
	}
	return o.mainThread()
}

func (o *OS) mainThread() *Thread {
	o.mainOnce.Do(func() {
		t := &Thread{kt: o.k.Main(), main: true}
		t.initCommon(o)
		t.started.Store(true)
		o.main = t
	})
	return o.main
}

// ThreadSleep suspends the calling thread for ms milliseconds.
func (o *OS) ThreadSleep(ms uint32) { o.k.Sleep(o.timeoutMs(ms)) }

// ThreadSleepTicks suspends the calling thread for ticks.
func (o *OS) ThreadSleepTicks(ticks Ticks) { o.k.Sleep(timeout(ticks)) }

// ThreadSem returns the calling thread's own semaphore.
func (o *OS) ThreadSem() *Sem { return &o.current().sem }

// ThreadErrno returns the calling thread's error slot.
func (o *OS) ThreadErrno() *int32 { return &o.current().errno }

// State returns the lifecycle state of t.
func (t *Thread) State() ThreadState {
	switch {
	case t.released.Load():
		return ThreadReleased
	case t.terminated.Load():
		return ThreadTerminated
	case t.started.Load():
		return ThreadRunning
	default:
		return ThreadCreated
	}
}

// Joins returns the number of successful joins on t.
func (t *Thread) Joins() int { return int(t.joinCount.Load()) }

// Workspace returns the workspace t lives in, or nil for the main thread.
func (t *Thread) Workspace() []byte { return t.ws }

// Stack returns the stack region of the workspace.
func (t *Thread) Stack() []byte { return t.stack }

// Layout returns the placement of t inside its workspace.
func (t *Thread) Layout() Layout { return t.layout }

// HeapOwned reports whether the workspace came from the heap.
func (t *Thread) HeapOwned() bool { return t.heapOwned }
