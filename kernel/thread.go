package kernel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/petermattis/goid"
)

// ThreadID identifies a kernel thread. The main thread is 0.
type ThreadID uint32

// EntryFunc is a thread entry point.
type EntryFunc func(p1, p2, p3 any)

const (
	threadNew uint32 = iota
	threadRunning
	threadDead
)

// Thread is a kernel thread object. Its storage is owned by the caller of CreateThread.
type Thread struct {
	k  *Kernel
	id ThreadID

	mu     sync.Mutex
	name   string
	prio   int
	custom any

	gid   atomic.Int64
	state atomic.Uint32
	stack []byte

	abortCh   chan struct{}
	abortOnce sync.Once
	done      chan struct{}
}

func (t *Thread) init(k *Kernel, prio int) {
	t.k = k
	t.prio = prio
	t.abortCh = make(chan struct{})
	t.done = make(chan struct{})
}

// CreateThread starts entry on a new thread using t as the thread object and
// stack as its stack object. The thread runs immediately.
func (k *Kernel) CreateThread(t *Thread, stack []byte, entry EntryFunc, p1, p2, p3 any, prio int) error {
	if t == nil || entry == nil {
		return ErrInvalid
	}
	if k.stopped.Load() {
		return ErrInvalid
	}
	if prio < 0 || prio >= k.cfg.NumPriorities {
		return ErrInvalid
	}
	if len(stack) < MinStackSize {
		return ErrInvalid
	}
	if uintptr(unsafe.Pointer(&stack[0]))%StackAlign != 0 {
		return ErrInvalid
	}
	if n := k.nthreads.Add(1); int(n) > k.cfg.MaxThreads {
		k.nthreads.Add(-1)
		return ErrNoMem
	}

	t.init(k, prio)
	t.id = ThreadID(k.nextID.Add(1))
	t.stack = stack
	t.state.Store(threadRunning)

	started := make(chan struct{})
	go t.run(entry, p1, p2, p3, started)
	<-started
	return nil
}

func (t *Thread) run(entry EntryFunc, p1, p2, p3 any, started chan<- struct{}) {
	gid := goid.Get()
	t.gid.Store(gid)
	t.k.threads.Store(gid, t)
	close(started)

	defer func() {
		if r := recover(); r != nil {
			t.k.raiseFault(FaultInfo{Thread: t.id, Name: t.Name(), Value: r})
		}
		t.k.threads.Delete(gid)
		t.state.Store(threadDead)
		t.k.nthreads.Add(-1)
		close(t.done)
	}()

	select {
	case <-t.abortCh:
		return
	default:
	}
	entry(p1, p2, p3)
}

// ID returns the thread identifier.
func (t *Thread) ID() ThreadID { return t.id }

// Name returns the thread name.
func (t *Thread) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// SetName sets the thread name, truncating it to MaxNameLen bytes.
func (t *Thread) SetName(name string) {
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	t.mu.Lock()
	t.name = name
	t.mu.Unlock()
}

// Priority returns the thread priority.
func (t *Thread) Priority() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prio
}

// SetPriority changes the priority of a live thread.
func (t *Thread) SetPriority(prio int) error {
	if t.k == nil || t.state.Load() != threadRunning {
		return ErrNoThread
	}
	if prio < 0 || prio >= t.k.cfg.NumPriorities {
		return ErrInvalid
	}
	t.mu.Lock()
	t.prio = prio
	t.mu.Unlock()
	return nil
}

// CustomData returns the thread custom data word.
func (t *Thread) CustomData() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.custom
}

// SetCustomData sets the thread custom data word.
func (t *Thread) SetCustomData(v any) {
	t.mu.Lock()
	t.custom = v
	t.mu.Unlock()
}

// Stack returns the stack object the thread was created with.
func (t *Thread) Stack() []byte { return t.stack }

// Alive reports whether the thread has been started and has not exited.
func (t *Thread) Alive() bool { return t.state.Load() == threadRunning }

// Done is closed when the thread has exited.
func (t *Thread) Done() <-chan struct{} { return t.done }

// Abort terminates the thread and waits until it has exited. A thread
// aborting itself does not return.
//
// The target stops at its next kernel call; a thread that never enters
// the kernel runs to completion first.
func (t *Thread) Abort() {
	if t.k == nil || t == &t.k.main {
		return
	}
	t.signalAbort()
	if t.gid.Load() == goid.Get() {
		runtime.Goexit()
	}
	if t.state.Load() != threadNew {
		<-t.done
	}
}

func (t *Thread) signalAbort() {
	t.abortOnce.Do(func() { close(t.abortCh) })
}

// checkAbort terminates the calling goroutine if its thread has been aborted.
func (k *Kernel) checkAbort() {
	t := k.Current()
	select {
	case <-t.abortCh:
		runtime.Goexit()
	default:
	}
}

// Sleep suspends the calling thread for to. Forever sleeps until the thread is aborted.
// In interrupt context only NoWait yields; longer sleeps return at once.
func (k *Kernel) Sleep(to Timeout) {
	if k.checkBlocking(to) != nil {
		return
	}
	if to.IsNoWait() {
		k.checkAbort()
		runtime.Gosched()
		return
	}
	abort := k.Current().abortCh
	if to.IsForever() {
		<-abort
		runtime.Goexit()
	}

	deadline := k.deadline(to)
	for {
		tick := k.tickChan()
		if k.tick.Load() >= deadline {
			return
		}
		select {
		case <-tick:
		case <-abort:
			runtime.Goexit()
		}
	}
}

// Yield gives other goroutines a chance to run.
func (k *Kernel) Yield() {
	k.checkAbort()
	runtime.Gosched()
}

// ThreadCount returns the number of live kernel-created threads.
func (k *Kernel) ThreadCount() int { return int(k.nthreads.Load()) }
