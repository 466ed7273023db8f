package kernel

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

const (
	// StackAlign is the alignment required for the start of a thread stack.
	StackAlign = 16

	// StackReserved is the number of bytes the kernel reserves at the base of
	// every stack object (guard area).
	StackReserved = 64

	// MinStackSize is the smallest stack object CreateThread accepts.
	MinStackSize = 256

	// MaxNameLen is the longest thread name kept; longer names are truncated.
	MaxNameLen = 32

	// SemMaxLimit is the largest count a semaphore can hold.
	SemMaxLimit = 1<<32 - 1
)

var (
	ErrAgain    = errors.New("kernel: timed out")
	ErrBusy     = errors.New("kernel: resource busy")
	ErrInvalid  = errors.New("kernel: invalid argument")
	ErrPerm     = errors.New("kernel: not owner")
	ErrNoMem    = errors.New("kernel: no thread slots")
	ErrNoThread = errors.New("kernel: no such thread")
	ErrReset    = errors.New("kernel: object reset")
)

// StackLen returns the number of bytes a stack object for size usable bytes occupies.
func StackLen(size int) int {
	return alignUp(size+StackReserved, StackAlign)
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// Config holds the kernel build-time options.
type Config struct {
	// TickHz is the tick rate used by StartTicker and Msec conversions.
	TickHz uint32
	// MaxThreads bounds the number of live threads.
	MaxThreads int
	// NumPriorities is the number of priority levels; 0 is the most urgent.
	NumPriorities int
	// MainPriority is the priority of the main thread.
	MainPriority int
	// Ticker starts a free-running tick source on Start.
	Ticker bool
}

// DefaultConfig returns a 1 kHz kernel with 64 thread slots and 32 priorities.
func DefaultConfig() Config {
	return Config{
		TickHz:        1000,
		MaxThreads:    64,
		NumPriorities: 32,
		MainPriority:  16,
	}
}

// Kernel is a preemptive priority kernel model backed by goroutines.
//
// Blocking is done by parking goroutines; the kernel orders its own wait
// queues by priority and leaves CPU scheduling to the Go runtime.
type Kernel struct {
	cfg   Config
	epoch time.Time

	mu     sync.Mutex
	tick   atomic.Uint64
	tickCh chan struct{}
	timers map[*Timer]struct{}

	threads  sync.Map // goroutine id -> *Thread
	nthreads atomic.Int32
	nextID   atomic.Uint32
	main     Thread

	isrMu sync.Mutex
	isr   map[int64]int

	sched Mutex

	started    atomic.Bool
	stopped    atomic.Bool
	tickerStop chan struct{}

	faultMu sync.Mutex
	fault   func(FaultInfo)
	halted  atomic.Bool
}

// New creates a kernel instance.
func New(cfg Config) *Kernel {
	def := DefaultConfig()
	if cfg.TickHz == 0 {
		cfg.TickHz = def.TickHz
	}
	if cfg.MaxThreads <= 0 {
		cfg.MaxThreads = def.MaxThreads
	}
	if cfg.NumPriorities <= 0 {
		cfg.NumPriorities = def.NumPriorities
	}
	if cfg.MainPriority < 0 || cfg.MainPriority >= cfg.NumPriorities {
		cfg.MainPriority = cfg.NumPriorities / 2
	}

	k := &Kernel{
		cfg:    cfg,
		epoch:  time.Now(),
		tickCh: make(chan struct{}),
		timers: make(map[*Timer]struct{}),
		isr:    make(map[int64]int),
	}
	k.main.init(k, cfg.MainPriority)
	k.main.name = "main"
	k.main.state.Store(threadRunning)
	k.sched.Init(k)
	return k
}

// Config returns the configuration the kernel was built with.
func (k *Kernel) Config() Config { return k.cfg }

// NumPriorities returns the number of priority levels.
func (k *Kernel) NumPriorities() int { return k.cfg.NumPriorities }

// Start marks the kernel as running and starts the free-running ticker if configured.
func (k *Kernel) Start() {
	if !k.started.CompareAndSwap(false, true) {
		return
	}
	if k.cfg.Ticker {
		k.StartTicker()
	}
}

// Started reports whether Start has been called.
func (k *Kernel) Started() bool { return k.started.Load() }

// StartTicker starts a goroutine that advances the tick counter at TickHz.
func (k *Kernel) StartTicker() {
	k.mu.Lock()
	if k.tickerStop != nil {
		k.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	k.tickerStop = stop
	k.mu.Unlock()

	period := time.Second / time.Duration(k.cfg.TickHz)
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				k.Tick()
			}
		}
	}()
}

// Stop halts the tick source and aborts every kernel thread.
//
// Aborts are asynchronous: threads exit at their next kernel call.
func (k *Kernel) Stop() {
	if !k.stopped.CompareAndSwap(false, true) {
		return
	}
	k.mu.Lock()
	if k.tickerStop != nil {
		close(k.tickerStop)
		k.tickerStop = nil
	}
	k.mu.Unlock()

	self := goid.Get()
	k.threads.Range(func(key, value any) bool {
		if key.(int64) != self {
			value.(*Thread).signalAbort()
		}
		return true
	})
}

// Stopped reports whether Stop has been called.
func (k *Kernel) Stopped() bool { return k.stopped.Load() }

// Tick advances the tick counter by one, wakes timed waiters and fires expired timers.
func (k *Kernel) Tick() {
	k.mu.Lock()
	now := k.tick.Add(1)
	close(k.tickCh)
	k.tickCh = make(chan struct{})

	var expired []expiry
	for t := range k.timers {
		if t.deadline <= now {
			delete(k.timers, t)
			t.armed = false
			expired = append(expired, expiry{t: t, seq: t.seq, deadline: t.deadline})
		}
	}
	sortExpired(expired)
	k.mu.Unlock()

	for _, e := range expired {
		e.t.fire(e.seq)
	}
}

// TickTo advances the tick counter until it reaches seq.
func (k *Kernel) TickTo(seq uint64) {
	for k.tick.Load() < seq {
		k.Tick()
	}
}

// Ticks returns the current tick count.
func (k *Kernel) Ticks() uint64 { return k.tick.Load() }

// TickHz returns the configured tick rate.
func (k *Kernel) TickHz() uint32 { return k.cfg.TickHz }

// Cycles returns a free-running 32-bit cycle counter.
func (k *Kernel) Cycles() uint32 {
	return uint32(time.Since(k.epoch).Nanoseconds())
}

// CyclesPerSecond returns the rate of the Cycles counter.
func (k *Kernel) CyclesPerSecond() uint64 { return uint64(time.Second) }

// Uptime returns the wall time since the kernel was created.
func (k *Kernel) Uptime() time.Duration { return time.Since(k.epoch) }

func (k *Kernel) tickChan() <-chan struct{} {
	k.mu.Lock()
	ch := k.tickCh
	k.mu.Unlock()
	return ch
}

// Current returns the calling thread.
//
// Goroutines the kernel did not create share the main thread object.
func (k *Kernel) Current() *Thread {
	if t := k.lookup(goid.Get()); t != nil {
		return t
	}
	return &k.main
}

// Main returns the kernel main thread.
func (k *Kernel) Main() *Thread { return &k.main }

func (k *Kernel) lookup(gid int64) *Thread {
	v, ok := k.threads.Load(gid)
	if !ok {
		return nil
	}
	return v.(*Thread)
}

// RunISR runs fn in interrupt context on the calling goroutine.
func (k *Kernel) RunISR(fn func()) {
	gid := goid.Get()
	k.isrMu.Lock()
	k.isr[gid]++
	k.isrMu.Unlock()
	defer func() {
		k.isrMu.Lock()
		if k.isr[gid]--; k.isr[gid] <= 0 {
			delete(k.isr, gid)
		}
		k.isrMu.Unlock()
	}()
	fn()
}

// InISR reports whether the caller runs in interrupt context.
func (k *Kernel) InISR() bool {
	gid := goid.Get()
	k.isrMu.Lock()
	defer k.isrMu.Unlock()
	return k.isr[gid] > 0
}

// SchedLock locks the scheduler for the calling thread. Calls nest.
func (k *Kernel) SchedLock() {
	_ = k.sched.Lock(Forever)
}

// SchedUnlock releases one level of SchedLock.
func (k *Kernel) SchedUnlock() {
	_ = k.sched.Unlock()
}
