package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"osal/hal"
	"osal/internal/buildinfo"
	"osal/internal/config"
	"osal/internal/heap"
	"osal/kernel"
	"osal/rtos"
)

// System is a booted kernel, heap and OS layer bound to a HAL.
type System struct {
	K    *kernel.Kernel
	Heap *heap.Heap
	OS   *rtos.OS

	h   hal.HAL
	cfg Config

	mu   sync.Mutex
	done bool
	err  error
}

// Config selects the runtime settings and whether the demo scenarios run.
type Config struct {
	config.Config
	Demo bool
}

// New initializes and starts the OS with default config.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{Config: config.Default(), Demo: true})
}

// Run starts the OS and blocks forever (TinyGo/native entrypoint).
func Run(h hal.HAL) {
	_ = New(h)
	select {}
}

// NewWithConfig boots a system and returns its step function. The step
// function reports the first demo failure.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := Boot(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	if cfg.Demo {
		go s.runDemos(context.Background())
	}
	return s.step
}

// RunWithConfig is NewWithConfig that blocks forever.
func RunWithConfig(h hal.HAL, cfg Config) {
	_ = NewWithConfig(h, cfg)
	select {}
}

// Boot creates the kernel, heap and OS layer and starts the tick pump.
func Boot(h hal.HAL, cfg Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kc := kernel.DefaultConfig()
	kc.TickHz = uint32(cfg.TickHz)
	kc.MaxThreads = cfg.MaxThreads
	k := kernel.New(kc)
	installFaultHandler(h, k)

	opts := []heap.Option{
		heap.WithLimit(cfg.HeapLimit),
		heap.WithFaultHandler(func(err error) { k.Fault(err) }),
	}
	if cfg.HeapMmap && heap.MmapSupported {
		opts = append(opts, heap.WithMmap())
	}
	hp := heap.New(opts...)

	var osOpts []rtos.Option
	if cfg.Debug {
		osOpts = append(osOpts, rtos.WithLogger(h.Logger()))
	}
	s := &System{
		K:    k,
		Heap: hp,
		OS:   rtos.New(k, hp, osOpts...),
		h:    h,
		cfg:  cfg,
	}
	s.OS.SysStart()

	if ht := h.Time(); ht != nil {
		if ch := ht.Ticks(); ch != nil {
			go func() {
				for seq := range ch {
					k.TickTo(seq)
				}
			}()
		}
	}

	h.Logger().WriteLineString(fmt.Sprintf("osal %s: %d Hz, %d thread slots", buildinfo.Short(), cfg.TickHz, cfg.MaxThreads))
	return s, nil
}

// Shutdown stops the kernel and aborts every thread.
func (s *System) Shutdown() { s.OS.SysStop() }

func (s *System) step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done reports whether the demo run has finished, and its result.
func (s *System) Done() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done, s.err
}

func (s *System) runDemos(ctx context.Context) {
	err := s.RunDemos(ctx)
	s.mu.Lock()
	s.done = true
	s.err = err
	s.mu.Unlock()
}

// RunDemos runs every demo scenario concurrently and returns the first failure.
func (s *System) RunDemos(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, d := range demos {
		d := d
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := d.run(s); err != nil {
				return fmt.Errorf("demo %s: %w", d.name, err)
			}
			s.h.Logger().WriteLineString("demo " + d.name + ": ok")
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		s.h.Logger().WriteLineString(err.Error())
	} else {
		s.h.Logger().WriteLineString("demo: all scenarios passed")
	}
	return err
}
