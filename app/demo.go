package app

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"osal/rtos"
)

const demoStack = 2048

type demo struct {
	name string
	run  func(s *System) error
}

var demos = []demo{
	{"notify", demoNotify},
	{"heartbeat", demoHeartbeat},
	{"pipeline", demoPipeline},
	{"static", demoStatic},
}

// inThread runs fn on a fresh layer thread and returns its result, so the
// scenario has its own mailbox and TLS.
func inThread(o *rtos.OS, name string, fn func() error) error {
	var err error
	th, cerr := o.ThreadCreate(demoStack, 8, func(any) { err = fn() }, nil, name)
	if cerr != nil {
		return cerr
	}
	if jerr := o.ThreadJoin(th); jerr != nil {
		o.ThreadRelease(&th)
		return jerr
	}
	o.ThreadRelease(&th)
	return err
}

// demoNotify has A post 42 to B's mailbox and join it.
func demoNotify(s *System) error {
	o := s.OS
	return inThread(o, "notify", func() error {
		got := make(chan int32, 1)
		b, err := o.ThreadCreate(demoStack, 4, func(any) {
			msg, err := o.ThreadWait(rtos.Infinite)
			if err == nil {
				got <- msg
			}
		}, nil, "B")
		if err != nil {
			return err
		}
		defer o.ThreadRelease(&b)

		if err := o.ThreadNotify(b, 42); err != nil {
			return err
		}
		if err := o.ThreadJoin(b); err != nil {
			return err
		}
		if msg := <-got; msg != 42 {
			return fmt.Errorf("B received %d", msg)
		}
		return nil
	})
}

// demoHeartbeat toggles the LED from a self-rearming timer.
func demoHeartbeat(s *System) error {
	o := s.OS
	const beats = 6
	period := o.MsToTicks(20)

	done, err := o.BSemCreate(true)
	if err != nil {
		return err
	}
	defer o.BSemDelete(&done)

	led := s.h.LED()
	var n atomic.Int32
	var tm *rtos.Timer
	tm, err = o.TimerCreate(func(any) {
		c := n.Add(1)
		if c%2 == 1 {
			led.High()
		} else {
			led.Low()
		}
		if c < beats {
			tm.SetISR(period)
			return
		}
		done.SignalISR()
	}, nil)
	if err != nil {
		return err
	}
	defer o.TimerDelete(&tm)

	tm.Set(period)
	if err := done.WaitTimeout(period * (beats + 10)); err != nil {
		return fmt.Errorf("heartbeat stalled after %d beats: %w", n.Load(), err)
	}
	return nil
}

// demoPipeline moves items from producers to a consumer through a mutex
// guarded queue and a counting semaphore, and reports completion on an event
// group.
func demoPipeline(s *System) error {
	o := s.OS
	const (
		producers = 3
		items     = 20
		allDone   = 1<<producers - 1
		consumed  = 1 << producers
	)

	var (
		mu    rtos.Mutex
		avail rtos.Sem
		ev    rtos.Event
	)
	if err := mu.Init(o); err != nil {
		return err
	}
	defer mu.Deinit()
	if err := avail.Init(o, 0); err != nil {
		return err
	}
	defer avail.Deinit()
	if err := ev.Init(o); err != nil {
		return err
	}
	defer ev.Deinit()

	var queue []int
	var threads []*rtos.Thread
	defer func() {
		for i := range threads {
			o.ThreadRelease(&threads[i])
		}
	}()

	for p := 0; p < producers; p++ {
		bit := uint32(1) << p
		th, err := o.ThreadCreate(demoStack, rtos.Priority(5+p), func(arg any) {
			base := arg.(int) * 1000
			for i := 0; i < items; i++ {
				_ = mu.Lock()
				queue = append(queue, base+i)
				_ = mu.Unlock()
				avail.Signal()
			}
			ev.Signal(bit)
		}, p, fmt.Sprintf("producer%d", p))
		if err != nil {
			return err
		}
		threads = append(threads, th)
	}

	var sum, count int
	var cerr error
	var wg sync.WaitGroup
	wg.Add(1)
	th, err := o.ThreadCreate(demoStack, 3, func(any) {
		defer wg.Done()
		for count < producers*items {
			if err := avail.WaitTimeout(o.MsToTicks(1000)); err != nil {
				cerr = err
				return
			}
			_ = mu.Lock()
			sum += queue[0]
			queue = queue[1:]
			_ = mu.Unlock()
			count++
		}
		ev.Signal(consumed)
	}, nil, "consumer")
	if err != nil {
		return err
	}
	threads = append(threads, th)

	bits, err := ev.WaitTimeout(allDone|consumed, 0, true, o.MsToTicks(5000))
	wg.Wait()
	if cerr != nil {
		return fmt.Errorf("consumer: %w", cerr)
	}
	if err != nil {
		return err
	}
	if bits != allDone|consumed {
		return fmt.Errorf("event bits %#x", bits)
	}

	want := 0
	for p := 0; p < producers; p++ {
		for i := 0; i < items; i++ {
			want += p*1000 + i
		}
	}
	if sum != want {
		return fmt.Errorf("consumed sum %d, want %d", sum, want)
	}
	return nil
}

// demoStatic runs a thread in a caller-owned workspace and checks its TLS
// slot is private.
func demoStatic(s *System) error {
	o := s.OS
	slot, err := o.TLSAlloc()
	if err != nil {
		return err
	}
	defer o.TLSFree(slot)

	ws := rtos.NewWorkspace(demoStack)
	var seen any
	th, err := o.ThreadCreateStatic(ws, 6, func(any) {
		seen = o.TLSGet(slot)
		_ = o.TLSSet(slot, "static")
	}, nil, "static")
	if err != nil {
		return err
	}
	defer o.ThreadRelease(&th)

	if err := o.ThreadJoinTimeout(th, o.MsToTicks(1000)); err != nil {
		return err
	}
	if seen != nil {
		return errors.New("fresh thread saw a TLS value")
	}
	return nil
}
