package kernel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	k := New(DefaultConfig())
	k.Start()
	t.Cleanup(k.Stop)
	return k
}

// pump ticks k until stop is closed.
func pump(k *Kernel, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
			k.Tick()
			time.Sleep(100 * time.Microsecond)
		}
	}
}

func TestTickToAdvances(t *testing.T) {
	k := newTestKernel(t)
	k.TickTo(10)
	require.Equal(t, uint64(10), k.Ticks())
	k.TickTo(5)
	require.Equal(t, uint64(10), k.Ticks())
}

func TestMsecRoundsUp(t *testing.T) {
	k := New(Config{TickHz: 100})
	require.True(t, k.Msec(0).IsNoWait())
	require.Equal(t, uint64(1), k.Msec(1).Ticks())
	require.Equal(t, uint64(1), k.Msec(10).Ticks())
	require.Equal(t, uint64(2), k.Msec(11).Ticks())
}

func TestStackLenAligned(t *testing.T) {
	for _, size := range []int{1, 15, 16, 100, 1000, 4096} {
		n := StackLen(size)
		require.GreaterOrEqual(t, n, size+StackReserved)
		require.Zero(t, n%StackAlign)
	}
}

func TestCurrentIsMainForForeignGoroutines(t *testing.T) {
	k := newTestKernel(t)
	require.Same(t, k.Main(), k.Current())

	got := make(chan *Thread, 1)
	go func() { got <- k.Current() }()
	require.Same(t, k.Main(), <-got)
}

func TestRunISR(t *testing.T) {
	k := newTestKernel(t)
	require.False(t, k.InISR())
	var inside bool
	k.RunISR(func() { inside = k.InISR() })
	require.True(t, inside)
	require.False(t, k.InISR())
}

func TestBlockingFromISRRejected(t *testing.T) {
	k := newTestKernel(t)
	var s Sem
	require.NoError(t, s.Init(k, 0, 1))
	k.RunISR(func() {
		require.ErrorIs(t, s.Take(Forever), ErrInvalid)
		require.ErrorIs(t, s.Take(NoWait), ErrBusy)
	})
}

func TestSchedLockNests(t *testing.T) {
	k := newTestKernel(t)
	k.SchedLock()
	k.SchedLock()
	require.True(t, k.sched.Locked())
	k.SchedUnlock()
	require.True(t, k.sched.Locked())
	k.SchedUnlock()
	require.False(t, k.sched.Locked())
}

func TestHaltRaisesFault(t *testing.T) {
	k := newTestKernel(t)
	var got atomic.Value
	k.SetFaultHandler(func(info FaultInfo) { got.Store(info) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		k.Halt("stop")
	}()
	<-done

	require.True(t, k.Halted())
	info, ok := got.Load().(FaultInfo)
	require.True(t, ok)
	require.Equal(t, "stop", info.Value)
	require.NotEmpty(t, info.Stack)
}
