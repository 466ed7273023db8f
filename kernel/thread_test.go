package kernel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateThreadValidates(t *testing.T) {
	k := newTestKernel(t)
	stacks := alignedStack(t, 1)
	entry := func(any, any, any) {}
	var th Thread

	require.ErrorIs(t, k.CreateThread(&th, stacks[0], nil, nil, nil, nil, 0), ErrInvalid)
	require.ErrorIs(t, k.CreateThread(&th, stacks[0][:MinStackSize-1], entry, nil, nil, nil, 0), ErrInvalid)
	require.ErrorIs(t, k.CreateThread(&th, stacks[0][1:], entry, nil, nil, nil, 0), ErrInvalid)
	require.ErrorIs(t, k.CreateThread(&th, stacks[0], entry, nil, nil, nil, k.NumPriorities()), ErrInvalid)
}

func TestCreateThreadRunsEntry(t *testing.T) {
	k := newTestKernel(t)
	stacks := alignedStack(t, 1)
	var th Thread
	var self atomic.Pointer[Thread]
	var args atomic.Value

	require.NoError(t, k.CreateThread(&th, stacks[0], func(p1, p2, p3 any) {
		self.Store(k.Current())
		args.Store([3]any{p1, p2, p3})
	}, 1, "two", 3.0, 7))

	<-th.Done()
	require.Same(t, &th, self.Load())
	require.Equal(t, [3]any{1, "two", 3.0}, args.Load())
	require.False(t, th.Alive())
	require.Zero(t, k.ThreadCount())
}

func TestCreateThreadLimit(t *testing.T) {
	k := New(Config{MaxThreads: 1})
	k.Start()
	t.Cleanup(k.Stop)
	stacks := alignedStack(t, 2)

	var a, b Thread
	var s Sem
	require.NoError(t, s.Init(k, 0, 1))
	require.NoError(t, k.CreateThread(&a, stacks[0], func(any, any, any) { _ = s.Take(Forever) }, nil, nil, nil, 0))
	require.ErrorIs(t, k.CreateThread(&b, stacks[1], func(any, any, any) {}, nil, nil, nil, 0), ErrNoMem)
	s.Give()
	<-a.Done()
}

func TestAbortBlockedThread(t *testing.T) {
	k := newTestKernel(t)
	stacks := alignedStack(t, 1)
	var th Thread
	var s Sem
	require.NoError(t, s.Init(k, 0, 1))
	var returned atomic.Bool

	require.NoError(t, k.CreateThread(&th, stacks[0], func(any, any, any) {
		_ = s.Take(Forever)
		returned.Store(true)
	}, nil, nil, nil, 3))
	require.Eventually(t, func() bool { return s.Waiters() == 1 }, timeout, poll)

	th.Abort()
	require.False(t, th.Alive())
	require.False(t, returned.Load())
	require.Zero(t, s.Waiters())
	require.ErrorIs(t, th.SetPriority(1), ErrNoThread)
}

func TestAbortSleepingThread(t *testing.T) {
	k := newTestKernel(t)
	stacks := alignedStack(t, 1)
	var th Thread
	require.NoError(t, k.CreateThread(&th, stacks[0], func(any, any, any) {
		k.Sleep(Forever)
	}, nil, nil, nil, 3))
	th.Abort()
	require.False(t, th.Alive())
}

func TestThreadPanicRaisesFault(t *testing.T) {
	k := newTestKernel(t)
	stacks := alignedStack(t, 1)
	faults := make(chan FaultInfo, 1)
	k.SetFaultHandler(func(info FaultInfo) { faults <- info })

	var th Thread
	require.NoError(t, k.CreateThread(&th, stacks[0], func(any, any, any) {
		panic("boom")
	}, nil, nil, nil, 3))
	th.SetName("crasher")
	<-th.Done()

	info := <-faults
	require.Equal(t, th.ID(), info.Thread)
	require.Equal(t, "boom", info.Value)
}

func TestThreadNameTruncated(t *testing.T) {
	var th Thread
	th.SetName("0123456789012345678901234567890123456789")
	require.Len(t, th.Name(), MaxNameLen)
}

func TestStopAbortsThreads(t *testing.T) {
	k := New(DefaultConfig())
	k.Start()
	stacks := alignedStack(t, 1)
	var th Thread
	require.NoError(t, k.CreateThread(&th, stacks[0], func(any, any, any) {
		k.Sleep(Forever)
	}, nil, nil, nil, 3))

	k.Stop()
	<-th.Done()
	require.ErrorIs(t, k.CreateThread(&th, stacks[0], func(any, any, any) {}, nil, nil, nil, 3), ErrInvalid)
}

func TestSleepInISRReturns(t *testing.T) {
	k := newTestKernel(t)
	var returned atomic.Bool
	var tm Timer
	tm.Init(k, func(*Timer) {
		k.Sleep(TicksTimeout(5))
		k.Sleep(Forever)
		returned.Store(true)
	}, nil)

	tm.Start(TicksTimeout(1))
	k.Tick()
	require.True(t, returned.Load())
	require.Equal(t, uint64(1), k.Ticks())
}
