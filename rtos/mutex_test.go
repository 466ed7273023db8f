package rtos

import (
	"testing"

	"github.com/stretchr/testify/require"

	"osal/internal/heap"
)

func TestMutexHeapLifecycle(t *testing.T) {
	o, h := newTestOS(t)

	m, err := o.MutexCreate()
	require.NoError(t, err)
	require.NotZero(t, h.Stats(heap.TagOS).InUse)

	require.NoError(t, m.Lock())
	require.NoError(t, m.TryLock(), "owner relocks")
	require.True(t, m.Locked())
	require.NoError(t, m.Unlock())
	require.NoError(t, m.Unlock())
	require.False(t, m.Locked())

	require.NoError(t, o.MutexDelete(&m))
	require.Nil(t, m)
	require.Zero(t, h.Stats(heap.TagOS).InUse)
	require.NoError(t, o.MutexDelete(&m))
	require.NoError(t, o.MutexDelete(nil))
}

func TestMutexTryLockBusy(t *testing.T) {
	o, _ := newTestOS(t)

	var m Mutex
	require.NoError(t, m.Init(o))
	require.NoError(t, m.Lock())

	got := make(chan error, 1)
	th, err := o.ThreadCreate(1024, 1, func(any) { got <- m.TryLock() }, nil, "try")
	require.NoError(t, err)
	err = <-got
	require.ErrorIs(t, err, ErrBusy)
	require.Equal(t, ResultBusy, Code(err))

	require.NoError(t, m.Unlock())
	require.NoError(t, o.ThreadJoin(th))
	o.ThreadRelease(&th)
}

func TestMutexBlocksUntilUnlock(t *testing.T) {
	o, _ := newTestOS(t)

	var m Mutex
	require.NoError(t, m.Init(o))
	require.NoError(t, m.Lock())

	got := make(chan error, 1)
	th, err := o.ThreadCreate(1024, 1, func(any) {
		if err := m.Lock(); err != nil {
			got <- err
			return
		}
		got <- m.Unlock()
	}, nil, "waiter")
	require.NoError(t, err)

	require.ErrorIs(t, o.ThreadJoinTimeout(th, 5), ErrTimedOut)
	require.NoError(t, m.Unlock())
	require.NoError(t, <-got)
	require.NoError(t, o.ThreadJoin(th))
	o.ThreadRelease(&th)
}

func TestMutexOwnershipModes(t *testing.T) {
	o, _ := newTestOS(t)

	var m Mutex
	require.ErrorIs(t, m.Lock(), ErrBadParameter)
	require.NoError(t, m.Init(o))
	pm := &m
	require.ErrorIs(t, o.MutexDelete(&pm), ErrBadParameter)
	require.NotNil(t, pm)
	m.Deinit()
	require.ErrorIs(t, m.Lock(), ErrBadParameter)

	hm, err := o.MutexCreate()
	require.NoError(t, err)
	require.ErrorIs(t, hm.Init(o), ErrBadParameter)
	require.NoError(t, o.MutexDelete(&hm))
}

func TestMutexOutOfMemory(t *testing.T) {
	o, _ := newTestOS(t, heap.WithLimit(1))
	_, err := o.MutexCreate()
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestMutexUnlockByOtherThreadFails(t *testing.T) {
	o, _ := newTestOS(t)

	var m Mutex
	require.NoError(t, m.Init(o))
	require.NoError(t, m.Lock())

	got := make(chan error, 1)
	th, err := o.ThreadCreate(1024, 1, func(any) { got <- m.Unlock() }, nil, "thief")
	require.NoError(t, err)
	require.ErrorIs(t, <-got, ErrFailure)
	require.True(t, m.Locked())
	require.NoError(t, m.Unlock())
	o.ThreadRelease(&th)
}
