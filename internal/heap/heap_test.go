package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateFree(t *testing.T) {
	h := New()
	b := h.Allocate(TagOS, 100)
	require.Len(t, b, 100)
	require.Equal(t, 100, h.InUse())

	st := h.Stats(TagOS)
	require.Equal(t, uint64(1), st.Allocs)
	require.Equal(t, 100, st.InUse)

	require.NoError(t, h.Free(TagOS, b))
	require.Zero(t, h.InUse())
	require.Equal(t, uint64(1), h.Stats(TagOS).Frees)
	require.Equal(t, 100, h.Stats(TagOS).Peak)
}

func TestAllocateRejectsBadInput(t *testing.T) {
	h := New()
	require.Nil(t, h.Allocate(TagOS, 0))
	require.Nil(t, h.Allocate(tagCount, 8))
	require.NoError(t, h.Free(TagOS, nil))
}

func TestLimit(t *testing.T) {
	h := New(WithLimit(128))
	a := h.Allocate(TagOS, 100)
	require.NotNil(t, a)
	require.Nil(t, h.Allocate(TagOS, 100))
	require.False(t, h.Charge(TagAux, 64))
	require.True(t, h.Charge(TagAux, 28))
	require.Equal(t, 128, h.InUse())

	h.Credit(TagAux, 28)
	require.NoError(t, h.Free(TagOS, a))
	require.NotNil(t, h.Allocate(TagOS, 100))
}

func TestDoubleFreeFaults(t *testing.T) {
	var faults []error
	h := New(WithFaultHandler(func(err error) { faults = append(faults, err) }))
	b := h.Allocate(TagOS, 32)
	require.NoError(t, h.Free(TagOS, b))
	require.ErrorIs(t, h.Free(TagOS, b), ErrNotAllocated)
	require.Len(t, faults, 1)
	require.Equal(t, uint64(1), h.Stats(TagOS).Frees)
}

func TestFreeWrongTag(t *testing.T) {
	h := New()
	b := h.Allocate(TagUser, 16)
	require.ErrorIs(t, h.Free(TagOS, b), ErrBadTag)
	require.NoError(t, h.Free(TagUser, b))
}

func TestMmapBackend(t *testing.T) {
	if !MmapSupported {
		t.Skip("mmap backend not available")
	}
	h := New(WithMmap())
	b := h.Allocate(TagOS, 5000)
	require.Len(t, b, 5000)
	b[0], b[4999] = 1, 2
	require.NoError(t, h.Free(TagOS, b))
	require.Zero(t, h.InUse())
}

func TestTagString(t *testing.T) {
	require.Equal(t, "os", TagOS.String())
	require.Equal(t, "tag(9)", Tag(9).String())
}
