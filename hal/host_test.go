//go:build !tinygo

package hal

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHostLoggerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	h := NewHost(&buf, 1000)

	h.Logger().WriteLineString("one")
	h.Logger().WriteLineBytes([]byte("two"))
	h.LED().High()
	require.Equal(t, "one\ntwo\nled: HIGH\n", buf.String())
	require.True(t, h.(*hostHAL).led.On())

	h.LED().Low()
	require.False(t, h.(*hostHAL).led.On())
}

func TestHostTimeFirstStepEmitsBudget(t *testing.T) {
	ht := newHostTime(1000)
	ht.step(3)

	var got []uint64
	for len(ht.ch) > 0 {
		got = append(got, <-ht.ch)
	}
	require.Equal(t, []uint64{1, 2, 3}, got)
}

func TestHostTimeConvertsElapsed(t *testing.T) {
	ht := newHostTime(1000)
	ht.step(1)
	<-ht.ch

	time.Sleep(5 * time.Millisecond)
	ht.step(1)
	require.GreaterOrEqual(t, len(ht.ch), 4)
}

func TestRunHeadlessStopsAfterTicks(t *testing.T) {
	var steps int
	var buf bytes.Buffer
	err := RunHeadless(context.Background(), func(h HAL) func() error {
		h.Logger().WriteLineString("boot")
		return func() error {
			steps++
			return nil
		}
	}, HeadlessConfig{Hz: 1000, Ticks: 5, Out: &buf})
	require.NoError(t, err)
	require.Equal(t, 5, steps)
	require.Equal(t, "boot\n", buf.String())
}

func TestRunHeadlessStepError(t *testing.T) {
	boom := errors.New("boom")
	err := RunHeadless(context.Background(), func(HAL) func() error {
		return func() error { return boom }
	}, HeadlessConfig{Hz: 1000, Out: &bytes.Buffer{}})
	require.ErrorIs(t, err, boom)
}

func TestRunHeadlessCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunHeadless(ctx, func(HAL) func() error { return nil }, HeadlessConfig{Out: &bytes.Buffer{}})
	require.ErrorIs(t, err, context.Canceled)
}
