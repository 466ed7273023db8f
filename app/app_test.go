package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"osal/hal"
	"osal/internal/config"
	"osal/kernel"
)

var errStop = errors.New("stop")

// syncBuffer is a bytes.Buffer safe for the logger and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunDemosOnHeadlessHost(t *testing.T) {
	var out syncBuffer
	var sys *System

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := hal.RunHeadless(ctx, func(h hal.HAL) func() error {
		var err error
		sys, err = Boot(h, Config{Config: config.Default(), Demo: true})
		require.NoError(t, err)
		go sys.runDemos(ctx)
		return func() error {
			if done, err := sys.Done(); done {
				if err != nil {
					return err
				}
				return errStop
			}
			return nil
		}
	}, hal.HeadlessConfig{Hz: 500, TickHz: 1000, Out: &out})
	require.ErrorIs(t, err, errStop)
	t.Cleanup(sys.Shutdown)

	log := out.String()
	for _, d := range demos {
		require.Contains(t, log, "demo "+d.name+": ok")
	}
	require.Contains(t, log, "demo: all scenarios passed")
	require.Contains(t, log, "led: HIGH")
	require.Zero(t, sys.Heap.InUse(), "every workspace and object quota returned")
}

func TestBootRejectsBadConfig(t *testing.T) {
	h := hal.NewHost(&bytes.Buffer{}, 1000)
	_, err := Boot(h, Config{Config: config.Config{TickHz: 0, MaxThreads: 1}})
	require.Error(t, err)

	step := NewWithConfig(h, Config{Config: config.Config{TickHz: 100}})
	require.Error(t, step())
}

func TestFaultHandlerLogsStack(t *testing.T) {
	var out syncBuffer
	h := hal.NewHost(&out, 1000)
	k := kernel.New(kernel.DefaultConfig())
	installFaultHandler(h, k)

	k.Fault("bad thing")
	log := out.String()
	require.Contains(t, log, "osal fault: thread=0 name=main value=bad thing")
	require.True(t, strings.Count(log, "\n") > 1)
}
