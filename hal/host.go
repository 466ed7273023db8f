//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	t      *hostTime
}

// New returns a host HAL implementation logging to stdout with a 1 kHz tick.
func New() HAL {
	return NewHost(os.Stdout, 1000)
}

// NewHost returns a host HAL logging to w whose tick stream runs at tickHz.
func NewHost(w io.Writer, tickHz int) HAL {
	return newHost(w, tickHz)
}

func newHost(w io.Writer, tickHz int) *hostHAL {
	logger := &hostLogger{w: w}
	return &hostHAL{
		logger: logger,
		led:    &hostLED{logger: logger},
		t:      newHostTime(tickHz),
	}
}

func (h *hostHAL) Logger() Logger { return h.logger }
func (h *hostHAL) LED() LED       { return h.led }
func (h *hostHAL) Time() Time     { return h.t }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = true
	l.logger.WriteLineString("led: HIGH")
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = false
	l.logger.WriteLineString("led: LOW")
}

// On reports the last level driven onto the LED.
func (l *hostLED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
