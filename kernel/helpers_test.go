package kernel

import (
	"testing"
	"time"
	"unsafe"
)

const (
	timeout = 2 * time.Second
	poll    = time.Millisecond
)

// alignedStack returns n stack objects aligned to StackAlign.
func alignedStack(t *testing.T, n int) [][]byte {
	t.Helper()
	size := StackLen(MinStackSize)
	out := make([][]byte, n)
	for i := range out {
		buf := make([]byte, size+StackAlign)
		off := 0
		if rem := int(uintptr(unsafe.Pointer(&buf[0])) % StackAlign); rem != 0 {
			off = StackAlign - rem
		}
		out[i] = buf[off : off+size]
	}
	return out
}
