//go:build !tinygo

package kernel

import "runtime"

// maxFaultStack bounds the trace kept in a FaultInfo.
const maxFaultStack = 8 << 10

// captureStack returns the calling goroutine's trace, cut at maxFaultStack.
func captureStack() []byte {
	buf := make([]byte, maxFaultStack)
	return buf[:runtime.Stack(buf, false)]
}
