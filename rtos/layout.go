package rtos

import (
	"encoding/binary"
	"unsafe"

	"osal/kernel"
)

const (
	// headerSize is the size of the stack-size word at the start of a workspace.
	headerSize = 4

	// ControlBlockSize is the size of the control block region of a workspace.
	ControlBlockSize = 32
	// ControlBlockAlign is the alignment of the control block region.
	ControlBlockAlign = 8

	// MaxStackSize is the largest stack a thread may request.
	MaxStackSize = 1 << 24

	descriptorMagic = 0x31424354
)

// Layout is the placement of a thread inside its workspace. Offsets are
// relative to the workspace start.
type Layout struct {
	ControlBlock int
	Stack        int
	StackLen     int
	StackSize    int
}

// End returns the offset one past the stack region.
func (l Layout) End() int { return l.Stack + l.StackLen }

// WorkspaceSize returns the workspace size needed for a thread with
// stackSize bytes of stack, whatever the alignment of the buffer.
func WorkspaceSize(stackSize int) int {
	return headerSize +
		ControlBlockAlign - 1 + ControlBlockSize +
		kernel.StackAlign - 1 + kernel.StackLen(stackSize)
}

// NewWorkspace allocates a workspace for ThreadCreateStatic with the stack
// size recorded in its header.
func NewWorkspace(stackSize int) []byte {
	if stackSize <= 0 || stackSize > MaxStackSize {
		return nil
	}
	ws := make([]byte, WorkspaceSize(stackSize))
	binary.NativeEndian.PutUint32(ws, uint32(stackSize))
	return ws
}

func alignUp(p, align uintptr) uintptr {
	return (p + align - 1) &^ (align - 1)
}

// computeLayout places the control block and stack in the size bytes at base.
func computeLayout(base uintptr, size, stackSize int) (Layout, bool) {
	if size < headerSize || stackSize <= 0 || stackSize > MaxStackSize {
		return Layout{}, false
	}
	end := base + uintptr(size)
	cb := alignUp(base+headerSize, ControlBlockAlign)
	st := alignUp(cb+ControlBlockSize, kernel.StackAlign)
	n := uintptr(kernel.StackLen(stackSize))
	if st > end || n > end-st {
		return Layout{}, false
	}
	return Layout{
		ControlBlock: int(cb - base),
		Stack:        int(st - base),
		StackLen:     int(n),
		StackSize:    stackSize,
	}, true
}

// layoutWorkspace lays a thread out in ws. A zero stackSize is read back
// from the workspace header; writeHeader stores stackSize there first.
// On success everything from the control block to the end of ws is zeroed
// and a descriptor record (magic, stack offset, stack length, stack size,
// workspace length) is written at the start of the control-block region.
// The returned Thread itself lives outside ws; the region holds only that
// descriptor, which ThreadRelease checks before freeing ws.
func layoutWorkspace(ws []byte, stackSize int, writeHeader bool) (*Thread, error) {
	if len(ws) < headerSize {
		return nil, ErrBadParameter
	}
	if stackSize == 0 {
		stackSize = int(binary.NativeEndian.Uint32(ws))
	} else if writeHeader {
		binary.NativeEndian.PutUint32(ws, uint32(stackSize))
	}

	l, ok := computeLayout(uintptr(unsafe.Pointer(&ws[0])), len(ws), stackSize)
	if !ok {
		return nil, ErrBadParameter
	}

	clear(ws[l.ControlBlock:])
	writeDescriptor(ws, l)

	return &Thread{
		ws:     ws,
		layout: l,
		stack:  ws[l.Stack:l.End():l.End()],
	}, nil
}

// descriptorLen is the number of control-block bytes the descriptor uses.
const descriptorLen = 20

func writeDescriptor(ws []byte, l Layout) {
	d := ws[l.ControlBlock : l.ControlBlock+ControlBlockSize]
	binary.NativeEndian.PutUint32(d[0:], descriptorMagic)
	binary.NativeEndian.PutUint32(d[4:], uint32(l.Stack))
	binary.NativeEndian.PutUint32(d[8:], uint32(l.StackLen))
	binary.NativeEndian.PutUint32(d[12:], uint32(l.StackSize))
	binary.NativeEndian.PutUint32(d[16:], uint32(len(ws)))
}

// descriptorIntact reports whether the control block descriptor still matches l.
func descriptorIntact(ws []byte, l Layout) bool {
	if l.ControlBlock+ControlBlockSize > len(ws) {
		return false
	}
	d := ws[l.ControlBlock : l.ControlBlock+ControlBlockSize]
	return binary.NativeEndian.Uint32(d[0:]) == descriptorMagic &&
		binary.NativeEndian.Uint32(d[4:]) == uint32(l.Stack) &&
		binary.NativeEndian.Uint32(d[8:]) == uint32(l.StackLen) &&
		binary.NativeEndian.Uint32(d[12:]) == uint32(l.StackSize) &&
		binary.NativeEndian.Uint32(d[16:]) == uint32(len(ws))
}
