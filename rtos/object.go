package rtos

import "osal/internal/heap"

// ownership records how a synchronization object was set up. Create sets
// ownedHeap, Init sets ownedCaller; Delete and Deinit dispatch on it.
type ownership uint8

const (
	unowned ownership = iota
	ownedHeap
	ownedCaller
)

func (o *OS) charge(size uintptr) bool {
	return o.heap.Charge(heap.TagOS, int(size))
}

func (o *OS) credit(size uintptr) {
	o.heap.Credit(heap.TagOS, int(size))
}
