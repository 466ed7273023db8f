package rtos

import (
	"unsafe"

	"osal/kernel"
)

// Sem is a counting semaphore. Counts are clamped to [0, kernel.SemMaxLimit].
type Sem struct {
	os    *OS
	ks    kernel.Sem
	limit uint32
	own   ownership
}

func clampCount(cnt int64, limit uint32) uint32 {
	switch {
	case cnt < 0:
		return 0
	case cnt > int64(limit):
		return limit
	default:
		return uint32(cnt)
	}
}

func (s *Sem) init(o *OS, cnt int64, limit uint32, own ownership) error {
	s.os = o
	s.limit = limit
	if err := s.ks.Init(o.k, clampCount(cnt, limit), limit); err != nil {
		s.own = unowned
		return fail(err)
	}
	s.own = own
	return nil
}

// SemCreate returns a heap-owned counting semaphore holding cnt.
func (o *OS) SemCreate(cnt int64) (*Sem, error) {
	s := &Sem{}
	if !o.charge(unsafe.Sizeof(*s)) {
		return nil, ErrOutOfMemory
	}
	if err := s.init(o, cnt, kernel.SemMaxLimit, ownedHeap); err != nil {
		o.credit(unsafe.Sizeof(*s))
		return nil, err
	}
	return s, nil
}

// SemDelete frees a semaphore from SemCreate and sets *h to nil. Deleting a
// nil handle is a no-op; deleting an embedded semaphore fails.
func (o *OS) SemDelete(h **Sem) error {
	if h == nil || *h == nil {
		return nil
	}
	s := *h
	if s.own != ownedHeap {
		return ErrBadParameter
	}
	s.own = unowned
	o.credit(unsafe.Sizeof(*s))
	*h = nil
	return nil
}

// Init sets up s in place holding cnt. s must not come from SemCreate.
func (s *Sem) Init(o *OS, cnt int64) error {
	if s == nil || o == nil || s.own == ownedHeap {
		return ErrBadParameter
	}
	return s.init(o, cnt, kernel.SemMaxLimit, ownedCaller)
}

// Deinit retires an embedded semaphore.
func (s *Sem) Deinit() {
	if s != nil && s.own == ownedCaller {
		s.own = unowned
	}
}

func (s *Sem) ready() bool { return s != nil && s.own != unowned }

// Wait takes s, waiting as long as needed.
func (s *Sem) Wait() error {
	if !s.ready() {
		return ErrBadParameter
	}
	if err := s.ks.Take(kernel.Forever); err != nil {
		return fail(err)
	}
	return nil
}

// WaitTimeout takes s, waiting up to ticks. It returns ErrTimedOut if the
// count stayed at zero.
func (s *Sem) WaitTimeout(ticks Ticks) error {
	if !s.ready() {
		return ErrBadParameter
	}
	return waitErr(s.ks.Take(timeout(ticks)))
}

// Signal gives s. It never blocks.
func (s *Sem) Signal() {
	if s.ready() {
		s.ks.Give()
	}
}

// SignalISR gives s from interrupt context.
func (s *Sem) SignalISR() { s.Signal() }

// Reset sets the count to cnt. Threads waiting on s are woken and fail with
// ErrFailure, whether they waited with Wait or WaitTimeout.
func (s *Sem) Reset(cnt int64) error {
	if !s.ready() {
		return ErrBadParameter
	}
	return s.init(s.os, cnt, s.limit, s.own)
}

// Count returns the current count.
func (s *Sem) Count() int64 {
	if !s.ready() {
		return 0
	}
	return int64(s.ks.Count())
}

// BinarySem is a semaphore with a limit of one.
type BinarySem struct {
	s Sem
}

func takenCount(taken bool) int64 {
	if taken {
		return 0
	}
	return 1
}

// BSemCreate returns a heap-owned binary semaphore, initially taken or free.
func (o *OS) BSemCreate(taken bool) (*BinarySem, error) {
	b := &BinarySem{}
	if !o.charge(unsafe.Sizeof(*b)) {
		return nil, ErrOutOfMemory
	}
	if err := b.s.init(o, takenCount(taken), 1, ownedHeap); err != nil {
		o.credit(unsafe.Sizeof(*b))
		return nil, err
	}
	return b, nil
}

// BSemDelete frees a binary semaphore from BSemCreate and sets *h to nil.
func (o *OS) BSemDelete(h **BinarySem) error {
	if h == nil || *h == nil {
		return nil
	}
	b := *h
	if b.s.own != ownedHeap {
		return ErrBadParameter
	}
	b.s.own = unowned
	o.credit(unsafe.Sizeof(*b))
	*h = nil
	return nil
}

// Init sets up b in place.
func (b *BinarySem) Init(o *OS, taken bool) error {
	if b == nil || o == nil || b.s.own == ownedHeap {
		return ErrBadParameter
	}
	return b.s.init(o, takenCount(taken), 1, ownedCaller)
}

// Deinit retires an embedded binary semaphore.
func (b *BinarySem) Deinit() { b.sem().Deinit() }

// Reset marks b taken or free. Threads waiting on b fail.
func (b *BinarySem) Reset(taken bool) error { return b.sem().Reset(takenCount(taken)) }

// Wait takes b, waiting as long as needed.
func (b *BinarySem) Wait() error { return b.sem().Wait() }

// WaitTimeout takes b, waiting up to ticks.
func (b *BinarySem) WaitTimeout(ticks Ticks) error { return b.sem().WaitTimeout(ticks) }

// Signal frees b.
func (b *BinarySem) Signal() { b.sem().Signal() }

// SignalISR frees b from interrupt context.
func (b *BinarySem) SignalISR() { b.sem().Signal() }

// Taken reports whether b is currently taken.
func (b *BinarySem) Taken() bool { return b.sem().Count() == 0 }

func (b *BinarySem) sem() *Sem {
	if b == nil {
		return nil
	}
	return &b.s
}
