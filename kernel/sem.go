package kernel

import "sync"

// Sem is a counting semaphore.
type Sem struct {
	k     *Kernel
	mu    sync.Mutex
	count uint32
	limit uint32
	q     waitQueue
}

// Init (re)initializes the semaphore. Threads still pended on it are woken with ErrReset.
func (s *Sem) Init(k *Kernel, count, limit uint32) error {
	if k == nil || limit == 0 || count > limit {
		return ErrInvalid
	}
	s.mu.Lock()
	s.k = k
	s.count = count
	s.limit = limit
	s.q.flush(ErrReset)
	s.mu.Unlock()
	return nil
}

// Take decrements the count, waiting up to to for it to become non-zero.
func (s *Sem) Take(to Timeout) error {
	if s.k == nil {
		return ErrInvalid
	}
	if err := s.k.checkBlocking(to); err != nil {
		return err
	}

	s.mu.Lock()
	if s.count > 0 {
		s.count--
		s.mu.Unlock()
		return nil
	}
	if to.IsNoWait() {
		s.mu.Unlock()
		return ErrBusy
	}
	w := s.k.newWaiter()
	s.q.push(w)
	s.mu.Unlock()

	return s.k.pend(w, to, s.cancel)
}

func (s *Sem) cancel(w *waiter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.remove(w)
}

// Give hands the semaphore to the most urgent waiter, or increments the count up to the limit.
// It never blocks and may be called from interrupt context.
func (s *Sem) Give() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w := s.q.pop(); w != nil {
		w.ch <- nil
		return
	}
	if s.count < s.limit {
		s.count++
	}
}

// Count returns the current count.
func (s *Sem) Count() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Limit returns the maximum count.
func (s *Sem) Limit() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

// Reset sets the count to zero and wakes pended threads with ErrReset.
func (s *Sem) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
	s.q.flush(ErrReset)
}

// Waiters returns the number of pended threads.
func (s *Sem) Waiters() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.len()
}
