package rtos

// MaxTLSSlots is the number of thread-local storage slots shared by all threads.
const MaxTLSSlots = 4

// TLSAlloc reserves the lowest free slot index.
func (o *OS) TLSAlloc() (int, error) {
	key := o.tlsLock.Lock()
	defer o.tlsLock.Unlock(key)
	for i := 0; i < MaxTLSSlots; i++ {
		if o.tlsBitmap&(1<<i) == 0 {
			o.tlsBitmap |= 1 << i
			return i, nil
		}
	}
	return -1, ErrOutOfMemory
}

// TLSFree returns idx to the pool. Invalid indices are ignored.
func (o *OS) TLSFree(idx int) {
	if idx < 0 || idx >= MaxTLSSlots {
		return
	}
	key := o.tlsLock.Lock()
	o.tlsBitmap &^= 1 << idx
	o.tlsLock.Unlock(key)
}

// TLSSet stores v in slot idx of the calling thread.
func (o *OS) TLSSet(idx int, v any) error {
	if idx < 0 || idx >= MaxTLSSlots {
		return ErrBadParameter
	}
	t := o.current()
	t.tlsMu.Lock()
	t.tls[idx] = v
	t.tlsSet |= 1 << idx
	t.tlsMu.Unlock()
	return nil
}

// TLSGet returns slot idx of the calling thread, or nil if the thread never
// set it.
func (o *OS) TLSGet(idx int) any {
	if idx < 0 || idx >= MaxTLSSlots {
		return nil
	}
	t := o.current()
	t.tlsMu.Lock()
	defer t.tlsMu.Unlock()
	if t.tlsSet&(1<<idx) == 0 {
		return nil
	}
	return t.tls[idx]
}
