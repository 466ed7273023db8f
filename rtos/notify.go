package rtos

// ThreadNotify posts msg to the mailbox of t. A later message overwrites an
// unread one, but each call releases one ThreadWait.
func (o *OS) ThreadNotify(t *Thread, msg int32) error {
	if t == nil || t.os != o {
		return ErrBadParameter
	}
	t.notifyVal.Store(msg)
	t.notify.Give()
	return nil
}

// ThreadNotifyISR is ThreadNotify from interrupt context.
func (o *OS) ThreadNotifyISR(t *Thread, msg int32) error {
	return o.ThreadNotify(t, msg)
}

// ThreadWait waits up to ticks for a message to the calling thread.
func (o *OS) ThreadWait(ticks Ticks) (int32, error) {
	t := o.current()
	if err := t.notify.Take(timeout(ticks)); err != nil {
		return 0, waitErr(err)
	}
	return t.notifyVal.Load(), nil
}
