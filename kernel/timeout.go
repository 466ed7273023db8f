package kernel

// Timeout specifies how long a blocking call may wait.
type Timeout struct {
	ticks uint64
	kind  timeoutKind
}

type timeoutKind uint8

const (
	timeoutTicks timeoutKind = iota
	timeoutForever
	timeoutNoWait
)

var (
	// Forever waits until the object becomes available.
	Forever = Timeout{kind: timeoutForever}
	// NoWait fails immediately if the object is unavailable.
	NoWait = Timeout{kind: timeoutNoWait}
)

// TicksTimeout waits for at most n ticks. Zero ticks is the same as NoWait.
func TicksTimeout(n uint64) Timeout {
	if n == 0 {
		return NoWait
	}
	return Timeout{ticks: n}
}

// Msec converts a millisecond timeout to ticks, rounding up.
func (k *Kernel) Msec(ms uint32) Timeout {
	if ms == 0 {
		return NoWait
	}
	hz := uint64(k.cfg.TickHz)
	return TicksTimeout((uint64(ms)*hz + 999) / 1000)
}

// IsForever reports whether t never expires.
func (t Timeout) IsForever() bool { return t.kind == timeoutForever }

// IsNoWait reports whether t does not wait at all.
func (t Timeout) IsNoWait() bool { return t.kind == timeoutNoWait }

// Ticks returns the tick count of a bounded timeout.
func (t Timeout) Ticks() uint64 { return t.ticks }

func (t Timeout) String() string {
	switch t.kind {
	case timeoutForever:
		return "forever"
	case timeoutNoWait:
		return "no-wait"
	default:
		return "ticks"
	}
}

func (k *Kernel) deadline(t Timeout) uint64 {
	return k.tick.Load() + t.ticks
}
