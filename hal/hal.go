package hal

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

// Time provides a base tick stream.
//
// Each value is the running tick sequence number; a slow consumer may see
// gaps and should catch up to the latest value.
type Time interface {
	Ticks() <-chan uint64
}

// HAL provides the only contact point between the OS and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Time() Time
}

// DiscardLogger drops every line.
type DiscardLogger struct{}

func (DiscardLogger) WriteLineString(string) {}
func (DiscardLogger) WriteLineBytes([]byte)  {}
