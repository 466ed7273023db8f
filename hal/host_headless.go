//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// HeadlessConfig controls the host runner.
type HeadlessConfig struct {
	// Hz is the step rate of the runner loop.
	Hz int
	// TickHz is the rate of the HAL tick stream.
	TickHz int
	// Ticks stops the runner after N steps (0 = run until ctx is done).
	Ticks uint64
	// StepBudget is the number of ticks emitted on the first step.
	StepBudget int
	// Out receives log lines; nil means stdout.
	Out io.Writer
}

// RunHeadless drives the HAL tick stream and calls the app step function on
// every runner step until ctx is done, the step budget is used up or a step
// fails.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	if cfg.StepBudget <= 0 {
		cfg.StepBudget = 1
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}

	h := newHost(cfg.Out, cfg.TickHz)
	step := newApp(h)

	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()

	first := true
	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if first {
				h.t.step(uint64(cfg.StepBudget))
				first = false
			} else {
				h.t.step(1)
			}
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}
