// Package config reads runtime settings from the environment.
package config

import (
	"fmt"

	"github.com/xyproto/env/v2"
)

const (
	envTickHz     = "OSAL_TICK_HZ"
	envMaxThreads = "OSAL_MAX_THREADS"
	envHeapLimit  = "OSAL_HEAP_LIMIT"
	envHeapMmap   = "OSAL_HEAP_MMAP"
	envDebug      = "OSAL_DEBUG"
)

// Config holds the settings shared by the host runner and the shell.
type Config struct {
	// TickHz is the kernel tick rate.
	TickHz int
	// MaxThreads bounds the number of live kernel threads.
	MaxThreads int
	// HeapLimit caps the tagged heap in bytes; 0 is unlimited.
	HeapLimit int
	// HeapMmap backs thread workspaces with anonymous mappings.
	HeapMmap bool
	// Debug enables verbose layer diagnostics.
	Debug bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		TickHz:     1000,
		MaxThreads: 64,
	}
}

// Load returns Default overlaid with any OSAL_* environment variables as
// they are at the time of the call.
func Load() Config {
	env.Load()
	d := Default()
	return Config{
		TickHz:     env.Int(envTickHz, d.TickHz),
		MaxThreads: env.Int(envMaxThreads, d.MaxThreads),
		HeapLimit:  env.Int(envHeapLimit, d.HeapLimit),
		HeapMmap:   env.Bool(envHeapMmap),
		Debug:      env.Bool(envDebug),
	}
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.TickHz <= 0 || c.TickHz > 1_000_000:
		return fmt.Errorf("config: tick rate %d out of range", c.TickHz)
	case c.MaxThreads <= 0:
		return fmt.Errorf("config: max threads %d out of range", c.MaxThreads)
	case c.HeapLimit < 0:
		return fmt.Errorf("config: heap limit %d out of range", c.HeapLimit)
	}
	return nil
}
