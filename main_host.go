//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"osal/app"
	"osal/hal"
	"osal/internal/config"
)

func main() {
	cfg := app.Config{Config: config.Load(), Demo: true}
	var hcfg hal.HeadlessConfig
	flag.IntVar(&hcfg.Hz, "hz", 60, "Runner step rate.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N runner steps (0 = run forever).")
	flag.IntVar(&cfg.TickHz, "tick-hz", cfg.TickHz, "Kernel tick rate (OSAL_TICK_HZ).")
	flag.IntVar(&cfg.MaxThreads, "max-threads", cfg.MaxThreads, "Kernel thread slots (OSAL_MAX_THREADS).")
	flag.IntVar(&cfg.HeapLimit, "heap-limit", cfg.HeapLimit, "Heap limit in bytes, 0 = unlimited (OSAL_HEAP_LIMIT).")
	flag.BoolVar(&cfg.HeapMmap, "heap-mmap", cfg.HeapMmap, "Back workspaces with anonymous mappings (OSAL_HEAP_MMAP).")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Log layer diagnostics (OSAL_DEBUG).")
	flag.BoolVar(&cfg.Demo, "demo", cfg.Demo, "Run the demo scenarios.")
	flag.Parse()
	hcfg.TickHz = cfg.TickHz

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := hal.RunHeadless(ctx, func(h hal.HAL) func() error {
		return app.NewWithConfig(h, cfg)
	}, hcfg); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
