// Command osalsh boots the OS layer on the host and drives it from an
// interactive shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"osal/app"
	"osal/hal"
	"osal/internal/config"
	"osal/internal/shell"
)

var errQuit = errors.New("quit")

// completer adapts the shell's command completion to readline. sh is set
// once the system has booted.
type completer struct{ sh *shell.Shell }

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	head := string(line[:pos])
	if c.sh == nil || strings.ContainsAny(head, " \t") {
		return nil, 0
	}
	var out [][]rune
	for _, name := range c.sh.Complete(head) {
		out = append(out, []rune(name[len(head):]+" "))
	}
	return out, len(head)
}

func serve(sys *app.System, rl *readline.Instance, c *completer) error {
	sh, err := shell.New(sys, rl.Stdout())
	if err != nil {
		return err
	}
	defer sh.Close()
	c.sh = sh

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return errQuit
			}
			continue
		case errors.Is(err, io.EOF):
			return errQuit
		case err != nil:
			return err
		}
		if err := sh.Exec(line); err != nil {
			if errors.Is(err, shell.ErrExit) {
				return errQuit
			}
			fmt.Fprintf(rl.Stderr(), "%v\n", err)
		}
	}
}

func main() {
	cfg := app.Config{Config: config.Load()}
	history := flag.String("history", filepath.Join(os.TempDir(), "osalsh_history"), "History file (empty disables).")
	flag.IntVar(&cfg.TickHz, "tick-hz", cfg.TickHz, "Kernel tick rate (OSAL_TICK_HZ).")
	flag.IntVar(&cfg.MaxThreads, "max-threads", cfg.MaxThreads, "Kernel thread slots (OSAL_MAX_THREADS).")
	flag.IntVar(&cfg.HeapLimit, "heap-limit", cfg.HeapLimit, "Heap limit in bytes, 0 = unlimited (OSAL_HEAP_LIMIT).")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Log layer diagnostics (OSAL_DEBUG).")
	flag.Parse()

	comp := &completer{}
	rl, err := readline.NewEx(&readline.Config{
		AutoComplete:    comp,
		Prompt:          "osal> ",
		HistoryFile:     *history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = hal.RunHeadless(ctx, func(h hal.HAL) func() error {
		sys, err := app.Boot(h, cfg)
		if err != nil {
			return func() error { return err }
		}
		done := make(chan error, 1)
		go func() {
			done <- serve(sys, rl, comp)
			sys.Shutdown()
		}()
		return func() error {
			select {
			case err := <-done:
				return err
			default:
				return nil
			}
		}
	}, hal.HeadlessConfig{Hz: 100, TickHz: cfg.TickHz, Out: rl.Stdout()})
	if err != nil && !errors.Is(err, errQuit) && !errors.Is(err, context.Canceled) {
		rl.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
