// Package shell is a line-oriented command interpreter over a booted OS
// layer. Lines are split with shell quoting rules; every command writes its
// output to the shell's writer.
package shell

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/google/shlex"

	"osal/app"
	"osal/rtos"
)

// ErrExit is returned by Exec when the user asked to leave the shell.
var ErrExit = errors.New("shell: exit")

// ErrUnknownCommand is wrapped by Exec for names that resolve to nothing.
var ErrUnknownCommand = errors.New("command not found")

// Shell interprets command lines against one System. Objects created from
// the command line are kept by name until removed or until Close.
type Shell struct {
	sys *app.System
	os  *rtos.OS
	reg *registry

	outMu sync.Mutex
	out   io.Writer

	mu      sync.Mutex
	threads map[string]*rtos.Thread
	sems    map[string]*rtos.Sem
	timers  map[string]*rtos.Timer
	events  rtos.Event
}

// New returns a shell bound to sys that writes to out.
func New(sys *app.System, out io.Writer) (*Shell, error) {
	s := &Shell{
		sys:     sys,
		os:      sys.OS,
		reg:     newRegistry(),
		out:     out,
		threads: make(map[string]*rtos.Thread),
		sems:    make(map[string]*rtos.Sem),
		timers:  make(map[string]*rtos.Timer),
	}
	if err := s.events.Init(s.os); err != nil {
		return nil, err
	}
	for _, register := range []func(*registry) error{
		registerCoreCommands,
		registerSysCommands,
		registerThreadCommands,
		registerSyncCommands,
	} {
		if err := register(s.reg); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Exec runs one command line. Blank lines are ignored.
func (s *Shell) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := s.reg.resolve(args[0])
	if !ok {
		return fmt.Errorf("%s: %w", args[0], ErrUnknownCommand)
	}
	return cmd.Run(s, args[1:])
}

// Complete returns the command names that start with prefix.
func (s *Shell) Complete(prefix string) []string { return s.reg.matches(prefix) }

// Close releases every thread and deletes every object created through the shell.
func (s *Shell) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.threads {
		s.os.ThreadRelease(&t)
		delete(s.threads, name)
	}
	for name, sem := range s.sems {
		_ = s.os.SemDelete(&sem)
		delete(s.sems, name)
	}
	for name, tm := range s.timers {
		_ = s.os.TimerDelete(&tm)
		delete(s.timers, name)
	}
	s.events.Clear(^uint32(0))
}

func (s *Shell) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) thread(name string) (*rtos.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[name]
	if !ok {
		return nil, fmt.Errorf("no thread %q", name)
	}
	return t, nil
}

func (s *Shell) threadNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.threads))
	for name := range s.threads {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
