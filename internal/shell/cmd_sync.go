package shell

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"osal/rtos"
)

func registerSyncCommands(r *registry) error {
	return r.registerAll([]command{
		{Name: "sem", Usage: "sem <name> new [count] | wait [ticks] | signal | reset [count] | count | del", Desc: "Operate on a named counting semaphore.", Run: cmdSem},
		{Name: "timer", Usage: "timer [<name> <ticks> | <name> stop | <name> del]", Desc: "Arm, stop or list named one-shot timers.", Run: cmdTimer},
		{Name: "event", Usage: "event post <mask> | clear <mask> | wait <mask> [any|all] [ticks] | show", Desc: "Operate on the shell event group.", Run: cmdEvent},
		{Name: "tls", Usage: "tls alloc | free <idx> | set <idx> <val> | get <idx>", Desc: "Thread-local storage of the shell thread.", Run: cmdTLS},
	})
}

func parseCount(arg string) (int64, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", arg)
	}
	return n, nil
}

func parseMask(arg string) (uint32, error) {
	n, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mask %q", arg)
	}
	return uint32(n), nil
}

func (s *Shell) sem(name string) (*rtos.Sem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.sems[name]
	if !ok {
		return nil, fmt.Errorf("no semaphore %q", name)
	}
	return sem, nil
}

func cmdSem(s *Shell, args []string) error {
	const usage = "usage: sem <name> new [count] | wait [ticks] | signal | reset [count] | count | del"
	if len(args) < 2 {
		return errors.New(usage)
	}
	name, op, rest := args[0], args[1], args[2:]

	if op == "new" {
		var cnt int64
		if len(rest) == 1 {
			var err error
			if cnt, err = parseCount(rest[0]); err != nil {
				return fmt.Errorf("sem: %w", err)
			}
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.sems[name]; ok {
			return fmt.Errorf("sem: %q exists", name)
		}
		sem, err := s.os.SemCreate(cnt)
		if err != nil {
			return fmt.Errorf("sem: %w", err)
		}
		s.sems[name] = sem
		return nil
	}

	if op == "del" {
		s.mu.Lock()
		sem, ok := s.sems[name]
		delete(s.sems, name)
		s.mu.Unlock()
		if !ok {
			return fmt.Errorf("sem: no semaphore %q", name)
		}
		return s.os.SemDelete(&sem)
	}

	sem, err := s.sem(name)
	if err != nil {
		return fmt.Errorf("sem: %w", err)
	}
	switch op {
	case "wait":
		ticks := rtos.Infinite
		if len(rest) == 1 {
			if ticks, err = parseTicks(rest[0]); err != nil {
				return fmt.Errorf("sem: %w", err)
			}
		}
		if err := sem.WaitTimeout(ticks); err != nil {
			return fmt.Errorf("sem: %w", err)
		}
	case "signal":
		sem.Signal()
	case "reset":
		var cnt int64
		if len(rest) == 1 {
			if cnt, err = parseCount(rest[0]); err != nil {
				return fmt.Errorf("sem: %w", err)
			}
		}
		if err := sem.Reset(cnt); err != nil {
			return fmt.Errorf("sem: %w", err)
		}
	case "count":
		s.printf("%d\n", sem.Count())
	default:
		return errors.New(usage)
	}
	return nil
}

func (s *Shell) expired(arg any) {
	s.printf("timer %s: expired at %d\n", arg.(string), s.os.SysTicks())
}

func cmdTimer(s *Shell, args []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(args) == 0 {
		names := make([]string, 0, len(s.timers))
		for name := range s.timers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			tm := s.timers[name]
			if tm.IsSet() {
				s.printf("%-12s %d ticks left\n", name, tm.Remaining())
			} else {
				s.printf("%-12s idle\n", name)
			}
		}
		return nil
	}
	if len(args) != 2 {
		return errors.New("usage: timer [<name> <ticks> | <name> stop | <name> del]")
	}

	name := args[0]
	tm, ok := s.timers[name]
	switch args[1] {
	case "stop":
		if !ok {
			return fmt.Errorf("timer: no timer %q", name)
		}
		tm.Reset()
		return nil
	case "del":
		if !ok {
			return fmt.Errorf("timer: no timer %q", name)
		}
		delete(s.timers, name)
		return s.os.TimerDelete(&tm)
	}

	ticks, err := parseTicks(args[1])
	if err != nil {
		return fmt.Errorf("timer: %w", err)
	}
	if !ok {
		if tm, err = s.os.TimerCreate(s.expired, name); err != nil {
			return fmt.Errorf("timer: %w", err)
		}
		s.timers[name] = tm
	}
	tm.Set(ticks)
	return nil
}

func cmdEvent(s *Shell, args []string) error {
	const usage = "usage: event post <mask> | clear <mask> | wait <mask> [any|all] [ticks] | show"
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "show":
		s.printf("%#x\n", s.events.Events())
		return nil
	case "post", "clear":
		if len(args) != 2 {
			return errors.New(usage)
		}
		mask, err := parseMask(args[1])
		if err != nil {
			return fmt.Errorf("event: %w", err)
		}
		if args[0] == "post" {
			s.events.Signal(mask)
		} else {
			s.events.Clear(mask)
		}
		return nil
	case "wait":
		if len(args) < 2 || len(args) > 4 {
			return errors.New(usage)
		}
		mask, err := parseMask(args[1])
		if err != nil {
			return fmt.Errorf("event: %w", err)
		}
		all := false
		ticks := rtos.Infinite
		for _, a := range args[2:] {
			switch a {
			case "any":
			case "all":
				all = true
			default:
				if ticks, err = parseTicks(a); err != nil {
					return fmt.Errorf("event: %w", err)
				}
			}
		}
		got, err := s.events.WaitTimeout(mask, mask, all, ticks)
		if err != nil {
			return fmt.Errorf("event: %w", err)
		}
		s.printf("%#x\n", got)
		return nil
	default:
		return errors.New(usage)
	}
}

func cmdTLS(s *Shell, args []string) error {
	const usage = "usage: tls alloc | free <idx> | set <idx> <val> | get <idx>"
	if len(args) == 0 {
		return errors.New(usage)
	}
	if args[0] == "alloc" {
		idx, err := s.os.TLSAlloc()
		if err != nil {
			return fmt.Errorf("tls: %w", err)
		}
		s.printf("%d\n", idx)
		return nil
	}
	if len(args) < 2 {
		return errors.New(usage)
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("tls: invalid index %q", args[1])
	}
	switch {
	case args[0] == "free" && len(args) == 2:
		s.os.TLSFree(idx)
	case args[0] == "set" && len(args) == 3:
		if err := s.os.TLSSet(idx, args[2]); err != nil {
			return fmt.Errorf("tls: %w", err)
		}
	case args[0] == "get" && len(args) == 2:
		if v := s.os.TLSGet(idx); v != nil {
			s.printf("%v\n", v)
		} else {
			s.printf("<unset>\n")
		}
	default:
		return errors.New(usage)
	}
	return nil
}
