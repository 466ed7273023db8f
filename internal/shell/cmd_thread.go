package shell

import (
	"errors"
	"fmt"
	"strconv"

	"osal/rtos"
)

const defaultStack = 2048

func registerThreadCommands(r *registry) error {
	return r.registerAll([]command{
		{Name: "spawn", Usage: "spawn <name> [prio] [stack]", Desc: "Start a thread that prints its notifications; a negative message stops it.", Run: cmdSpawn},
		{Name: "ps", Usage: "ps", Desc: "List shell threads.", Run: cmdPs},
		{Name: "notify", Usage: "notify <name|self> <msg>", Desc: "Post a message to a thread mailbox.", Run: cmdNotify},
		{Name: "wait", Usage: "wait [ticks]", Desc: "Wait for a message to the shell thread.", Run: cmdWait},
		{Name: "join", Usage: "join <name> [ticks]", Desc: "Wait for a thread to terminate.", Run: cmdJoin},
		{Name: "kill", Aliases: []string{"release"}, Usage: "kill <name>", Desc: "Terminate and release a thread.", Run: cmdKill},
		{Name: "prio", Usage: "prio <name|self> [prio]", Desc: "Show or change a thread priority.", Run: cmdPrio},
	})
}

func parseTicks(arg string) (rtos.Ticks, error) {
	switch arg {
	case "inf", "forever":
		return rtos.Infinite, nil
	}
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid ticks %q", arg)
	}
	return rtos.Ticks(n), nil
}

func (s *Shell) listener(arg any) {
	name := arg.(string)
	for {
		msg, err := s.os.ThreadWait(rtos.Infinite)
		if err != nil {
			s.printf("%s: wait: %v\n", name, err)
			return
		}
		if msg < 0 {
			s.printf("%s: exit\n", name)
			return
		}
		s.printf("%s: got %d\n", name, msg)
	}
}

func cmdSpawn(s *Shell, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return errors.New("usage: spawn <name> [prio] [stack]")
	}
	name := args[0]
	prio := rtos.Priority(s.os.MaxPriority() / 2)
	stack := defaultStack
	if len(args) > 1 {
		p, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.New("spawn: invalid prio")
		}
		prio = rtos.Priority(p)
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return errors.New("spawn: invalid stack")
		}
		stack = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[name]; ok {
		return fmt.Errorf("spawn: %q exists", name)
	}
	t, err := s.os.ThreadCreate(stack, prio, s.listener, name, name)
	if err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	s.threads[name] = t
	return nil
}

func cmdPs(s *Shell, _ []string) error {
	s.printf("%-12s %4s %-10s %6s %5s %s\n", "NAME", "PRIO", "STATE", "STACK", "JOINS", "WS")
	for _, name := range s.threadNames() {
		t, err := s.thread(name)
		if err != nil {
			continue
		}
		prio := "-"
		if p, err := s.os.ThreadPrio(t); err == nil {
			prio = strconv.Itoa(int(p))
		}
		ws := "static"
		if t.HeapOwned() {
			ws = "heap"
		}
		s.printf("%-12s %4s %-10s %6d %5d %s\n", name, prio, t.State(), t.Layout().StackSize, t.Joins(), ws)
	}
	return nil
}

// target resolves a thread name; "self" is the shell's own thread.
func (s *Shell) target(name string) (*rtos.Thread, error) {
	if name == "self" {
		return s.os.ThreadCurrent(), nil
	}
	return s.thread(name)
}

func cmdNotify(s *Shell, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: notify <name|self> <msg>")
	}
	t, err := s.target(args[0])
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	msg, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return errors.New("notify: invalid msg")
	}
	if err := s.os.ThreadNotify(t, int32(msg)); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func cmdWait(s *Shell, args []string) error {
	ticks := rtos.Infinite
	switch len(args) {
	case 0:
	case 1:
		var err error
		if ticks, err = parseTicks(args[0]); err != nil {
			return fmt.Errorf("wait: %w", err)
		}
	default:
		return errors.New("usage: wait [ticks]")
	}
	msg, err := s.os.ThreadWait(ticks)
	if err != nil {
		return fmt.Errorf("wait: %w", err)
	}
	s.printf("%d\n", msg)
	return nil
}

func cmdJoin(s *Shell, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: join <name> [ticks]")
	}
	t, err := s.thread(args[0])
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	ticks := rtos.Infinite
	if len(args) == 2 {
		if ticks, err = parseTicks(args[1]); err != nil {
			return fmt.Errorf("join: %w", err)
		}
	}
	if err := s.os.ThreadJoinTimeout(t, ticks); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	s.printf("%s: joined\n", args[0])
	return nil
}

func cmdKill(s *Shell, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: kill <name>")
	}
	s.mu.Lock()
	t, ok := s.threads[args[0]]
	delete(s.threads, args[0])
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("kill: no thread %q", args[0])
	}
	s.os.ThreadRelease(&t)
	return nil
}

func cmdPrio(s *Shell, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: prio <name|self> [prio]")
	}
	t, err := s.target(args[0])
	if err != nil {
		return fmt.Errorf("prio: %w", err)
	}
	if len(args) == 1 {
		p, err := s.os.ThreadPrio(t)
		if err != nil {
			return fmt.Errorf("prio: %w", err)
		}
		s.printf("%d\n", p)
		return nil
	}
	p, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.New("prio: invalid prio")
	}
	old, err := s.os.ThreadSetPrio(t, rtos.Priority(p))
	if err != nil {
		return fmt.Errorf("prio: %w", err)
	}
	s.printf("%d -> %d\n", old, p)
	return nil
}
