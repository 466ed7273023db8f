package shell

import (
	"errors"
	"fmt"
	"strings"
)

func registerCoreCommands(r *registry) error {
	return r.registerAll([]command{
		{Name: "help", Aliases: []string{"?"}, Usage: "help [cmd]", Desc: "List commands or show command usage.", Run: cmdHelp},
		{Name: "echo", Usage: "echo [args...]", Desc: "Print arguments.", Run: cmdEcho},
		{Name: "exit", Aliases: []string{"quit"}, Usage: "exit", Desc: "Leave the shell.", Run: cmdExit},
	})
}

func cmdHelp(s *Shell, args []string) error {
	if len(args) > 1 {
		return errors.New("usage: help [cmd]")
	}
	if len(args) == 1 {
		cmd, ok := s.reg.resolve(args[0])
		if !ok {
			return fmt.Errorf("help: %s: %w", args[0], ErrUnknownCommand)
		}
		s.printf("usage: %s\n%s\n", cmd.Usage, cmd.Desc)
		if len(cmd.Aliases) > 0 {
			s.printf("aliases: %s\n", strings.Join(cmd.Aliases, ", "))
		}
		return nil
	}
	for _, name := range s.reg.names() {
		cmd, _ := s.reg.resolve(name)
		s.printf("%-10s %s\n", name, cmd.Desc)
	}
	return nil
}

func cmdEcho(s *Shell, args []string) error {
	s.printf("%s\n", strings.Join(args, " "))
	return nil
}

func cmdExit(_ *Shell, _ []string) error { return ErrExit }
