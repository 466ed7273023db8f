package shell

import (
	"fmt"
	"sort"
	"strings"
)

type cmdFunc func(s *Shell, args []string) error

type command struct {
	Name    string
	Aliases []string
	Usage   string
	Desc    string
	Run     cmdFunc
}

type registry struct {
	primary map[string]command
	lookup  map[string]string
}

func newRegistry() *registry {
	return &registry{
		primary: make(map[string]command),
		lookup:  make(map[string]string),
	}
}

func (r *registry) register(cmd command) error {
	cmd.Name = strings.TrimSpace(cmd.Name)
	if cmd.Name == "" {
		return fmt.Errorf("shell registry: empty command name")
	}
	if cmd.Run == nil {
		return fmt.Errorf("shell registry: %q has no handler", cmd.Name)
	}
	if _, ok := r.lookup[cmd.Name]; ok {
		return fmt.Errorf("shell registry: duplicate command %q", cmd.Name)
	}

	var aliases []string
	for _, alias := range cmd.Aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		if _, ok := r.lookup[alias]; ok || alias == cmd.Name {
			return fmt.Errorf("shell registry: duplicate alias %q", alias)
		}
		aliases = append(aliases, alias)
	}

	cmd.Aliases = aliases
	r.primary[cmd.Name] = cmd
	r.lookup[cmd.Name] = cmd.Name
	for _, alias := range aliases {
		r.lookup[alias] = cmd.Name
	}
	return nil
}

func (r *registry) registerAll(cmds []command) error {
	for _, cmd := range cmds {
		if err := r.register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *registry) resolve(name string) (command, bool) {
	primary, ok := r.lookup[strings.TrimSpace(name)]
	if !ok {
		return command{}, false
	}
	cmd, ok := r.primary[primary]
	return cmd, ok
}

func (r *registry) names() []string {
	out := make([]string, 0, len(r.primary))
	for name := range r.primary {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// matches returns the command names and aliases starting with prefix.
func (r *registry) matches(prefix string) []string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	var out []string
	for name := range r.lookup {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
