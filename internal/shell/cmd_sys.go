package shell

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"osal/internal/buildinfo"
	"osal/internal/heap"
)

func registerSysCommands(r *registry) error {
	return r.registerAll([]command{
		{Name: "ticks", Usage: "ticks", Desc: "Show current kernel tick counter.", Run: cmdTicks},
		{Name: "uptime", Usage: "uptime", Desc: "Show uptime (ticks and seconds).", Run: cmdUptime},
		{Name: "sleep", Usage: "sleep <ms>", Desc: "Sleep the shell thread for ms milliseconds.", Run: cmdSleep},
		{Name: "version", Usage: "version", Desc: "Show build version.", Run: cmdVersion},
		{Name: "uname", Usage: "uname [-a]", Desc: "Show system information.", Run: cmdUname},
		{Name: "free", Usage: "free [-h]", Desc: "Show heap usage per tag.", Run: cmdFree},
	})
}

func cmdTicks(s *Shell, _ []string) error {
	s.printf("%d\n", s.os.SysTicks())
	return nil
}

func cmdUptime(s *Shell, _ []string) error {
	ticks := s.os.SysTicks()
	hz := s.os.SysTickFreq()
	if hz == 0 {
		hz = 1
	}
	s.printf("up %d ticks (%d.%03ds)\n", ticks, ticks/hz, (ticks%hz)*1000/hz)
	return nil
}

func cmdSleep(s *Shell, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: sleep <ms>")
	}
	ms, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return errors.New("sleep: invalid ms")
	}
	s.os.ThreadSleep(uint32(ms))
	return nil
}

func cmdVersion(s *Shell, _ []string) error {
	s.printf("osal %s\n", buildinfo.String())
	return nil
}

func cmdUname(s *Shell, args []string) error {
	switch {
	case len(args) == 0:
		s.printf("%s %s\n", runtime.GOOS, runtime.GOARCH)
	case len(args) == 1 && args[0] == "-a":
		s.printf("osal %s %s %d Hz %s/%s\n", buildinfo.Short(), buildinfo.Commit, s.os.SysTickFreq(), runtime.GOOS, runtime.GOARCH)
	default:
		return errors.New("usage: uname [-a]")
	}
	return nil
}

func cmdFree(s *Shell, args []string) error {
	human := false
	switch {
	case len(args) == 1 && args[0] == "-h":
		human = true
	case len(args) != 0:
		return errors.New("usage: free [-h]")
	}

	fmtVal := func(v int) string {
		if human {
			return fmtBytes(uint64(v))
		}
		return strconv.Itoa(v)
	}

	s.printf("%-6s %10s %10s %8s %8s\n", "tag", "used", "peak", "allocs", "frees")
	for _, tag := range []heap.Tag{heap.TagOS, heap.TagAux, heap.TagUser} {
		st := s.sys.Heap.Stats(tag)
		s.printf("%-6s %10s %10s %8d %8d\n", tag, fmtVal(st.InUse), fmtVal(st.Peak), st.Allocs, st.Frees)
	}
	s.printf("%-6s %10s\n", "total", fmtVal(s.sys.Heap.InUse()))
	return nil
}

func fmtBytes(v uint64) string {
	const (
		kib = 1024
		mib = 1024 * kib
	)
	switch {
	case v >= mib:
		return fmt.Sprintf("%.1fMiB", float64(v)/float64(mib))
	case v >= kib:
		return fmt.Sprintf("%.1fKiB", float64(v)/float64(kib))
	default:
		return fmt.Sprintf("%dB", v)
	}
}
