package shell

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"osal/app"
	"osal/hal"
	"osal/internal/config"
	"osal/rtos"
)

const waitFor = 2 * time.Second

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}

func newTestShell(t *testing.T) (*Shell, *syncBuffer) {
	t.Helper()
	sys, err := app.Boot(hal.NewHost(io.Discard, 1000), app.Config{Config: config.Default()})
	require.NoError(t, err)
	sys.K.StartTicker()

	out := &syncBuffer{}
	sh, err := New(sys, out)
	require.NoError(t, err)
	t.Cleanup(func() {
		sh.Close()
		sys.Shutdown()
	})
	return sh, out
}

// run executes line and returns only what it printed.
func run(t *testing.T, sh *Shell, out *syncBuffer, line string) string {
	t.Helper()
	out.Reset()
	require.NoError(t, sh.Exec(line), line)
	return out.String()
}

func TestExecParsing(t *testing.T) {
	sh, out := newTestShell(t)

	require.NoError(t, sh.Exec(""))
	require.NoError(t, sh.Exec("   "))
	require.Equal(t, "a b c\n", run(t, sh, out, `echo "a b" c`))

	require.ErrorIs(t, sh.Exec("frobnicate"), ErrUnknownCommand)
	require.Error(t, sh.Exec(`echo "unterminated`))
	require.ErrorIs(t, sh.Exec("quit"), ErrExit)
}

func TestHelp(t *testing.T) {
	sh, out := newTestShell(t)

	list := run(t, sh, out, "help")
	for _, name := range []string{"spawn", "notify", "sem", "timer", "tls", "free"} {
		require.Contains(t, list, name+" ")
	}
	require.NotRegexp(t, `(?m)^release\s`, list, "aliases are not listed")

	usage := run(t, sh, out, "help release")
	require.Contains(t, usage, "usage: kill <name>")
	require.Contains(t, usage, "aliases: release")

	require.ErrorIs(t, sh.Exec("help nope"), ErrUnknownCommand)
}

func TestComplete(t *testing.T) {
	sh, _ := newTestShell(t)

	require.Equal(t, []string{"spawn"}, sh.Complete("sp"))
	require.Equal(t, []string{"release"}, sh.Complete("rel"))
	require.Equal(t, []string{"ticks"}, sh.Complete("tick"))
	require.Nil(t, sh.Complete(""))
}

func TestThreadLifecycle(t *testing.T) {
	sh, out := newTestShell(t)

	run(t, sh, out, "spawn worker")
	require.Error(t, sh.Exec("spawn worker"), "duplicate name")

	run(t, sh, out, "notify worker 7")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "worker: got 7")
	}, waitFor, time.Millisecond)

	ps := run(t, sh, out, "ps")
	require.Contains(t, ps, "worker")
	require.Contains(t, ps, "running")
	require.Contains(t, ps, "heap")

	run(t, sh, out, "notify worker -1")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "worker: exit")
	}, waitFor, time.Millisecond)
	require.Equal(t, "worker: joined\n", run(t, sh, out, "join worker"))
	require.Contains(t, run(t, sh, out, "ps"), "terminated")

	run(t, sh, out, "release worker")
	require.NotContains(t, run(t, sh, out, "ps"), "worker")
	require.Error(t, sh.Exec("join worker"))
	require.Zero(t, sh.sys.Heap.InUse())
}

func TestKillRunningThread(t *testing.T) {
	sh, out := newTestShell(t)

	run(t, sh, out, "spawn idle 3")
	require.ErrorIs(t, sh.Exec("join idle 5"), rtos.ErrTimedOut)
	require.Equal(t, "3\n", run(t, sh, out, "prio idle"))
	require.Equal(t, "3 -> 6\n", run(t, sh, out, "prio idle 6"))

	run(t, sh, out, "kill idle")
	require.Zero(t, sh.sys.Heap.InUse())
	require.Error(t, sh.Exec("kill idle"))
}

func TestSpawnRejectsBadStack(t *testing.T) {
	sh, _ := newTestShell(t)

	require.ErrorIs(t, sh.Exec("spawn s 1 0"), rtos.ErrBadParameter)
	require.Error(t, sh.Exec("spawn s x"))
}

func TestNotifySelf(t *testing.T) {
	sh, out := newTestShell(t)

	run(t, sh, out, "notify self 5")
	require.Equal(t, "5\n", run(t, sh, out, "wait 0"))
	require.ErrorIs(t, sh.Exec("wait 0"), rtos.ErrTimedOut)
	require.ErrorIs(t, sh.Exec("wait 3"), rtos.ErrTimedOut)
}

func TestSemCommands(t *testing.T) {
	sh, out := newTestShell(t)

	run(t, sh, out, "sem s new 1")
	require.Equal(t, "1\n", run(t, sh, out, "sem s count"))
	run(t, sh, out, "sem s wait 0")
	require.ErrorIs(t, sh.Exec("sem s wait 0"), rtos.ErrTimedOut)

	run(t, sh, out, "sem s signal")
	run(t, sh, out, "sem s signal")
	require.Equal(t, "2\n", run(t, sh, out, "sem s count"))
	run(t, sh, out, "sem s reset")
	require.Equal(t, "0\n", run(t, sh, out, "sem s count"))

	require.NotZero(t, sh.sys.Heap.InUse())
	run(t, sh, out, "sem s del")
	require.Zero(t, sh.sys.Heap.InUse())
	require.Error(t, sh.Exec("sem s count"))
}

func TestTimerCommands(t *testing.T) {
	sh, out := newTestShell(t)

	run(t, sh, out, "timer t inf")
	require.Contains(t, run(t, sh, out, "timer"), "ticks left")
	run(t, sh, out, "timer t stop")
	require.Contains(t, run(t, sh, out, "timer"), "idle")

	run(t, sh, out, "timer t 5")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "timer t: expired")
	}, waitFor, time.Millisecond)

	run(t, sh, out, "timer t del")
	require.Empty(t, run(t, sh, out, "timer"))
	require.Zero(t, sh.sys.Heap.InUse())
}

func TestEventCommands(t *testing.T) {
	sh, out := newTestShell(t)

	run(t, sh, out, "event post 0x3")
	require.Equal(t, "0x3\n", run(t, sh, out, "event show"))
	require.Equal(t, "0x1\n", run(t, sh, out, "event wait 0x1"))
	require.Equal(t, "0x2\n", run(t, sh, out, "event show"))

	require.ErrorIs(t, sh.Exec("event wait 0x3 all 2"), rtos.ErrTimedOut)
	run(t, sh, out, "event clear 0x2")
	require.Equal(t, "0x0\n", run(t, sh, out, "event show"))
	require.ErrorIs(t, sh.Exec("event wait 0"), rtos.ErrBadParameter)
}

func TestTLSCommands(t *testing.T) {
	sh, out := newTestShell(t)

	require.Equal(t, "0\n", run(t, sh, out, "tls alloc"))
	require.Equal(t, "<unset>\n", run(t, sh, out, "tls get 0"))
	run(t, sh, out, "tls set 0 hello")
	require.Equal(t, "hello\n", run(t, sh, out, "tls get 0"))
	run(t, sh, out, "tls free 0")
	require.Equal(t, "0\n", run(t, sh, out, "tls alloc"))

	require.ErrorIs(t, sh.Exec("tls set 9 x"), rtos.ErrBadParameter)
}

func TestSysCommands(t *testing.T) {
	sh, out := newTestShell(t)

	require.Regexp(t, `^\d+\n$`, run(t, sh, out, "ticks"))
	require.Regexp(t, `^up \d+ ticks \(\d+\.\d{3}s\)\n$`, run(t, sh, out, "uptime"))
	require.Contains(t, run(t, sh, out, "uname -a"), "1000 Hz")
	require.Error(t, sh.Exec("uname -x"))
	run(t, sh, out, "sleep 2")

	run(t, sh, out, "spawn w 1 4096")
	free := run(t, sh, out, "free -h")
	require.Contains(t, free, "KiB")
	require.Contains(t, free, "total")
}

func TestFmtBytes(t *testing.T) {
	for _, tc := range []struct {
		in   uint64
		want string
	}{
		{0, "0B"},
		{1023, "1023B"},
		{1024, "1.0KiB"},
		{1536, "1.5KiB"},
		{3 << 20, "3.0MiB"},
	} {
		require.Equal(t, tc.want, fmtBytes(tc.in))
	}
}
