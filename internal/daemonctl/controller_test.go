//go:build linux || darwin

package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"attyvo/internal/config"
	"attyvo/internal/daemonctl"
	"attyvo/internal/daemonrun"
	"attyvo/internal/fifo"
	"attyvo/internal/launcher"
	"attyvo/internal/liveness"
	"attyvo/internal/logging"
	"attyvo/internal/naming"
	"attyvo/internal/pidfile"
	"attyvo/internal/testsupport"
)

// TestMain lets the test binary act as the detach and supervisor stages, the
// way the attyvo binary does through its hidden supervise command.
func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == launcher.SuperviseCommand {
		os.Exit(daemonrun.Main(os.Args[2:]))
	}
	os.Exit(m.Run())
}

func newController(t *testing.T, opts ...testsupport.ConfigOption) (*daemonctl.Controller, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	return daemonctl.New(cfg, logging.NewNop()), cfg
}

func mustCreate(t *testing.T, ctl *daemonctl.Controller, name, command string, args ...string) daemonctl.Status {
	t.Helper()
	status, err := ctl.Create(context.Background(), name, command, args)
	if err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}
	t.Cleanup(func() {
		err := ctl.Kill(context.Background(), name)
		if err != nil && !errors.Is(err, daemonctl.ErrUnknownDaemon) {
			t.Errorf("cleanup kill %s: %v", name, err)
		}
	})
	return status
}

func readStdoutUntil(t *testing.T, ctl *daemonctl.Controller, name, want string) string {
	t.Helper()
	var got strings.Builder
	testsupport.Eventually(t, 5*time.Second, "stdout containing "+strconv.Quote(want), func() bool {
		out, err := ctl.ReadStdout(context.Background(), name)
		if err != nil {
			t.Fatalf("ReadStdout: %v", err)
		}
		got.WriteString(out)
		return strings.Contains(got.String(), want)
	})
	return got.String()
}

func pathsFor(t *testing.T, cfg *config.Config, name string) naming.Paths {
	t.Helper()
	paths, err := naming.New(cfg.Paths.BaseDir).Paths(name)
	if err != nil {
		t.Fatalf("paths: %v", err)
	}
	return paths
}

func assertGone(t *testing.T, paths naming.Paths) {
	t.Helper()
	for _, path := range paths.All() {
		if _, err := os.Lstat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s should be removed (err=%v)", path, err)
		}
	}
}

func TestCatRoundTrip(t *testing.T) {
	ctl, cfg := newController(t)
	ctx := context.Background()

	status := mustCreate(t, ctl, "t1", "cat")
	if !status.Running || status.PID <= 0 || status.ChildPID <= 0 {
		t.Fatalf("unexpected status after create: %+v", status)
	}
	if status.LaunchID == "" || status.CreatedAt.IsZero() {
		t.Fatalf("metadata record not merged: %+v", status)
	}
	if filepath.Base(status.Command) != "cat" {
		t.Fatalf("Command = %q, want resolved cat", status.Command)
	}

	names, err := ctl.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Contains(names, "t1") {
		t.Fatalf("List = %v, want t1", names)
	}

	paths := pathsFor(t, cfg, "t1")
	info, err := os.Lstat(paths.Stdin)
	if err != nil {
		t.Fatalf("stat stdin fifo: %v", err)
	}
	if info.Mode()&os.ModeNamedPipe == 0 || info.Mode().Perm() != 0o777 {
		t.Fatalf("stdin fifo mode = %v", info.Mode())
	}

	if err := ctl.Write(ctx, "t1", "abc"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out := readStdoutUntil(t, ctl, "t1", "abc"); !strings.Contains(out, "abc\n") {
		t.Fatalf("expected newline-terminated echo, got %q", out)
	}

	if err := ctl.Kill(ctx, "t1"); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	assertGone(t, paths)

	names, err = ctl.List(ctx)
	if err != nil {
		t.Fatalf("List after kill: %v", err)
	}
	if slices.Contains(names, "t1") {
		t.Fatalf("List after kill = %v", names)
	}
	if err := ctl.Write(ctx, "t1", "again"); !errors.Is(err, daemonctl.ErrUnknownDaemon) {
		t.Fatalf("Write after kill: err = %v, want ErrUnknownDaemon", err)
	}
	if _, err := ctl.ReadStdout(ctx, "t1"); !errors.Is(err, daemonctl.ErrUnknownDaemon) {
		t.Fatalf("ReadStdout after kill: err = %v, want ErrUnknownDaemon", err)
	}
}

func TestEmptyReadsReturnImmediately(t *testing.T) {
	ctl, _ := newController(t)
	ctx := context.Background()
	mustCreate(t, ctl, "quiet", "cat")

	for label, read := range map[string]func(context.Context, string) (string, error){
		"stdout": ctl.ReadStdout,
		"stderr": ctl.ReadStderr,
	} {
		start := time.Now()
		out, err := read(ctx, "quiet")
		elapsed := time.Since(start)
		if err != nil {
			t.Fatalf("%s read: %v", label, err)
		}
		if out != "" {
			t.Fatalf("%s read = %q, want empty", label, out)
		}
		if elapsed > time.Second {
			t.Fatalf("%s read took %s on an empty channel", label, elapsed)
		}
	}
}

func TestStderrIsCaptured(t *testing.T) {
	ctl, _ := newController(t, testsupport.WithScripts(map[string]string{
		"complain": `while read line; do echo "err:$line" >&2; done`,
	}))
	ctx := context.Background()
	mustCreate(t, ctl, "noisy", "complain")

	if err := ctl.Write(ctx, "noisy", "boom"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var got strings.Builder
	testsupport.Eventually(t, 5*time.Second, "stderr output", func() bool {
		out, err := ctl.ReadStderr(ctx, "noisy")
		if err != nil {
			t.Fatalf("ReadStderr: %v", err)
		}
		got.WriteString(out)
		return strings.Contains(got.String(), "err:boom")
	})
	if out, err := ctl.ReadStdout(ctx, "noisy"); err != nil || out != "" {
		t.Fatalf("stdout should stay empty, got %q (%v)", out, err)
	}
}

func TestTerminalGeometry(t *testing.T) {
	ctl, _ := newController(t, testsupport.WithTerminal(30, 100), testsupport.WithScripts(map[string]string{
		"geometry": "stty size </dev/tty\nexec cat",
	}))
	mustCreate(t, ctl, "geo", "geometry")
	readStdoutUntil(t, ctl, "geo", "30 100")
}

func TestKillRightAfterCreateStopsCommand(t *testing.T) {
	ctl, cfg := newController(t)
	ctx := context.Background()

	for i := range 5 {
		name := "race" + strconv.Itoa(i)
		status, err := ctl.Create(ctx, name, "cat", nil)
		if err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
		if err := ctl.Kill(ctx, name); err != nil {
			t.Fatalf("Kill(%s): %v", name, err)
		}
		assertGone(t, pathsFor(t, cfg, name))
		testsupport.Eventually(t, 5*time.Second, name+" command to exit", func() bool {
			return !liveness.SignalZero(status.ChildPID)
		})
	}
}

func TestKillUnknownMutatesNothing(t *testing.T) {
	ctl, cfg := newController(t)
	if err := os.MkdirAll(cfg.Paths.BaseDir, 0o755); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(cfg.Paths.BaseDir, "ghost_stdin")
	if err := os.WriteFile(keep, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ctl.Kill(context.Background(), "ghost"); !errors.Is(err, daemonctl.ErrUnknownDaemon) {
		t.Fatalf("Kill(ghost) err = %v, want ErrUnknownDaemon", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("Kill of an unknown daemon must not remove files: %v", err)
	}
}

func TestKillCorruptPIDMutatesNothing(t *testing.T) {
	ctl, cfg := newController(t)
	paths := pathsFor(t, cfg, "broken")
	if err := fifo.Create(paths, cfg.Paths.BaseDir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths.PID, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ctl.Kill(context.Background(), "broken"); !errors.Is(err, daemonctl.ErrCorruptState) {
		t.Fatalf("Kill err = %v, want ErrCorruptState", err)
	}
	for _, path := range append(paths.FIFOs(), paths.PID) {
		if _, err := os.Lstat(path); err != nil {
			t.Fatalf("%s must survive a corrupt kill: %v", path, err)
		}
	}

	statuses, err := ctl.Statuses(context.Background())
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if len(statuses) != 1 || statuses[0].State() != "corrupt" {
		t.Fatalf("Statuses = %+v, want one corrupt entry", statuses)
	}
}

func TestKillAllCleansStaleEntries(t *testing.T) {
	ctl, cfg := newController(t)
	ctx := context.Background()
	mustCreate(t, ctl, "a", "cat")

	stale := pathsFor(t, cfg, "b")
	if err := fifo.Create(stale, cfg.Paths.BaseDir); err != nil {
		t.Fatal(err)
	}
	pid := testsupport.ReapedPID(t)
	if err := os.WriteFile(stale.PID, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ctl.Write(ctx, "b", "hello"); !errors.Is(err, daemonctl.ErrNotRunning) {
		t.Fatalf("Write to stale daemon: err = %v, want ErrNotRunning", err)
	}

	result, err := ctl.KillAll(ctx)
	if err != nil {
		t.Fatalf("KillAll: %v", err)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("unexpected failures: %+v", result.Failed)
	}
	if !slices.Equal(result.Killed, []string{"a", "b"}) {
		t.Fatalf("Killed = %v, want [a b]", result.Killed)
	}
	assertGone(t, pathsFor(t, cfg, "a"))
	assertGone(t, stale)

	names, err := ctl.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("List after kill-all = %v", names)
	}
}

func TestCreateCommandNotFound(t *testing.T) {
	ctl, cfg := newController(t)
	_, err := ctl.Create(context.Background(), "missing", "clearly-not-a-real-command", nil)
	if !errors.Is(err, daemonctl.ErrCommandNotFound) {
		t.Fatalf("Create err = %v, want ErrCommandNotFound", err)
	}
	if _, err := os.Stat(pathsFor(t, cfg, "missing").PID); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no pid file expected after a failed create (err=%v)", err)
	}
}

func TestCreateReportsExecFailureFromSupervisor(t *testing.T) {
	ctl, cfg := newController(t, testsupport.WithSpawnTimeout(10))
	// Found by the lookup in create, but exec fails inside the supervisor.
	script := filepath.Join(t.TempDir(), "broken")
	if err := os.WriteFile(script, []byte("#!/nonexistent/interpreter\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	_, err := ctl.Create(context.Background(), "broken", script, nil)
	if !errors.Is(err, daemonctl.ErrCommandNotFound) {
		t.Fatalf("Create err = %v, want ErrCommandNotFound", err)
	}
	assertGone(t, pathsFor(t, cfg, "broken"))
}

func TestCreateRejectsLiveName(t *testing.T) {
	ctl, _ := newController(t)
	first := mustCreate(t, ctl, "dup", "cat")

	if _, err := ctl.Create(context.Background(), "dup", "cat", nil); !errors.Is(err, daemonctl.ErrAlreadyRunning) {
		t.Fatalf("second Create err = %v, want ErrAlreadyRunning", err)
	}
	status, err := ctl.Status(context.Background(), "dup")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.PID != first.PID || !status.Running {
		t.Fatalf("original daemon disturbed: %+v vs %+v", status, first)
	}
}

func TestCreateRejectsLockedPIDFile(t *testing.T) {
	ctl, cfg := newController(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	paths := pathsFor(t, cfg, "held")
	// A dead PID under a held lock looks like a supervisor the null signal
	// cannot reach.
	lock, err := pidfile.Acquire(paths.PID, testsupport.ReapedPID(t))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	if _, err := ctl.Create(context.Background(), "held", "cat", nil); !errors.Is(err, daemonctl.ErrAlreadyRunning) {
		t.Fatalf("Create err = %v, want ErrAlreadyRunning", err)
	}
	if _, err := os.Lstat(paths.Stdin); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no fifo expected after a rejected create (err=%v)", err)
	}
}

func TestStatusRecoversCommandWithoutRecord(t *testing.T) {
	ctl, cfg := newController(t)
	mustCreate(t, ctl, "bare", "sh", "-c", "exec cat")
	if err := os.Remove(pathsFor(t, cfg, "bare").Meta); err != nil {
		t.Fatalf("remove record: %v", err)
	}

	status, err := ctl.Status(context.Background(), "bare")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if filepath.Base(status.Command) != "sh" || !slices.Equal(status.Args, []string{"-c", "exec cat"}) {
		t.Fatalf("command not recovered: %q %q", status.Command, status.Args)
	}
	if status.LaunchID != "" {
		t.Fatalf("LaunchID = %q without a record", status.LaunchID)
	}
}

func TestCreateRejectsTraversal(t *testing.T) {
	ctl, _ := newController(t)
	for _, name := range []string{"../escape", "a/b", ""} {
		if _, err := ctl.Create(context.Background(), name, "cat", nil); !errors.Is(err, daemonctl.ErrInvalidName) {
			t.Fatalf("Create(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestExitedCommandLeavesRecord(t *testing.T) {
	ctl, cfg := newController(t)
	mustCreate(t, ctl, "brief", "sh", "-c", "sleep 0.2")

	logPath := filepath.Join(cfg.Paths.LogDir, "brief.log")
	testsupport.Eventually(t, 5*time.Second, "supervisor to log the command exit", func() bool {
		data, err := os.ReadFile(logPath)
		return err == nil && strings.Contains(string(data), "command exited")
	})

	names, err := ctl.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Contains(names, "brief") {
		t.Fatalf("a daemon that exited on its own must stay listed until killed, got %v", names)
	}
	if err := ctl.Kill(context.Background(), "brief"); err != nil {
		t.Fatalf("Kill of exited daemon: %v", err)
	}
	assertGone(t, pathsFor(t, cfg, "brief"))
}
