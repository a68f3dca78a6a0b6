//go:build linux || darwin

package liveness

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"testing"

	"attyvo/internal/naming"
	"attyvo/internal/procinfo"
	"attyvo/internal/registry"
)

func newProbe(t *testing.T) (*Probe, naming.Scheme, *registry.Registry) {
	t.Helper()
	scheme := naming.New(t.TempDir())
	reg := registry.New(scheme)
	return New(scheme, reg), scheme, reg
}

func writePID(t *testing.T, scheme naming.Scheme, name, content string) {
	t.Helper()
	paths, err := scheme.Paths(name)
	if err != nil {
		t.Fatalf("paths: %v", err)
	}
	if err := os.WriteFile(paths.PID, []byte(content), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
}

// reapedPID returns the PID of a process that has already exited and been waited on.
func reapedPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot run true: %v", err)
	}
	return cmd.ProcessState.Pid()
}

func TestCheckLiveProcess(t *testing.T) {
	probe, scheme, _ := newProbe(t)
	writePID(t, scheme, "self", strconv.Itoa(os.Getpid())+"\n")

	running, err := probe.IsRunning(context.Background(), "self")
	if err != nil {
		t.Fatalf("IsRunning: %v", err)
	}
	if !running {
		t.Fatal("expected current process to be reported running")
	}
}

func TestCheckDeadProcess(t *testing.T) {
	probe, scheme, _ := newProbe(t)
	writePID(t, scheme, "gone", strconv.Itoa(reapedPID(t)))

	status, err := probe.Check(context.Background(), "gone")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status.Running {
		t.Fatalf("expected exited process to be not running, got %#v", status)
	}
}

func TestCheckUnknownAndCorrupt(t *testing.T) {
	probe, scheme, _ := newProbe(t)
	ctx := context.Background()

	if _, err := probe.IsRunning(ctx, "missing"); !errors.Is(err, ErrUnknownDaemon) {
		t.Fatalf("missing: err = %v, want ErrUnknownDaemon", err)
	}

	writePID(t, scheme, "broken", "pid=12")
	if _, err := probe.IsRunning(ctx, "broken"); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("corrupt: err = %v, want ErrCorruptState", err)
	}
}

func TestCheckDetectsReusedPID(t *testing.T) {
	probe, scheme, reg := newProbe(t)
	ctx := context.Background()
	pid := os.Getpid()
	writePID(t, scheme, "reused", strconv.Itoa(pid))

	actual, err := procinfo.Fingerprint(ctx, pid)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if err := reg.SaveRecord(registry.Record{Name: "reused", SupervisorPID: pid, StartTime: actual - 60_000}); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	status, err := probe.Check(ctx, "reused")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status.Running || !status.Reused {
		t.Fatalf("expected reused pid to be reported, got %#v", status)
	}

	if err := reg.SaveRecord(registry.Record{Name: "reused", SupervisorPID: pid, StartTime: actual}); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	status, err = probe.Check(ctx, "reused")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !status.Running {
		t.Fatalf("expected matching fingerprint to be running, got %#v", status)
	}
}

func TestSignalZeroRejectsNonPositive(t *testing.T) {
	if SignalZero(0) || SignalZero(-1) {
		t.Fatal("non-positive pids must never be reported alive")
	}
}
