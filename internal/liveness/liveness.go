//go:build linux || darwin

package liveness

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"attyvo/internal/naming"
	"attyvo/internal/pidfile"
	"attyvo/internal/procinfo"
	"attyvo/internal/registry"
)

var (
	// ErrUnknownDaemon reports a name with no PID file.
	ErrUnknownDaemon = errors.New("unknown daemon")
	// ErrCorruptState reports a PID file whose content cannot be parsed.
	ErrCorruptState = errors.New("corrupt daemon state")
)

// Status is the outcome of probing one daemon.
type Status struct {
	Name    string
	PID     int
	Running bool
	// Reused is set when the PID answers the null signal but belongs to a
	// process started after the daemon was recorded.
	Reused bool
}

// Probe checks daemon liveness from the PID file and metadata record.
type Probe struct {
	scheme   naming.Scheme
	registry *registry.Registry
}

// New returns a probe over scheme.
func New(scheme naming.Scheme, reg *registry.Registry) *Probe {
	if reg == nil {
		reg = registry.New(scheme)
	}
	return &Probe{scheme: scheme, registry: reg}
}

// ReadPID returns the PID recorded for name.
func (p *Probe) ReadPID(name string) (int, error) {
	paths, err := p.scheme.Paths(name)
	if err != nil {
		return 0, err
	}
	pid, err := pidfile.Read(paths.PID)
	switch {
	case err == nil:
		return pid, nil
	case errors.Is(err, os.ErrNotExist):
		return 0, fmt.Errorf("%w: %s", ErrUnknownDaemon, name)
	case errors.Is(err, pidfile.ErrInvalidPID):
		return 0, fmt.Errorf("%w: %s: %w", ErrCorruptState, name, err)
	default:
		return 0, fmt.Errorf("read pid file for %s: %w", name, err)
	}
}

// Check probes name. The PID-file existence and parse failures are returned as
// errors; a dead or reused PID is reported through Status.Running.
func (p *Probe) Check(ctx context.Context, name string) (Status, error) {
	pid, err := p.ReadPID(name)
	if err != nil {
		return Status{Name: name}, err
	}
	status := Status{Name: name, PID: pid}
	if !SignalZero(pid) {
		return status, nil
	}
	if p.fingerprintMismatch(ctx, name, pid) {
		status.Reused = true
		return status, nil
	}
	status.Running = true
	return status, nil
}

// IsRunning reports whether name's recorded process is alive.
func (p *Probe) IsRunning(ctx context.Context, name string) (bool, error) {
	status, err := p.Check(ctx, name)
	if err != nil {
		return false, err
	}
	return status.Running, nil
}

// fingerprintMismatch compares the recorded start time with the live process.
// Without a usable record the null-signal result stands.
func (p *Probe) fingerprintMismatch(ctx context.Context, name string, pid int) bool {
	rec, err := p.registry.LoadRecord(name)
	if err != nil || rec.SupervisorPID != pid || rec.StartTime == 0 {
		return false
	}
	current, err := procinfo.Fingerprint(ctx, pid)
	if err != nil {
		return true
	}
	return current != rec.StartTime
}

// SignalZero delivers the null signal to pid. Any error, including EPERM for a
// process owned by someone else, counts as not running.
func SignalZero(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}
