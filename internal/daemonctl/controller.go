//go:build linux || darwin

package daemonctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"attyvo/internal/config"
	"attyvo/internal/deps"
	"attyvo/internal/fifo"
	"attyvo/internal/fileutil"
	"attyvo/internal/launcher"
	"attyvo/internal/liveness"
	"attyvo/internal/logging"
	"attyvo/internal/naming"
	"attyvo/internal/pidfile"
	"attyvo/internal/procinfo"
	"attyvo/internal/registry"
)

// Status describes one daemon as seen from its files and its process.
type Status struct {
	Name    string
	PID     int
	Running bool
	// Reused is set when the recorded PID now belongs to another process.
	Reused bool
	// Corrupt is set when the PID file cannot be parsed.
	Corrupt   bool
	ChildPID  int
	Command   string
	Args      []string
	LaunchID  string
	CreatedAt time.Time
}

// State summarises Status as a single word.
func (s Status) State() string {
	switch {
	case s.Corrupt:
		return "corrupt"
	case s.Running:
		return "running"
	case s.Reused:
		return "reused"
	default:
		return "stale"
	}
}

// KillFailure pairs a daemon name with the error that stopped its kill.
type KillFailure struct {
	Name string
	Err  error
}

// KillAllResult lists the daemons kill-all cleaned up and the ones it could not.
type KillAllResult struct {
	Killed []string
	Failed []KillFailure
}

// Controller implements the daemon lifecycle operations over one base directory.
type Controller struct {
	cfg      *config.Config
	scheme   naming.Scheme
	registry *registry.Registry
	probe    *liveness.Probe
	launcher *launcher.Launcher
	logger   *slog.Logger
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLauncher replaces the launcher used by Create.
func WithLauncher(l *launcher.Launcher) Option {
	return func(c *Controller) {
		if l != nil {
			c.launcher = l
		}
	}
}

// New returns a controller for cfg's base directory.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Controller {
	scheme := naming.New(cfg.Paths.BaseDir)
	reg := registry.New(scheme)
	c := &Controller{
		cfg:      cfg,
		scheme:   scheme,
		registry: reg,
		probe:    liveness.New(scheme, reg),
		launcher: launcher.New(cfg.SpawnTimeout()),
		logger:   logging.NewComponentLogger(logger, "daemonctl"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) daemonLogger(ctx context.Context, name string) *slog.Logger {
	return logging.WithContext(logging.WithDaemon(ctx, name), c.logger)
}

// Create launches command under name and returns once the supervisor has
// started it. The FIFOs are created before the supervisor, which then writes
// the PID file.
func (c *Controller) Create(ctx context.Context, name, command string, args []string) (Status, error) {
	paths, err := c.scheme.Paths(name)
	if err != nil {
		return Status{}, err
	}
	logger := c.daemonLogger(ctx, name)

	if running, err := c.probe.IsRunning(ctx, name); err == nil && running {
		return Status{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
	}
	// The null signal cannot see a supervisor owned by another user, but its
	// lock on the PID file is visible to everyone.
	if locked, err := pidfile.Locked(paths.PID); err == nil && locked {
		return Status{}, fmt.Errorf("%w: %s (pid file locked)", ErrAlreadyRunning, name)
	}

	resolved, err := deps.Resolve(command)
	if err != nil {
		return Status{}, err
	}

	if err := c.cfg.EnsureDirectories(); err != nil {
		return Status{}, fmt.Errorf("%w: %w", ErrChannelIO, err)
	}
	c.pruneLogs()

	if err := fifo.Create(paths, c.scheme.BaseDir); err != nil {
		return Status{}, fmt.Errorf("%w: %w", ErrChannelIO, err)
	}
	if err := fileutil.RemoveAll(paths.Meta); err != nil {
		logger.Debug("previous metadata record not removed", logging.Error(err))
	}

	childPID, err := c.launcher.Spawn(ctx, launcher.NewRequest(c.cfg, name, resolved, args))
	if err != nil {
		// An explicit failure means the supervisor is gone and has released
		// the PID file; its channels are not needed by anyone.
		if !errors.Is(err, ErrAlreadyRunning) && !errors.Is(err, launcher.ErrNoAck) {
			if rmErr := fileutil.RemoveAll(paths.FIFOs()...); rmErr != nil {
				logger.Debug("fifo cleanup after failed launch", logging.Error(rmErr))
			}
		}
		logging.ErrorWithContext(logger, "daemon launch failed", "create_failed",
			logging.Error(err),
			logging.String("command", resolved),
			logging.Duration("spawn_timeout", c.cfg.SpawnTimeout()),
		)
		return Status{}, fmt.Errorf("create %s: %w", name, err)
	}

	status, err := c.Status(ctx, name)
	if err != nil {
		return Status{}, fmt.Errorf("create %s: %w", name, err)
	}
	if status.ChildPID == 0 {
		status.ChildPID = childPID
	}
	logger.Info("daemon created",
		logging.PID(status.PID),
		logging.Int("child_pid", status.ChildPID),
		logging.String("command", resolved),
		logging.String(logging.FieldEventType, "daemon_created"),
	)
	return status, nil
}

// Write sends message followed by a newline to the daemon's stdin channel.
func (c *Controller) Write(ctx context.Context, name, message string) error {
	paths, err := c.requireRunning(ctx, name)
	if err != nil {
		return err
	}
	file, err := fifo.OpenWriter(paths.Stdin)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChannelIO, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := w.WriteString(message); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrChannelIO, name, err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrChannelIO, name, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrChannelIO, name, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close %s stdin: %w", ErrChannelIO, name, err)
	}
	return nil
}

// ReadStdout returns the bytes currently buffered on the daemon's stdout
// channel. An empty channel yields an empty string immediately.
func (c *Controller) ReadStdout(ctx context.Context, name string) (string, error) {
	paths, err := c.requireRunning(ctx, name)
	if err != nil {
		return "", err
	}
	return c.drain(name, paths.Stdout)
}

// ReadStderr is ReadStdout for the stderr channel.
func (c *Controller) ReadStderr(ctx context.Context, name string) (string, error) {
	paths, err := c.requireRunning(ctx, name)
	if err != nil {
		return "", err
	}
	return c.drain(name, paths.Stderr)
}

func (c *Controller) drain(name, path string) (string, error) {
	data, err := fifo.Drain(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrChannelIO, name, err)
	}
	return string(data), nil
}

func (c *Controller) requireRunning(ctx context.Context, name string) (naming.Paths, error) {
	paths, err := c.scheme.Paths(name)
	if err != nil {
		return naming.Paths{}, err
	}
	status, err := c.probe.Check(ctx, name)
	if err != nil {
		return naming.Paths{}, err
	}
	if !status.Running {
		return naming.Paths{}, fmt.Errorf("%w: %s (pid %d)", ErrNotRunning, name, status.PID)
	}
	return paths, nil
}

// Kill sends SIGTERM to the daemon and removes its PID file, FIFOs and
// metadata record. A daemon whose process is already gone, or whose PID now
// belongs to another process, is cleaned up without being signalled.
func (c *Controller) Kill(ctx context.Context, name string) error {
	paths, err := c.scheme.Paths(name)
	if err != nil {
		return err
	}
	status, err := c.probe.Check(ctx, name)
	if err != nil {
		return err
	}
	logger := c.daemonLogger(ctx, name)

	if status.Reused {
		logging.WarnWithContext(logger, "pid now belongs to another process; signal skipped", "stale_pid_reused",
			logging.PID(status.PID),
			logging.Alert("pid_reused"),
			logging.String(logging.FieldErrorHint, "the daemon exited earlier without being killed"),
			logging.String(logging.FieldImpact, "only the daemon files are removed"),
		)
	} else if err := unix.Kill(status.PID, unix.SIGTERM); err != nil {
		if !errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("signal %s (pid %d): %w", name, status.PID, err)
		}
		logging.WarnWithContext(logger, "daemon process already gone", "stale_pid",
			logging.PID(status.PID),
			logging.String(logging.FieldErrorHint, "the daemon exited earlier without being killed"),
			logging.String(logging.FieldImpact, "only the daemon files are removed"),
		)
	}

	if err := fileutil.RemoveAll(paths.All()...); err != nil {
		return fmt.Errorf("%w: remove files of %s: %w", ErrChannelIO, name, err)
	}
	logger.Info("daemon killed",
		logging.PID(status.PID),
		logging.Bool("signalled", status.Running),
		logging.String(logging.FieldEventType, "daemon_killed"),
	)
	return nil
}

// KillAll kills every listed daemon in turn. A failure is logged and recorded
// without stopping the batch; only a failure to list returns an error.
func (c *Controller) KillAll(ctx context.Context) (KillAllResult, error) {
	names, err := c.registry.List()
	if err != nil {
		return KillAllResult{}, fmt.Errorf("%w: %w", ErrChannelIO, err)
	}
	var result KillAllResult
	for _, name := range names {
		if err := c.Kill(ctx, name); err != nil {
			logging.WarnWithContext(c.daemonLogger(ctx, name), "kill failed; continuing", "kill_all_member_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "daemon files are left in place"),
			)
			result.Failed = append(result.Failed, KillFailure{Name: name, Err: err})
			continue
		}
		result.Killed = append(result.Killed, name)
	}
	return result, nil
}

// List returns every daemon that has a PID file, running or not.
func (c *Controller) List(context.Context) ([]string, error) {
	names, err := c.registry.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChannelIO, err)
	}
	return names, nil
}

// Status probes name and merges its metadata record.
func (c *Controller) Status(ctx context.Context, name string) (Status, error) {
	check, err := c.probe.Check(ctx, name)
	if err != nil {
		if errors.Is(err, ErrCorruptState) {
			return Status{Name: name, Corrupt: true}, err
		}
		return Status{}, err
	}
	status := Status{Name: name, PID: check.PID, Running: check.Running, Reused: check.Reused}

	rec, err := c.registry.LoadRecord(name)
	switch {
	case err == nil && rec.SupervisorPID == check.PID:
		status.ChildPID = rec.ChildPID
		status.Command = rec.Command
		status.Args = rec.Args
		status.LaunchID = rec.LaunchID
		status.CreatedAt = rec.CreatedAt
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		c.daemonLogger(ctx, name).Debug("metadata record unreadable", logging.Error(err))
	case err != nil && status.Running:
		c.commandFromSupervisor(ctx, &status)
	}
	return status, nil
}

// commandFromSupervisor recovers the launched command from the supervisor's
// own argument vector when no metadata record was written.
func (c *Controller) commandFromSupervisor(ctx context.Context, status *Status) {
	argv := procinfo.Argv(ctx, status.PID)
	if len(argv) < 2 || argv[1] != launcher.SuperviseCommand {
		return
	}
	req, err := launcher.ParseRequest(argv[2:])
	if err != nil || req.Name != status.Name {
		return
	}
	status.Command = req.Command
	status.Args = req.Args
}

// Statuses returns the Status of every listed daemon. Corrupt entries are
// included and marked rather than failing the whole listing.
func (c *Controller) Statuses(ctx context.Context) ([]Status, error) {
	names, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(names))
	for _, name := range names {
		status, err := c.Status(ctx, name)
		switch {
		case err == nil, errors.Is(err, ErrCorruptState):
			out = append(out, status)
		case errors.Is(err, ErrUnknownDaemon):
			// Killed between listing and probing.
		default:
			return nil, err
		}
	}
	return out, nil
}

// LogPath returns the supervisor log file for name. The log outlives the
// daemon, so the name does not have to be known to the registry.
func (c *Controller) LogPath(name string) (string, error) {
	return c.scheme.LogPath(c.cfg.Paths.LogDir, name)
}

// pruneLogs applies log retention, keeping the logs of every known daemon.
func (c *Controller) pruneLogs() {
	if c.cfg.Logging.RetentionDays <= 0 {
		return
	}
	keep := []string{filepath.Join(c.cfg.Paths.LogDir, logging.CLILogName)}
	if names, err := c.registry.List(); err == nil {
		for _, name := range names {
			if path, err := c.scheme.LogPath(c.cfg.Paths.LogDir, name); err == nil {
				keep = append(keep, path)
			}
		}
	}
	logging.CleanupOldLogs(c.logger, c.cfg.Logging.RetentionDays, logging.DaemonLogTarget(c.cfg.Paths.LogDir, keep...))
}
