//go:build linux || darwin

package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"attyvo/internal/fifo"
	"attyvo/internal/launcher"
	"attyvo/internal/logging"
	"attyvo/internal/naming"
	"attyvo/internal/pidfile"
	"attyvo/internal/procinfo"
	"attyvo/internal/registry"
)

// ctty is the descriptor number of the pty slave inside the launched command.
// It is the first ExtraFiles slot.
const ctty = 3

// Main dispatches a re-executed supervise invocation and returns the process
// exit code.
func Main(args []string) int {
	handshake := launcher.HandshakeFile()
	req, err := launcher.ParseRequest(args)
	if err != nil {
		_ = launcher.WriteAck(handshake, launcher.Failed(launcher.KindSpawn, err))
		_ = handshake.Close()
		return 2
	}
	switch req.Stage {
	case launcher.StageDetach:
		if err := launcher.Detach(req, handshake); err != nil {
			return 1
		}
		return 0
	default:
		return Run(context.Background(), req, handshake)
	}
}

// Run supervises one daemon until its command exits. The handshake receives
// exactly one acknowledgement and is closed before Run starts waiting.
func Run(ctx context.Context, req launcher.Request, handshake io.WriteCloser) int {
	// Handlers go in before the PID file exists, so a kill that races the
	// launch is never met by the default action of SIGTERM.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(signals)

	s := &supervisor{req: req, handshake: handshake, signals: signals}
	defer s.closeHandshake()
	defer func() { _ = s.channels.Close() }()

	child, term, err := s.start(ctx)
	if err != nil {
		return 1
	}
	return s.wait(child, term)
}

// errTerminated reports a termination signal that arrived before the command
// was started.
var errTerminated = errors.New("terminated during launch")

type supervisor struct {
	req       launcher.Request
	handshake io.WriteCloser
	signals   chan os.Signal
	logger    *slog.Logger
	paths     naming.Paths
	lock      *pidfile.Lock
	// channels stay open for the supervisor's lifetime so every FIFO keeps a
	// reader and a writer even if the command closes its standard streams.
	channels *fifo.Set
}

func (s *supervisor) start(ctx context.Context) (*exec.Cmd, *terminal, error) {
	cfg := s.req.Config()
	scheme := s.req.Scheme()
	paths, err := scheme.Paths(s.req.Name)
	if err != nil {
		return nil, nil, s.fail(launcher.KindSpawn, err)
	}
	s.paths = paths

	logPath, err := scheme.LogPath(cfg.Paths.LogDir, s.req.Name)
	if err != nil {
		return nil, nil, s.fail(launcher.KindSpawn, err)
	}
	base, err := logging.NewDaemonLogger(&cfg, logPath)
	if err != nil {
		return nil, nil, s.fail(launcher.KindSpawn, fmt.Errorf("init logger: %w", err))
	}
	ctx = logging.WithDaemon(ctx, s.req.Name)
	s.logger = logging.WithContext(ctx, logging.NewComponentLogger(base, "supervisor"))

	lock, err := pidfile.Acquire(paths.PID, os.Getpid())
	if err != nil {
		kind := launcher.KindSpawn
		if errors.Is(err, pidfile.ErrLocked) {
			kind = launcher.KindLocked
		}
		return nil, nil, s.fail(kind, err)
	}
	s.lock = lock

	unix.Umask(0)
	if err := os.Chdir(s.req.WorkDir); err != nil {
		return nil, nil, s.abort(launcher.KindSpawn, fmt.Errorf("chdir %q: %w", s.req.WorkDir, err))
	}

	channels, err := fifo.OpenForDaemon(paths)
	if err != nil {
		return nil, nil, s.abort(launcher.KindSpawn, err)
	}
	s.channels = channels

	term, err := openTerminal(s.req.Rows, s.req.Cols)
	if err != nil {
		return nil, nil, s.abort(launcher.KindSpawn, err)
	}

	select {
	case sig := <-s.signals:
		term.releaseSlave()
		term.hangup()
		return nil, nil, s.abort(launcher.KindSpawn, fmt.Errorf("%w: %s", errTerminated, sig))
	default:
	}

	cmd := exec.Command(s.req.Command, s.req.Args...)
	cmd.Stdin = channels.Stdin
	cmd.Stdout = channels.Stdout
	cmd.Stderr = channels.Stderr
	cmd.ExtraFiles = []*os.File{term.slave}
	cmd.Env = withTerm(os.Environ(), s.req.Term)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true, Ctty: ctty}

	if err := cmd.Start(); err != nil {
		term.releaseSlave()
		term.hangup()
		kind := launcher.KindSpawn
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			kind = launcher.KindNotFound
		}
		return nil, nil, s.abort(kind, fmt.Errorf("start %s: %w", s.req.Command, err))
	}
	term.releaseSlave()
	term.drain()

	s.record(ctx, cmd.Process.Pid)
	s.logger.Info("command started",
		logging.PID(cmd.Process.Pid),
		logging.String("command", strings.Join(append([]string{s.req.Command}, s.req.Args...), " ")),
		logging.Int("rows", s.req.Rows),
		logging.Int("cols", s.req.Cols),
		logging.String(logging.FieldEventType, "command_started"),
	)
	if err := launcher.WriteAck(s.handshake, launcher.Ack{ChildPID: cmd.Process.Pid}); err != nil {
		logging.WarnWithContext(s.logger, "spawn acknowledgement failed", "ack_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "create may report a spawn timeout although the command runs"),
		)
	}
	s.closeHandshake()
	return cmd, term, nil
}

// record writes the metadata sidecar. A failure only weakens PID-reuse
// detection, so it is logged rather than reported to create.
func (s *supervisor) record(ctx context.Context, childPID int) {
	supervisorPID := os.Getpid()
	startTime, err := procinfo.Fingerprint(ctx, supervisorPID)
	if err != nil {
		logging.WarnWithContext(s.logger, "start time unavailable", "fingerprint_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "pid reuse cannot be detected for this daemon"),
		)
	}
	rec := registry.Record{
		Name:          s.req.Name,
		LaunchID:      uuid.NewString(),
		SupervisorPID: supervisorPID,
		ChildPID:      childPID,
		StartTime:     startTime,
		Command:       s.req.Command,
		Args:          s.req.Args,
		CreatedAt:     time.Now().UTC(),
	}
	if err := registry.New(s.req.Scheme()).SaveRecord(rec); err != nil {
		logging.WarnWithContext(s.logger, "metadata record not written", "record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status shows no command details and pid reuse is not detected"),
		)
		return
	}
	s.logger = s.logger.With(logging.String(logging.FieldLaunchID, rec.LaunchID))
}

// wait forwards the first termination signal to the command, including one
// that arrived between the start of the command and this call.
func (s *supervisor) wait(cmd *exec.Cmd, term *terminal) int {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-s.signals:
			s.logger.Info("termination requested",
				logging.String("signal", sig.String()),
				logging.String(logging.FieldEventType, "terminate_requested"),
			)
			if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logging.WarnWithContext(s.logger, "forward SIGTERM failed", "signal_forward_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "command relies on terminal hangup to exit"),
				)
			}
			term.hangup()
		case <-done:
		}
	}()

	err := cmd.Wait()
	term.hangup()

	code := exitCode(cmd.ProcessState)
	attrs := []logging.Attr{
		logging.Int("exit_code", code),
		logging.String(logging.FieldEventType, "command_exited"),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	s.logger.Info("command exited", logging.Args(attrs...)...)
	return code
}

// fail reports a failure that happened before the PID file was taken.
func (s *supervisor) fail(kind string, err error) error {
	if s.logger != nil {
		logging.ErrorWithContext(s.logger, "launch failed", "launch_failed",
			logging.Error(err),
			logging.String("kind", kind),
		)
	}
	if s.handshake != nil {
		if werr := launcher.WriteAck(s.handshake, launcher.Failed(kind, err)); werr != nil && s.logger != nil {
			s.logger.Debug("error acknowledgement not delivered", logging.Error(werr))
		}
		s.closeHandshake()
	}
	return err
}

// abort reports a failure after the PID file was written. The PID file is
// removed while the lock is still held so no live supervisor is affected.
func (s *supervisor) abort(kind string, err error) error {
	if s.lock != nil {
		if rmErr := os.Remove(s.paths.PID); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			s.logger.Debug("pid file removal failed", logging.Error(rmErr))
		}
		_ = s.lock.Release()
	}
	return s.fail(kind, err)
}

func (s *supervisor) closeHandshake() {
	if s.handshake != nil {
		_ = s.handshake.Close()
		s.handshake = nil
	}
}

func withTerm(env []string, term string) []string {
	for _, kv := range env {
		if strings.HasPrefix(kv, "TERM=") && kv != "TERM=" {
			return env
		}
	}
	if term == "" {
		return env
	}
	return append(env, "TERM="+term)
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return 1
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return 1
}
