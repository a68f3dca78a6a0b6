//go:build linux || darwin

package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// HandshakeFD is the descriptor number on which every re-executed stage finds
// the write end of the handshake pipe.
const HandshakeFD = 3

const defaultSpawnTimeout = 5 * time.Second

// Launcher starts supervisors by re-executing a binary that routes the
// supervise subcommand to the daemonrun package.
type Launcher struct {
	// Executable is the binary to re-execute. Empty means the running binary.
	Executable string
	// Timeout bounds the wait for the supervisor acknowledgement.
	Timeout time.Duration
}

// New returns a launcher that re-executes the running binary.
func New(timeout time.Duration) *Launcher {
	return &Launcher{Timeout: timeout}
}

func (l *Launcher) executable() (string, error) {
	if l != nil && l.Executable != "" {
		return l.Executable, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("%w: locate executable: %w", ErrSpawnFailure, err)
	}
	return exe, nil
}

// Spawn detaches a supervisor for req and waits for its acknowledgement. On
// success it returns the PID of the launched command.
func (l *Launcher) Spawn(ctx context.Context, req Request) (int, error) {
	exe, err := l.executable()
	if err != nil {
		return 0, err
	}

	readEnd, writeEnd, err := os.Pipe()
	if err != nil {
		return 0, fmt.Errorf("%w: handshake pipe: %w", ErrSpawnFailure, err)
	}
	defer readEnd.Close()

	req.Stage = StageDetach
	cmd, err := superviseCommand(exe, req, writeEnd)
	if err != nil {
		writeEnd.Close()
		return 0, err
	}
	// Setsid drops the controlling terminal of the invoking shell.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	startErr := cmd.Start()
	writeEnd.Close()
	closeStdio(cmd)
	if startErr != nil {
		return 0, fmt.Errorf("%w: start supervisor: %w", ErrSpawnFailure, startErr)
	}
	// The detach stage exits right after starting the supervisor.
	_ = cmd.Wait()

	timeout := defaultSpawnTimeout
	if l != nil && l.Timeout > 0 {
		timeout = l.Timeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := readEnd.SetReadDeadline(deadline); err != nil {
		return 0, fmt.Errorf("%w: handshake deadline: %w", ErrSpawnFailure, err)
	}

	ack, err := ReadAck(readEnd)
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		return 0, fmt.Errorf("%w: %w within %s", ErrSpawnFailure, ErrNoAck, timeout)
	case errors.Is(err, io.EOF):
		return 0, fmt.Errorf("%w: supervisor exited: %w", ErrSpawnFailure, ErrNoAck)
	case err != nil:
		return 0, fmt.Errorf("%w: read acknowledgement: %w", ErrSpawnFailure, err)
	}
	if err := ack.Err(); err != nil {
		return 0, err
	}
	return ack.ChildPID, nil
}

// Detach runs the intermediate stage: it starts the supervisor stage with the
// inherited handshake descriptor and returns without waiting, leaving the
// supervisor to be reparented once this process exits. Because this process
// leads its own session, the supervisor it starts can never acquire a
// controlling terminal by accident.
func Detach(req Request, handshake *os.File) error {
	exe, err := os.Executable()
	if err != nil {
		return reportDetach(handshake, fmt.Errorf("locate executable: %w", err))
	}
	req.Stage = StageRun
	cmd, err := superviseCommand(exe, req, handshake)
	if err != nil {
		return reportDetach(handshake, err)
	}
	startErr := cmd.Start()
	closeStdio(cmd)
	if startErr != nil {
		return reportDetach(handshake, fmt.Errorf("start supervisor: %w", startErr))
	}
	return cmd.Process.Release()
}

func reportDetach(handshake *os.File, err error) error {
	if handshake != nil {
		_ = WriteAck(handshake, Failed(KindSpawn, err))
	}
	return err
}

// superviseCommand prepares exe to re-enter the supervise subcommand with the
// handshake pipe at HandshakeFD and stdio bound to the null device.
func superviseCommand(exe string, req Request, handshake *os.File) (*exec.Cmd, error) {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrSpawnFailure, os.DevNull, err)
	}
	args := append([]string{SuperviseCommand}, req.Encode()...)
	cmd := exec.Command(exe, args...)
	cmd.Dir = "/"
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.ExtraFiles = []*os.File{handshake}
	return cmd, nil
}

func closeStdio(cmd *exec.Cmd) {
	if f, ok := cmd.Stdin.(*os.File); ok {
		_ = f.Close()
	}
}

// HandshakeFile returns the handshake descriptor inherited by a re-executed
// stage, marked close-on-exec so the launched command never holds it.
func HandshakeFile() *os.File {
	syscall.CloseOnExec(HandshakeFD)
	return os.NewFile(uintptr(HandshakeFD), "handshake")
}
