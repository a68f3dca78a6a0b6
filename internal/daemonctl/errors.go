package daemonctl

import (
	"errors"

	"attyvo/internal/launcher"
	"attyvo/internal/liveness"
	"attyvo/internal/naming"
)

var (
	// ErrUnknownDaemon reports a name without a PID file.
	ErrUnknownDaemon = liveness.ErrUnknownDaemon
	// ErrNotRunning reports a known daemon whose process is gone.
	ErrNotRunning = errors.New("daemon not running")
	// ErrCorruptState reports a PID file that cannot be parsed.
	ErrCorruptState = liveness.ErrCorruptState
	// ErrChannelIO reports a FIFO that could not be created, opened, read or written.
	ErrChannelIO = errors.New("channel i/o error")
	// ErrSpawnFailure reports a launch that never reached a running command.
	ErrSpawnFailure = launcher.ErrSpawnFailure
	// ErrCommandNotFound reports a target command that cannot be executed.
	ErrCommandNotFound = launcher.ErrCommandNotFound
	// ErrAlreadyRunning reports a create for a name whose daemon is alive.
	ErrAlreadyRunning = launcher.ErrAlreadyRunning
	// ErrInvalidName reports a name that would escape the base directory.
	ErrInvalidName = naming.ErrInvalidName
)
