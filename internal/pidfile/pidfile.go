package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

var (
	// ErrLocked is returned when another live process holds the PID file lock.
	ErrLocked = errors.New("pid file is locked by another process")

	// ErrInvalidPID is returned when the PID file content is not a positive decimal integer.
	ErrInvalidPID = errors.New("invalid pid in file")
)

// Lock is an acquired PID file. The flock stays held until Release or process exit.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes an exclusive, non-blocking lock on path and records pid in it.
// A PID file left behind by a dead process is overwritten.
func Acquire(path string, pid int) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create pid file directory: %w", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %q: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	value := strconv.Itoa(pid) + "\n"
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the locked file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock without removing the file.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

// Read parses the PID recorded at path. A missing file surfaces as an error
// satisfying errors.Is(err, os.ErrNotExist).
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	raw := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPID, raw)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%w: pid must be positive, got %d", ErrInvalidPID, pid)
	}
	return pid, nil
}

// Locked reports whether some process currently holds the lock on path.
func Locked(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	fl := flock.New(path)
	defer fl.Close()
	ok, err := fl.TryRLock()
	if err != nil {
		return false, err
	}
	return !ok, nil
}
