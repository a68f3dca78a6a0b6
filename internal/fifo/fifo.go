//go:build linux || darwin

package fifo

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"attyvo/internal/naming"
)

const (
	// Mode is applied to every channel after creation so unrelated users can reach the daemon.
	Mode = 0o777
	// DirMode is used when the base directory has to be created.
	DirMode = 0o755

	// MaxDrainBytes caps a single drain so a producer that never pauses cannot pin the caller.
	MaxDrainBytes = 4 << 20

	readChunk = 32 * 1024
)

var (
	// ErrNotFIFO reports a channel path occupied by something other than a named pipe.
	ErrNotFIFO = errors.New("path exists and is not a fifo")
	// ErrNoReader reports that nobody holds the read side of a channel.
	ErrNoReader = errors.New("fifo has no reader")
)

// Set holds the daemon-side endpoints of the three channels.
type Set struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Close releases every endpoint, returning the first failure.
func (s *Set) Close() error {
	if s == nil {
		return nil
	}
	var first error
	for _, f := range []*os.File{s.Stdin, s.Stdout, s.Stderr} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Create ensures the base directory exists and creates the three channels.
// Existing named pipes at the derived paths are reused. If any channel fails,
// the ones created by this call are removed again.
func Create(paths naming.Paths, baseDir string) error {
	if err := os.MkdirAll(baseDir, DirMode); err != nil {
		return fmt.Errorf("create base directory %q: %w", baseDir, err)
	}

	var created []string
	for _, path := range paths.FIFOs() {
		made, err := mkfifo(path)
		if err != nil {
			for _, p := range created {
				_ = os.Remove(p)
			}
			return err
		}
		if made {
			created = append(created, path)
		}
	}
	return nil
}

func mkfifo(path string) (bool, error) {
	err := unix.Mkfifo(path, Mode)
	switch {
	case err == nil:
	case errors.Is(err, unix.EEXIST):
		info, statErr := os.Lstat(path)
		if statErr != nil {
			return false, fmt.Errorf("stat fifo %q: %w", path, statErr)
		}
		if info.Mode()&os.ModeNamedPipe == 0 {
			return false, fmt.Errorf("create fifo %q: %w", path, ErrNotFIFO)
		}
		return false, nil
	default:
		return false, fmt.Errorf("create fifo %q: %w", path, err)
	}
	// mkfifo honours the process umask; the channels must stay world-accessible.
	if err := os.Chmod(path, Mode); err != nil {
		_ = os.Remove(path)
		return false, fmt.Errorf("chmod fifo %q: %w", path, err)
	}
	return true, nil
}

// OpenForDaemon opens the channels from the daemon side. Every endpoint is
// opened read+write so the open never waits for a peer and each channel keeps
// at least one writer and one reader for as long as the daemon lives.
func OpenForDaemon(paths naming.Paths) (*Set, error) {
	set := &Set{}
	var err error
	if set.Stdin, err = openFile(paths.Stdin, unix.O_RDWR); err != nil {
		return nil, err
	}
	if set.Stdout, err = openFile(paths.Stdout, unix.O_RDWR|unix.O_APPEND); err != nil {
		_ = set.Close()
		return nil, err
	}
	if set.Stderr, err = openFile(paths.Stderr, unix.O_RDWR|unix.O_APPEND); err != nil {
		_ = set.Close()
		return nil, err
	}
	return set, nil
}

// OpenWriter opens a channel write-only for a client. The open itself does not
// wait: ErrNoReader is returned when no process holds the other end. The
// returned file uses blocking writes.
func OpenWriter(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return nil, fmt.Errorf("open %q: %w", path, ErrNoReader)
		}
		return nil, fmt.Errorf("open %q for writing: %w", path, err)
	}
	if err := unix.SetNonblock(fd, false); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("set blocking on %q: %w", path, err)
	}
	return os.NewFile(uintptr(fd), path), nil
}

// Drain reads whatever is currently buffered in the channel without waiting
// for more. An empty channel yields an empty slice and no error.
func Drain(path string) ([]byte, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %q for reading: %w", path, err)
	}
	defer unix.Close(fd)

	var out []byte
	buf := make([]byte, readChunk)
	for len(out) < MaxDrainBytes {
		n, err := unix.Read(fd, buf)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return out, nil
		case err != nil:
			return out, fmt.Errorf("read %q: %w", path, err)
		case n <= 0:
			return out, nil
		}
		out = append(out, buf[:n]...)
	}
	return out, nil
}

func openFile(path string, flags int) (*os.File, error) {
	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	return os.NewFile(uintptr(fd), path), nil
}
