package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// PIDSuffix marks the PID file that registers a daemon in the base directory.
	PIDSuffix = ".pid"
	// MetaSuffix marks the metadata record written by the supervisor.
	MetaSuffix = ".meta"

	stdinSuffix  = "_stdin"
	stdoutSuffix = "_stdout"
	stderrSuffix = "_stderr"
)

// ErrInvalidName reports a daemon name that cannot be mapped into the base directory.
var ErrInvalidName = errors.New("invalid daemon name")

// Paths lists every filesystem object that makes up one daemon record.
type Paths struct {
	Name   string
	PID    string
	Meta   string
	Stdin  string
	Stdout string
	Stderr string
}

// FIFOs returns the three channel paths in stdin, stdout, stderr order.
func (p Paths) FIFOs() []string {
	return []string{p.Stdin, p.Stdout, p.Stderr}
}

// All returns the PID file, the FIFOs, and the metadata record.
func (p Paths) All() []string {
	return []string{p.PID, p.Stdin, p.Stdout, p.Stderr, p.Meta}
}

// Scheme derives daemon paths under a single base directory.
type Scheme struct {
	BaseDir string
}

// New returns a scheme rooted at baseDir.
func New(baseDir string) Scheme {
	return Scheme{BaseDir: filepath.Clean(baseDir)}
}

// Paths validates name and derives its filesystem objects.
func (s Scheme) Paths(name string) (Paths, error) {
	if err := ValidateName(name); err != nil {
		return Paths{}, err
	}
	join := func(suffix string) string {
		return filepath.Join(s.BaseDir, name+suffix)
	}
	return Paths{
		Name:   name,
		PID:    join(PIDSuffix),
		Meta:   join(MetaSuffix),
		Stdin:  join(stdinSuffix),
		Stdout: join(stdoutSuffix),
		Stderr: join(stderrSuffix),
	}, nil
}

// LogPath returns the supervisor log file for name inside logDir.
func (s Scheme) LogPath(logDir, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if strings.TrimSpace(logDir) == "" {
		logDir = filepath.Join(s.BaseDir, "logs")
	}
	return filepath.Join(logDir, name+".log"), nil
}

// NameFromPIDFile recovers a daemon name from a directory entry name.
// The second return value is false when the entry is not a PID file.
func NameFromPIDFile(entry string) (string, bool) {
	if !strings.HasSuffix(entry, PIDSuffix) {
		return "", false
	}
	name := strings.TrimSuffix(entry, PIDSuffix)
	if ValidateName(name) != nil {
		return "", false
	}
	return name, true
}

// ValidateName rejects names that are empty, contain path separators or NUL
// bytes, or would resolve to the base directory or its parent.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}
