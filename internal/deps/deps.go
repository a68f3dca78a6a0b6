// Package deps resolves the external programs attyvo is asked to launch.
package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound reports a command that is neither an executable path nor found
// on PATH.
var ErrNotFound = errors.New("command not found")

// Resolve returns the absolute path of command. Names without a separator are
// searched on PATH; anything else is checked in place.
func Resolve(command string) (string, error) {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return "", fmt.Errorf("%w: empty command", ErrNotFound)
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrNotFound, cmd, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}
