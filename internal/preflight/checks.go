package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"attyvo/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFIFO creates and removes a scratch named pipe inside dir.
func CheckFIFO(dir string) Result {
	const name = "Named pipes"
	path := filepath.Join(dir, ".preflight-"+strconv.Itoa(os.Getpid())+".fifo")
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("mkfifo in %s failed: %v", dir, err)}
	}
	if err := os.Remove(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("remove %s: %v", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: "mkfifo ok"}
}

// CheckTerminal allocates and releases a pseudo-terminal of the configured size.
func CheckTerminal(rows, cols int) Result {
	const name = "Pseudo-terminal"
	master, slave, err := pty.Open()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("allocation failed: %v", err)}
	}
	defer master.Close()
	defer slave.Close()
	if err := pty.Setsize(master, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("set size %dx%d: %v", rows, cols, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%dx%d)", slave.Name(), rows, cols)}
}

// CheckCommand resolves command the way create does.
func CheckCommand(command string) Result {
	name := "Command " + command
	path, err := deps.Resolve(command)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: path}
}
