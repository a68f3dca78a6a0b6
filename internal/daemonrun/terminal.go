//go:build linux || darwin

package daemonrun

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/creack/pty"
)

// terminal is the pty pair handed to the launched command. Only the slave is
// attached to the child; the master is drained so terminal output such as
// echo never fills the line discipline buffer and stalls the child.
type terminal struct {
	master *os.File
	slave  *os.File
	closed sync.Once
}

func openTerminal(rows, cols int) (*terminal, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("allocate pty: %w", err)
	}
	size := &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}
	if err := pty.Setsize(master, size); err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("set pty size %dx%d: %w", rows, cols, err)
	}
	return &terminal{master: master, slave: slave}, nil
}

// drain discards master output until the master is closed.
func (t *terminal) drain() {
	go func() {
		_, _ = io.Copy(io.Discard, t.master)
	}()
}

// releaseSlave closes the supervisor's copy of the slave once the child holds it.
func (t *terminal) releaseSlave() {
	if t.slave != nil {
		_ = t.slave.Close()
		t.slave = nil
	}
}

// hangup closes the master, which delivers SIGHUP to the session whose
// controlling terminal is the slave.
func (t *terminal) hangup() {
	t.closed.Do(func() {
		_ = t.master.Close()
	})
}
