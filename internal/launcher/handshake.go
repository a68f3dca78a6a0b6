package launcher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"attyvo/internal/deps"
)

var (
	// ErrSpawnFailure reports a launch that did not reach a running child.
	ErrSpawnFailure = errors.New("spawn failure")
	// ErrCommandNotFound reports a target command that cannot be executed.
	ErrCommandNotFound = deps.ErrNotFound
	// ErrAlreadyRunning reports a name whose PID file is held by a live supervisor.
	ErrAlreadyRunning = errors.New("daemon already running")
	// ErrNoAck reports a supervisor that never answered. It is always wrapped
	// together with ErrSpawnFailure; the supervisor may still be starting.
	ErrNoAck = errors.New("no acknowledgement from supervisor")
)

// Failure kinds carried by an error acknowledgement.
const (
	KindSpawn    = "spawn"
	KindNotFound = "notfound"
	KindLocked   = "locked"
)

// Ack is the single line a supervisor reports on the handshake descriptor:
//
//	ok <child-pid>
//	error <kind> <message>
type Ack struct {
	ChildPID int
	Kind     string
	Message  string
}

// OK reports whether the supervisor started the child.
func (a Ack) OK() bool {
	return a.Kind == ""
}

// Err maps a failed acknowledgement onto the launcher sentinels.
func (a Ack) Err() error {
	if a.OK() {
		return nil
	}
	switch a.Kind {
	case KindNotFound:
		return fmt.Errorf("%w: %s", ErrCommandNotFound, a.Message)
	case KindLocked:
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, a.Message)
	default:
		return fmt.Errorf("%w: %s", ErrSpawnFailure, a.Message)
	}
}

// Failed returns an error acknowledgement of kind.
func Failed(kind string, err error) Ack {
	return Ack{Kind: kind, Message: err.Error()}
}

// WriteAck writes ack as one line.
func WriteAck(w io.Writer, ack Ack) error {
	var line string
	if ack.OK() {
		line = fmt.Sprintf("ok %d\n", ack.ChildPID)
	} else {
		msg := strings.Join(strings.Fields(ack.Message), " ")
		line = fmt.Sprintf("error %s %s\n", ack.Kind, msg)
	}
	_, err := io.WriteString(w, line)
	return err
}

// ReadAck reads one acknowledgement line from r.
func ReadAck(r io.Reader) (Ack, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return Ack{}, err
	}
	return parseAck(strings.TrimSpace(line))
}

func parseAck(line string) (Ack, error) {
	verb, rest, _ := strings.Cut(line, " ")
	switch verb {
	case "ok":
		pid, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || pid <= 0 {
			return Ack{}, fmt.Errorf("malformed acknowledgement %q", line)
		}
		return Ack{ChildPID: pid}, nil
	case "error":
		kind, msg, _ := strings.Cut(rest, " ")
		if kind == "" {
			return Ack{}, fmt.Errorf("malformed acknowledgement %q", line)
		}
		return Ack{Kind: kind, Message: msg}, nil
	default:
		return Ack{}, fmt.Errorf("malformed acknowledgement %q", line)
	}
}
