package launcher

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestAckLines(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAck(&buf, Ack{ChildPID: 4242}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "ok 4242\n" {
		t.Fatalf("ok line = %q", buf.String())
	}

	buf.Reset()
	if err := WriteAck(&buf, Failed(KindNotFound, errors.New("exec: \"nope\":\nnot found"))); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("error ack must be a single line: %q", buf.String())
	}

	ack, err := ReadAck(&buf)
	if err != nil {
		t.Fatalf("ReadAck: %v", err)
	}
	if ack.OK() || ack.Kind != KindNotFound {
		t.Fatalf("ack = %+v", ack)
	}
	if !errors.Is(ack.Err(), ErrCommandNotFound) {
		t.Fatalf("Err() = %v, want ErrCommandNotFound", ack.Err())
	}
}

func TestAckErrorKinds(t *testing.T) {
	cases := map[string]error{
		KindLocked:   ErrAlreadyRunning,
		KindNotFound: ErrCommandNotFound,
		KindSpawn:    ErrSpawnFailure,
		"other":      ErrSpawnFailure,
	}
	for kind, want := range cases {
		if err := (Ack{Kind: kind, Message: "x"}).Err(); !errors.Is(err, want) {
			t.Fatalf("kind %s: err = %v, want %v", kind, err, want)
		}
	}
	if err := (Ack{ChildPID: 1}).Err(); err != nil {
		t.Fatalf("ok ack must not error: %v", err)
	}
}

func TestReadAckMalformed(t *testing.T) {
	for _, line := range []string{"ok\n", "ok -3\n", "maybe 12\n", "error\n"} {
		if _, err := ReadAck(strings.NewReader(line)); err == nil {
			t.Fatalf("%q: expected error", line)
		}
	}
	if _, err := ReadAck(strings.NewReader("")); !errors.Is(err, io.EOF) {
		t.Fatalf("empty stream: err = %v, want EOF", err)
	}
	ack, err := ReadAck(strings.NewReader("ok 7"))
	if err != nil || ack.ChildPID != 7 {
		t.Fatalf("unterminated line: %+v %v", ack, err)
	}
}
