package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeHandlerCollapses(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if got := TeeHandler(nil, inner); got != inner {
		t.Fatalf("expected lone handler to be returned unwrapped, got %T", got)
	}
}

func TestTeeHandlerRespectsEachLevel(t *testing.T) {
	var console, file bytes.Buffer
	consoleLevel := new(slog.LevelVar)
	consoleLevel.Set(slog.LevelWarn)
	fileLevel := new(slog.LevelVar)
	fileLevel.Set(slog.LevelDebug)

	logger := slog.New(TeeHandler(
		newPrettyHandler(&console, consoleLevel, false),
		newJSONHandler(&file, fileLevel, false),
	)).With(Daemon("repl"))

	logger.Debug("pty resized")
	logger.Warn("signal skipped")

	if strings.Contains(console.String(), "pty resized") {
		t.Fatalf("console handler must drop debug lines: %q", console.String())
	}
	if !strings.Contains(console.String(), "[repl]: signal skipped") {
		t.Fatalf("console output = %q", console.String())
	}
	if strings.Count(file.String(), `"daemon":"repl"`) != 2 {
		t.Fatalf("file output should carry both records: %q", file.String())
	}
}
