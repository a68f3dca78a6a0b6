package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"attyvo/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	rootDir string
	cfg     *config.Config
}

// NewConfig produces a config whose base and log directories live in a unique
// temp directory per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BaseDir = filepath.Join(root, "pipes")
	cfgVal.Paths.LogDir = filepath.Join(root, "pipes", "logs")
	cfgVal.Launch.WorkDir = root
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		rootDir: root,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTerminal overrides the pseudo-terminal size.
func WithTerminal(rows, cols int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Terminal.Rows = rows
		b.cfg.Terminal.Cols = cols
	}
}

// WithSpawnTimeout overrides the launch handshake timeout.
func WithSpawnTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Launch.SpawnTimeoutSeconds = seconds
	}
}

// WithScripts writes executable shell scripts into a bin directory and
// prepends it to PATH for the duration of the test.
func WithScripts(scripts map[string]string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.rootDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for name, body := range scripts {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
				b.t.Fatalf("write script %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}
