package config

import (
	"os"
	"path/filepath"
)

const (
	defaultBaseDirName         = "daemon_pipes"
	defaultTerminalRows        = 24
	defaultTerminalCols        = 80
	defaultTerm                = "xterm-256color"
	defaultWorkDir             = "/"
	defaultSpawnTimeoutSeconds = 5
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 14
	defaultLogMaxSizeMB        = 10
	defaultLogMaxBackups       = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir: defaultBaseDir(),
		},
		Terminal: Terminal{
			Rows: defaultTerminalRows,
			Cols: defaultTerminalCols,
			Term: defaultTerm,
		},
		Launch: Launch{
			WorkDir:             defaultWorkDir,
			SpawnTimeoutSeconds: defaultSpawnTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
		},
	}
}

func defaultBaseDir() string {
	return filepath.Join(os.TempDir(), defaultBaseDirName)
}
