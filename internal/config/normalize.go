package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	envBaseDir  = "ATTYVO_BASE_DIR"
	envLogLevel = "ATTYVO_LOG_LEVEL"
)

func (c *Config) normalize() error {
	if value, ok := os.LookupEnv(envBaseDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.BaseDir = value
	}
	if value, ok := os.LookupEnv(envLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}

	var err error
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		c.Paths.BaseDir = defaultBaseDir()
	}
	if c.Paths.BaseDir, err = expandPath(strings.TrimSpace(c.Paths.BaseDir)); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.BaseDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Launch.WorkDir) == "" {
		c.Launch.WorkDir = defaultWorkDir
	}
	if c.Launch.WorkDir, err = expandPath(strings.TrimSpace(c.Launch.WorkDir)); err != nil {
		return fmt.Errorf("launch.work_dir: %w", err)
	}

	c.Terminal.Term = strings.TrimSpace(c.Terminal.Term)
	if c.Terminal.Term == "" {
		c.Terminal.Term = defaultTerm
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
