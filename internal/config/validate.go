package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.BaseDir == "" {
		return errors.New("paths.base_dir must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"terminal.rows":                c.Terminal.Rows,
		"terminal.cols":                c.Terminal.Cols,
		"launch.spawn_timeout_seconds": c.Launch.SpawnTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Terminal.Rows > 0xffff || c.Terminal.Cols > 0xffff {
		return errors.New("terminal.rows and terminal.cols must fit in 16 bits")
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"logging.max_size_mb": c.Logging.MaxSizeMB,
		"logging.max_backups": c.Logging.MaxBackups,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
