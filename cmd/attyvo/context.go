package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"attyvo/internal/config"
	"attyvo/internal/daemonctl"
	"attyvo/internal/logging"
)

type commandContext struct {
	configFlag  *string
	baseDirFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, baseDirFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		baseDirFlag: baseDirFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.configPath = resolved
		c.configExists = exists
		if c.baseDirFlag != nil && strings.TrimSpace(*c.baseDirFlag) != "" {
			if cfg, err = cfg.WithBaseDir(*c.baseDirFlag); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// cliLogger returns the invocation logger. A logger that cannot open its file
// output falls back to stderr only rather than failing the command.
func (c *commandContext) cliLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: "warn", Format: "console"})
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) controller() (*daemonctl.Controller, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return daemonctl.New(cfg, c.cliLogger()), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
