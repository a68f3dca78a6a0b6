package preflight

import (
	"attyvo/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every host check for cfg, followed by a lookup of each
// command in commands.
func RunAll(cfg *config.Config, commands ...string) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Base directory", cfg.Paths.BaseDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFIFO(cfg.Paths.BaseDir),
		CheckTerminal(cfg.Terminal.Rows, cfg.Terminal.Cols),
	}
	for _, command := range commands {
		results = append(results, CheckCommand(command))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
