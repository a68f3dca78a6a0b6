package main

import (
	"github.com/spf13/cobra"

	"attyvo/internal/daemonrun"
	"attyvo/internal/launcher"
)

// newSuperviseCommand is the re-entry point used by create. It is hidden and
// takes its arguments verbatim so the target command's flags are untouched.
func newSuperviseCommand() *cobra.Command {
	return &cobra.Command{
		Use:                launcher.SuperviseCommand,
		Hidden:             true,
		DisableFlagParsing: true,
		Annotations:        map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if code := daemonrun.Main(args); code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}
}
