package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"attyvo/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [command...]",
		Short: "Check that this host can run attyvo daemons",
		Long: `Check the base and log directories, named pipe creation and
pseudo-terminal allocation. Any commands given are resolved the way create
resolves them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cfg, args...)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderHeading("Host readiness", colorize))
			for _, r := range results {
				b := badgePass
				if !r.Passed {
					b = badgeFail
				}
				fmt.Fprintln(out, renderField(r.Name, b, r.Detail, colorize))
			}
			if preflight.Failed(results) {
				return fmt.Errorf("doctor: one or more checks failed")
			}
			return nil
		},
	}
}
