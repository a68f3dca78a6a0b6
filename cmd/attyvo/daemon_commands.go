package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newCreateCommand(ctx),
		newWriteCommand(ctx),
		newReadCommand(ctx, "read", "Drain and print everything the daemon wrote to stdout", false),
		newReadCommand(ctx, "read-stderr", "Drain and print everything the daemon wrote to stderr", true),
		newKillCommand(ctx),
		newKillAllCommand(ctx),
	}
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name> <command> [args...]",
		Short: "Launch a command as a detached daemon",
		Long: `Launch a command as a detached daemon attached to a pseudo-terminal.

Everything after the command name is passed to it verbatim, so flags meant for
the command do not need a "--" separator.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := ctx.controller()
			if err != nil {
				return err
			}
			status, err := ctrl.Create(cmd.Context(), args[0], args[1], args[2:])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon %s started (supervisor pid %d, command pid %d)\n",
				status.Name, status.PID, status.ChildPID)
			return nil
		},
	}
	// Flags after <name> belong to the launched command.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newWriteCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <name> <message>",
		Short: "Send one line to the daemon's standard input",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := ctx.controller()
			if err != nil {
				return err
			}
			message := strings.Join(args[1:], " ")
			if err := ctrl.Write(cmd.Context(), args[0], message); err != nil {
				return fmt.Errorf("write %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %d bytes to %s\n", len(message)+1, args[0])
			return nil
		},
	}
	// Messages may start with a dash.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newReadCommand(ctx *commandContext, use, short string, stderr bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := ctx.controller()
			if err != nil {
				return err
			}
			read := ctrl.ReadStdout
			if stderr {
				read = ctrl.ReadStderr
			}
			data, err := read(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s %s: %w", use, args[0], err)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), data)
			return err
		},
	}
}

func newKillCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "kill <name>",
		Short: "Terminate a daemon and remove its PID file and FIFOs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := ctx.controller()
			if err != nil {
				return err
			}
			if err := ctrl.Kill(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("kill %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon %s killed\n", args[0])
			return nil
		},
	}
}

func newKillAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "kill-all",
		Short: "Kill every daemon in the base directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := ctx.controller()
			if err != nil {
				return err
			}
			result, err := ctrl.KillAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("kill-all: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(result.Killed) == 0 && len(result.Failed) == 0 {
				fmt.Fprintln(out, "No daemons to kill")
				return nil
			}
			for _, name := range result.Killed {
				fmt.Fprintf(out, "Killed %s\n", name)
			}
			if len(result.Failed) == 0 {
				return nil
			}
			errOut := cmd.ErrOrStderr()
			failures := make([]error, 0, len(result.Failed))
			for _, failure := range result.Failed {
				fmt.Fprintf(errOut, "Failed %s: %v\n", failure.Name, failure.Err)
				failures = append(failures, failure.Err)
			}
			return fmt.Errorf("kill-all: %d of %d daemons not killed: %w",
				len(result.Failed), len(result.Failed)+len(result.Killed), errors.Join(failures...))
		},
	}
}
