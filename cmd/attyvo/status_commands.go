package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"attyvo/internal/daemonctl"
)

// statusView is the JSON shape of one daemon for list --json and status --json.
type statusView struct {
	Name      string   `json:"name"`
	State     string   `json:"state"`
	PID       int      `json:"pid,omitempty"`
	Running   bool     `json:"running"`
	ChildPID  int      `json:"child_pid,omitempty"`
	Command   string   `json:"command,omitempty"`
	Args      []string `json:"args,omitempty"`
	LaunchID  string   `json:"launch_id,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
}

func newStatusView(s daemonctl.Status) statusView {
	view := statusView{
		Name:     s.Name,
		State:    s.State(),
		PID:      s.PID,
		Running:  s.Running,
		ChildPID: s.ChildPID,
		Command:  s.Command,
		Args:     s.Args,
		LaunchID: s.LaunchID,
	}
	if !s.CreatedAt.IsZero() {
		view.CreatedAt = s.CreatedAt.UTC().Format(time.RFC3339)
	}
	return view
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var long bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List daemons that have a PID file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := ctx.controller()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !long && !asJSON {
				names, err := ctrl.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			statuses, err := ctrl.Statuses(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				views := make([]statusView, 0, len(statuses))
				for _, s := range statuses {
					views = append(views, newStatusView(s))
				}
				return writeJSON(cmd, views)
			}
			if len(statuses) == 0 {
				fmt.Fprintln(out, "No daemons found")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				rows = append(rows, []string{
					s.Name,
					paint(s.State(), stateBadge(s), colorize),
					pidCell(s.PID),
					pidCell(s.ChildPID),
					commandLine(s),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "State", "PID", "Child", "Command"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show state, PIDs, and command for each daemon")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Show whether a daemon is running and what it runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := ctx.controller()
			if err != nil {
				return err
			}
			status, err := ctrl.Status(cmd.Context(), args[0])
			if err != nil && !errors.Is(err, daemonctl.ErrCorruptState) {
				return fmt.Errorf("status %s: %w", args[0], err)
			}
			if asJSON {
				return writeJSON(cmd, newStatusView(status))
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderHeading("Daemon "+status.Name, colorize))
			fmt.Fprintln(out, renderField("State", stateBadge(status), stateHint(status), colorize))
			if status.Corrupt {
				return nil
			}
			fmt.Fprintln(out, renderField("Supervisor", badgeNone, pidCell(status.PID), colorize))
			if status.Command != "" {
				fmt.Fprintln(out, renderField("Command", badgeNone, commandLine(status), colorize))
				fmt.Fprintln(out, renderField("Command PID", badgeNone, pidCell(status.ChildPID), colorize))
				if !status.CreatedAt.IsZero() {
					fmt.Fprintln(out, renderField("Started", badgeNone, status.CreatedAt.Local().Format(time.DateTime), colorize))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// stateHint tells the operator what a non-running state means.
func stateHint(s daemonctl.Status) string {
	switch stateBadge(s) {
	case badgeCorrupt:
		return "PID file is unreadable; kill the daemon to clean up"
	case badgeReused:
		return "recorded PID now belongs to another process"
	case badgeStale:
		return "not running; kill the daemon to clean up"
	default:
		return ""
	}
}

func pidCell(pid int) string {
	if pid <= 0 {
		return "-"
	}
	return strconv.Itoa(pid)
}

func commandLine(s daemonctl.Status) string {
	if s.Command == "" {
		return "-"
	}
	return strings.Join(append([]string{s.Command}, s.Args...), " ")
}
