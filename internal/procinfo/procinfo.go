package procinfo

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// Fingerprint identifies one incarnation of a PID: the kernel start time of
// the process in milliseconds since the epoch.
func Fingerprint(ctx context.Context, pid int) (int64, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return 0, fmt.Errorf("inspect process %d: %w", pid, err)
	}
	created, err := proc.CreateTimeWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("process %d start time: %w", pid, err)
	}
	return created, nil
}

// Argv returns the argument vector of pid, or nil when it cannot be read.
func Argv(ctx context.Context, pid int) []string {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil
	}
	argv, err := proc.CmdlineSliceWithContext(ctx)
	if err != nil {
		return nil
	}
	return argv
}
