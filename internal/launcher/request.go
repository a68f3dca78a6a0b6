package launcher

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"attyvo/internal/config"
	"attyvo/internal/naming"
)

// SuperviseCommand is the hidden subcommand that re-enters the binary as the
// detach or supervisor stage.
const SuperviseCommand = "supervise"

// Stage selects what a re-executed process does.
type Stage string

const (
	// StageDetach starts the supervisor and exits so it is reparented away
	// from the invoking process.
	StageDetach Stage = "detach"
	// StageRun is the long-lived supervisor that owns the pty and the child.
	StageRun Stage = "run"
)

// Request carries everything a supervisor needs. It travels as command-line
// flags because the supervisor is a fresh process.
type Request struct {
	Stage         Stage
	Name          string
	BaseDir       string
	LogDir        string
	WorkDir       string
	Rows          int
	Cols          int
	Term          string
	LogLevel      string
	LogFormat     string
	LogMaxSizeMB  int
	LogMaxBackups int
	Command       string
	Args          []string
}

// NewRequest builds the launch request for name from cfg.
func NewRequest(cfg *config.Config, name, command string, args []string) Request {
	return Request{
		Stage:         StageDetach,
		Name:          name,
		BaseDir:       cfg.Paths.BaseDir,
		LogDir:        cfg.Paths.LogDir,
		WorkDir:       cfg.Launch.WorkDir,
		Rows:          cfg.Terminal.Rows,
		Cols:          cfg.Terminal.Cols,
		Term:          cfg.Terminal.Term,
		LogLevel:      cfg.Logging.Level,
		LogFormat:     cfg.Logging.Format,
		LogMaxSizeMB:  cfg.Logging.MaxSizeMB,
		LogMaxBackups: cfg.Logging.MaxBackups,
		Command:       command,
		Args:          append([]string(nil), args...),
	}
}

// Config rebuilds the configuration subset carried by the request.
func (r Request) Config() config.Config {
	cfg := config.Default()
	cfg.Paths.BaseDir = r.BaseDir
	cfg.Paths.LogDir = r.LogDir
	cfg.Launch.WorkDir = r.WorkDir
	cfg.Terminal.Rows = r.Rows
	cfg.Terminal.Cols = r.Cols
	cfg.Terminal.Term = r.Term
	cfg.Logging.Level = r.LogLevel
	cfg.Logging.Format = r.LogFormat
	cfg.Logging.MaxSizeMB = r.LogMaxSizeMB
	cfg.Logging.MaxBackups = r.LogMaxBackups
	return cfg
}

// Scheme returns the naming scheme of the request's base directory.
func (r Request) Scheme() naming.Scheme {
	return naming.New(r.BaseDir)
}

// Encode renders the request as arguments for the supervise subcommand. The
// target command follows a "--" separator so its own flags are never parsed.
func (r Request) Encode() []string {
	out := []string{
		"--stage=" + string(r.Stage),
		"--name=" + r.Name,
		"--base-dir=" + r.BaseDir,
		"--log-dir=" + r.LogDir,
		"--work-dir=" + r.WorkDir,
		fmt.Sprintf("--rows=%d", r.Rows),
		fmt.Sprintf("--cols=%d", r.Cols),
		"--term=" + r.Term,
		"--log-level=" + r.LogLevel,
		"--log-format=" + r.LogFormat,
		fmt.Sprintf("--log-max-size=%d", r.LogMaxSizeMB),
		fmt.Sprintf("--log-max-backups=%d", r.LogMaxBackups),
		"--",
		r.Command,
	}
	return append(out, r.Args...)
}

// ParseRequest decodes arguments produced by Encode.
func ParseRequest(args []string) (Request, error) {
	var (
		req   Request
		stage string
	)
	fs := pflag.NewFlagSet(SuperviseCommand, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)
	fs.StringVar(&stage, "stage", string(StageRun), "detach or run")
	fs.StringVar(&req.Name, "name", "", "daemon name")
	fs.StringVar(&req.BaseDir, "base-dir", "", "directory holding pid files and fifos")
	fs.StringVar(&req.LogDir, "log-dir", "", "supervisor log directory")
	fs.StringVar(&req.WorkDir, "work-dir", "/", "working directory")
	fs.IntVar(&req.Rows, "rows", 24, "terminal rows")
	fs.IntVar(&req.Cols, "cols", 80, "terminal columns")
	fs.StringVar(&req.Term, "term", "xterm-256color", "TERM for the command")
	fs.StringVar(&req.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&req.LogFormat, "log-format", "console", "log format")
	fs.IntVar(&req.LogMaxSizeMB, "log-max-size", 10, "log rotation size in megabytes")
	fs.IntVar(&req.LogMaxBackups, "log-max-backups", 3, "rotated logs to keep")

	if err := fs.Parse(args); err != nil {
		return Request{}, fmt.Errorf("parse supervise arguments: %w", err)
	}

	req.Stage = Stage(stage)
	if req.Stage != StageDetach && req.Stage != StageRun {
		return Request{}, fmt.Errorf("unknown stage %q", stage)
	}
	if err := naming.ValidateName(req.Name); err != nil {
		return Request{}, err
	}
	if strings.TrimSpace(req.BaseDir) == "" {
		return Request{}, errors.New("base directory is required")
	}
	rest := fs.Args()
	if len(rest) == 0 || rest[0] == "" {
		return Request{}, errors.New("command is required")
	}
	req.Command = rest[0]
	req.Args = append([]string(nil), rest[1:]...)
	return req, nil
}
