package registry

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"attyvo/internal/fileutil"
	"attyvo/internal/naming"
)

// Record is the metadata a supervisor stores next to its PID file.
type Record struct {
	Name          string    `toml:"name"`
	LaunchID      string    `toml:"launch_id"`
	SupervisorPID int       `toml:"supervisor_pid"`
	ChildPID      int       `toml:"child_pid"`
	StartTime     int64     `toml:"start_time"`
	Command       string    `toml:"command"`
	Args          []string  `toml:"args"`
	CreatedAt     time.Time `toml:"created_at"`
}

// Registry enumerates daemons known to one base directory.
type Registry struct {
	scheme naming.Scheme
}

// New returns a registry over scheme's base directory.
func New(scheme naming.Scheme) *Registry {
	return &Registry{scheme: scheme}
}

// List returns every daemon name that has a PID file, in lexical order. No
// liveness filtering is applied: a PID file left by a process that exited on
// its own is still listed.
func (r *Registry) List() ([]string, error) {
	if err := os.MkdirAll(r.scheme.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory %q: %w", r.scheme.BaseDir, err)
	}
	entries, err := os.ReadDir(r.scheme.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("read base directory %q: %w", r.scheme.BaseDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if name, ok := naming.NameFromPIDFile(entry.Name()); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// LoadRecord reads the metadata record for name.
func (r *Registry) LoadRecord(name string) (Record, error) {
	paths, err := r.scheme.Paths(name)
	if err != nil {
		return Record{}, err
	}
	data, err := os.ReadFile(paths.Meta)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := toml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse record %q: %w", paths.Meta, err)
	}
	return rec, nil
}

// SaveRecord writes rec atomically next to the daemon's PID file.
func (r *Registry) SaveRecord(rec Record) error {
	paths, err := r.scheme.Paths(rec.Name)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	if err := fileutil.WriteAtomic(paths.Meta, data, 0o644); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}
