package registry

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"attyvo/internal/naming"
)

func TestListSelectsOnlyRegularPIDFiles(t *testing.T) {
	base := filepath.Join(t.TempDir(), "pipes")
	reg := New(naming.New(base))

	names, err := reg.List()
	if err != nil {
		t.Fatalf("List on missing dir: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty list, got %v", names)
	}
	if _, err := os.Stat(base); err != nil {
		t.Fatalf("List must create the base directory: %v", err)
	}

	for _, file := range []string{"beta.pid", "alpha.pid", "alpha_stdin", "alpha.meta", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(base, file), []byte("1\n"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", file, err)
		}
	}
	if err := os.Mkdir(filepath.Join(base, "dir.pid"), 0o755); err != nil {
		t.Fatalf("seed dir: %v", err)
	}

	names, err = reg.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if want := []string{"alpha", "beta"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	base := t.TempDir()
	reg := New(naming.New(base))
	created := time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)
	rec := Record{
		Name:          "repl",
		LaunchID:      "0b6c9a3e-1111-4b7e-9d6f-000000000001",
		SupervisorPID: 321,
		ChildPID:      322,
		StartTime:     1760000000123,
		Command:       "python3",
		Args:          []string{"-i", "-q"},
		CreatedAt:     created,
	}
	if err := reg.SaveRecord(rec); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	got, err := reg.LoadRecord("repl")
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	got.CreatedAt = created
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("LoadRecord = %#v, want %#v", got, rec)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the record file, found %d entries", len(entries))
	}
}

func TestLoadRecordMissing(t *testing.T) {
	reg := New(naming.New(t.TempDir()))
	if _, err := reg.LoadRecord("ghost"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadRecord error = %v, want ErrNotExist", err)
	}
	if _, err := reg.LoadRecord("../ghost"); !errors.Is(err, naming.ErrInvalidName) {
		t.Fatalf("LoadRecord error = %v, want ErrInvalidName", err)
	}
}
