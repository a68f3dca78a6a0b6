package pidfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireWritesPIDAndHoldsLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "repl.pid")

	lock, err := Acquire(path, 4242)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	pid, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if pid != 4242 {
		t.Fatalf("Read = %d, want 4242", pid)
	}

	if _, err := Acquire(path, 1); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Acquire error = %v, want ErrLocked", err)
	}
	locked, err := Locked(path)
	if err != nil {
		t.Fatalf("Locked: %v", err)
	}
	if !locked {
		t.Fatal("expected pid file to report locked")
	}
}

func TestAcquireOverwritesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.pid")
	if err := os.WriteFile(path, []byte("999999\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	lock, err := Acquire(path, 77)
	if err != nil {
		t.Fatalf("Acquire over stale file: %v", err)
	}
	defer lock.Release()

	pid, err := Read(path)
	if err != nil || pid != 77 {
		t.Fatalf("Read = %d, %v; want 77", pid, err)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycle.pid")
	lock, err := Acquire(path, 10)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Release must not remove the file: %v", err)
	}
	again, err := Acquire(path, 11)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	_ = again.Release()
}

func TestReadRejectsCorruptContent(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"text.pid":     "not-a-pid",
		"negative.pid": "-5",
		"zero.pid":     "0\n",
		"empty.pid":    "",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := Read(path); !errors.Is(err, ErrInvalidPID) {
			t.Fatalf("Read(%s) error = %v, want ErrInvalidPID", name, err)
		}
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.pid"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Read error = %v, want ErrNotExist", err)
	}
}

func TestLockedFalseWithoutHolder(t *testing.T) {
	dir := t.TempDir()
	locked, err := Locked(filepath.Join(dir, "absent.pid"))
	if err != nil || locked {
		t.Fatalf("Locked(absent) = %v, %v", locked, err)
	}
	path := filepath.Join(dir, "free.pid")
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	locked, err = Locked(path)
	if err != nil || locked {
		t.Fatalf("Locked(free) = %v, %v", locked, err)
	}
}
