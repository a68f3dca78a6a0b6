package launcher

import (
	"errors"
	"reflect"
	"testing"

	"attyvo/internal/config"
	"attyvo/internal/naming"
)

func TestRequestSurvivesEncoding(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.BaseDir = "/tmp/pipes dir"
	cfg.Paths.LogDir = "/tmp/pipes dir/logs"
	cfg.Terminal.Rows = 50
	req := NewRequest(&cfg, "repl", "/usr/bin/python3", []string{"-i", "--name=x", "--", ""})

	got, err := ParseRequest(req.Encode())
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if !reflect.DeepEqual(got, req) {
		t.Fatalf("decoded %#v\nwant    %#v", got, req)
	}

	rebuilt := got.Config()
	if rebuilt.Terminal.Rows != 50 || rebuilt.Paths.BaseDir != cfg.Paths.BaseDir || rebuilt.Launch.WorkDir != cfg.Launch.WorkDir {
		t.Fatalf("Config() = %+v", rebuilt)
	}
}

func TestParseRequestRejects(t *testing.T) {
	cases := map[string][]string{
		"no command":    {"--name=a", "--base-dir=/tmp/x", "--"},
		"bad stage":     {"--stage=later", "--name=a", "--base-dir=/tmp/x", "--", "cat"},
		"no base dir":   {"--name=a", "--", "cat"},
		"unknown flag":  {"--colour=red", "--name=a", "--base-dir=/tmp/x", "--", "cat"},
		"traversal":     {"--name=../a", "--base-dir=/tmp/x", "--", "cat"},
		"empty command": {"--name=a", "--base-dir=/tmp/x", "--", ""},
	}
	for label, args := range cases {
		if _, err := ParseRequest(args); err == nil {
			t.Fatalf("%s: expected error", label)
		}
	}
	if _, err := ParseRequest([]string{"--name=a/b", "--base-dir=/x", "--", "cat"}); !errors.Is(err, naming.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}
