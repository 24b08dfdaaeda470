package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qmunlock/internal/config"
	"qmunlock/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOutputDirectory_Missing(t *testing.T) {
	result := CheckOutputDirectory(filepath.Join(t.TempDir(), "a", "b"))
	if !result.Passed {
		t.Fatalf("missing output dir under writable parent should pass: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckScript(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.js")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "decrypt.js")
	if err := os.WriteFile(good, []byte("rpc.exports = {};"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		pass bool
	}{
		{"unset", "", false},
		{"missing", filepath.Join(dir, "absent.js"), false},
		{"directory", dir, false},
		{"empty", empty, false},
		{"ok", good, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckScript(tc.path); got.Passed != tc.pass {
				t.Fatalf("CheckScript(%q) passed=%v detail=%q", tc.path, got.Passed, got.Detail)
			}
		})
	}
}

func TestCheckExtensions(t *testing.T) {
	cfg := config.Default()
	result := CheckExtensions(&cfg)
	if !result.Passed || result.Detail != "mflac -> flac, mgg -> ogg" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckRuntime(t *testing.T) {
	if CheckRuntime(nil).Passed {
		t.Fatal("nil runtime must fail")
	}
	result := CheckRuntime(testsupport.NewFakeRuntime(nil))
	if !result.Passed || !strings.Contains(result.Detail, "Local System") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckTarget(t *testing.T) {
	rt := testsupport.NewFakeRuntime(nil)
	ok := CheckTarget(context.Background(), rt, "qqmusic")
	if !ok.Passed || !strings.Contains(ok.Detail, "4242") {
		t.Fatalf("unexpected result %+v", ok)
	}

	missing := CheckTarget(context.Background(), rt, "spotify")
	if missing.Passed || !strings.Contains(missing.Detail, "start the target application") {
		t.Fatalf("unexpected result %+v", missing)
	}

	rt.EnumerateErr = errors.New("access denied")
	if CheckTarget(context.Background(), rt, "qqmusic").Passed {
		t.Fatal("enumeration failure must fail the check")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg, testsupport.NewFakeRuntime(nil))
	if len(results) != 7 {
		t.Fatalf("expected 7 results, got %d", len(results))
	}
	if Failed(results) {
		for _, r := range results {
			if !r.Passed {
				t.Errorf("check %q failed: %s", r.Name, r.Detail)
			}
		}
	}

	withoutRuntime := RunAll(context.Background(), cfg, nil)
	if len(withoutRuntime) != 6 || !Failed(withoutRuntime) {
		t.Fatalf("expected runtime failure without target check, got %+v", withoutRuntime)
	}
}
