package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"qmunlock/internal/services"
	"qmunlock/internal/testsupport"
)

func TestNoArgumentPrintsStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env)
	if err != nil {
		t.Fatalf("no-arg run: %v", err)
	}
	requireContains(t, out, "No file supplied")
	if len(env.runtime.Attached()) != 0 {
		t.Fatal("no-arg run must not attach")
	}
}

func TestNoArgumentIgnoresBrokenConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[watch]\nsettle_seconds = -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env)
	if err != nil {
		t.Fatalf("no-arg run should not load the config: %v", err)
	}
	requireContains(t, out, "No file supplied")
}

func TestTooManyArguments(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "a.mflac", "b.mflac"); err == nil {
		t.Fatal("expected error for two file arguments")
	}
}

func TestConvertFileCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.runtime.CallMessages = []string{`{"type":"log","level":"info","payload":"key ok"}`}

	dir := t.TempDir()
	src := filepath.Join(dir, "Song Title.mflac")
	testsupport.WriteFile(t, src, 32)

	out, _, err := runCLI(t, env, src)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	requireContains(t, out, "Received "+src)
	requireContains(t, out, "Converted: "+filepath.Join(dir, "Song Title.flac"))
	requireContains(t, out, `- {"type":"log","level":"info","payload":"key ok"}`)

	data, err := os.ReadFile(filepath.Join(dir, "Song Title.flac"))
	if err != nil || string(data) != "AUDIO" {
		t.Fatalf("unexpected output %q %v", data, err)
	}
	if !env.runtime.Closed() {
		t.Fatal("runtime should be released when the command ends")
	}

	out, _, err = runCLI(t, env, src)
	if err != nil {
		t.Fatalf("second convert: %v", err)
	}
	requireContains(t, out, "Skipped:")
}

func TestConvertFileErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	clip := filepath.Join(dir, "clip.mp3")
	testsupport.WriteFile(t, clip, 4)

	tests := []struct {
		name string
		args []string
		want error
		text string
	}{
		{"missing", []string{filepath.Join(dir, "absent.mflac")}, services.ErrFileNotFound, "does not exist"},
		{"directory", []string{dir}, services.ErrNotAFile, "not a file"},
		{"unsupported", []string{clip}, services.ErrUnsupportedExtension, "unsupported extension"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, env, tc.args...)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			requireContains(t, err.Error(), tc.text)
		})
	}
}

func TestConvertTargetNotFoundReportsHint(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(t.TempDir(), "song.mgg")
	testsupport.WriteFile(t, src, 4)

	_, _, err := runCLI(t, env, "--target", "spotify", src)
	if !errors.Is(err, services.ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}

	var buf bytes.Buffer
	reportError(&buf, err)
	requireContains(t, buf.String(), "error: ")
	requireContains(t, buf.String(), "hint: start the target application first")
}

func TestScriptFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	script := filepath.Join(t.TempDir(), "alt.js")
	if err := os.WriteFile(script, []byte("// alternate\nrpc.exports = {};"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "song.mflac")
	testsupport.WriteFile(t, src, 4)

	if _, _, err := runCLI(t, env, "--script", script, src); err != nil {
		t.Fatalf("convert: %v", err)
	}
	sources := env.runtime.Sources()
	if len(sources) != 1 || sources[0] != "// alternate\nrpc.exports = {};" {
		t.Fatalf("expected alternate script to be loaded, got %q", sources)
	}
}
