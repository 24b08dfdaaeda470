package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestStem(t *testing.T) {
	tests := map[string]string{
		"/music/song.mflac":     "song",
		"track.name.mgg":        "track.name",
		"noext":                 "noext",
		".mflac":                ".mflac",
		"dir/with.dot/file.MGG": "file",
	}
	for in, want := range tests {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	ok, err := Exists(path)
	if err != nil || ok {
		t.Fatalf("expected missing, got %v %v", ok, err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ok, err = Exists(path)
	if err != nil || !ok {
		t.Fatalf("expected present, got %v %v", ok, err)
	}
}

func TestRegularFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := RegularFile(filepath.Join(dir, "missing")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
	if _, err := RegularFile(dir); !errors.Is(err, ErrNotRegular) {
		t.Fatalf("expected ErrNotRegular for directory, got %v", err)
	}
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := RegularFile(path)
	if err != nil || info.Size() != 4 {
		t.Fatalf("unexpected result %v %v", info, err)
	}
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	tmp := filepath.Join(dir, "0123abcd")
	dst := filepath.Join(dir, "song.flac")
	if err := os.WriteFile(tmp, []byte("decoded"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Publish(tmp, dst); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be gone, got %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "decoded" {
		t.Fatalf("unexpected destination %q %v", got, err)
	}
}

func TestPublishMissingTemp(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "song.flac")
	if err := Publish(filepath.Join(dir, "absent"), dst); err == nil {
		t.Fatal("expected error for missing temp file")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected no destination file, got %v", err)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDir(file); err == nil {
		t.Fatal("expected error when path is a file")
	}
}
