package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")

	if Exists(path) {
		t.Error("Exists = true for missing file")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Error("Exists = false for present file")
	}
}

func TestIsNonEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	full := filepath.Join(dir, "full")

	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if IsNonEmpty(empty) {
		t.Error("IsNonEmpty = true for empty file")
	}
	if !IsNonEmpty(full) {
		t.Error("IsNonEmpty = false for non-empty file")
	}
	if IsNonEmpty(filepath.Join(dir, "missing")) {
		t.Error("IsNonEmpty = true for missing file")
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("stat after EnsureDir: %v", err)
	}

	// Idempotent.
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir (again): %v", err)
	}
}

func TestRemoveQuiet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RemoveQuiet(path); err != nil {
		t.Errorf("RemoveQuiet: %v", err)
	}
	if err := RemoveQuiet(path); err != nil {
		t.Errorf("RemoveQuiet on missing file: %v", err)
	}
}

func TestCopyToFile(t *testing.T) {
	t.Run("creates parents and copies", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "nested", "dir", "out.csv")
		n, err := CopyToFile(dst, strings.NewReader("hello"))
		if err != nil {
			t.Fatalf("CopyToFile: %v", err)
		}
		if n != 5 {
			t.Errorf("n = %d, want 5", n)
		}

		data, err := os.ReadFile(dst)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "hello" {
			t.Errorf("content = %q", data)
		}
	})

	t.Run("removes partial file on error", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "out")
		if _, err := CopyToFile(dst, failingReader{}); err == nil {
			t.Fatal("expected error from failing reader")
		}
		if Exists(dst) {
			t.Error("partial file left behind after failed copy")
		}
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, os.ErrDeadlineExceeded
}
