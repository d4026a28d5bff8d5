// Package fileutil provides file utilities for staging and artifact writes
// with tmp+mv semantics.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Exists returns true if the file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsNonEmpty returns true if the file exists and has non-zero size.
func IsNonEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// RemoveQuiet removes path, ignoring not-exist errors. Returns any other error.
func RemoveQuiet(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CopyToFile streams r into a new file at dst, syncing before close so the
// data is durable on every successful return. The partial file is removed
// on any error.
func CopyToFile(dst string, r io.Reader) (int64, error) {
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return 0, err
	}

	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(dst)
		return n, fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(dst)
		return n, fmt.Errorf("sync %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return n, fmt.Errorf("close %s: %w", dst, err)
	}
	return n, nil
}
