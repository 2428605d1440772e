package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/nodewee/ruling-to-text/pkg/constants"
)

// IsValidFile reports whether path names a regular, non-empty file.
// A zero-byte file is treated as absent.
func IsValidFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// FileExists reports whether anything exists at path
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsCommandAvailable checks if a command is available in PATH
func IsCommandAvailable(command string) bool {
	if command == "" {
		return false
	}
	_, err := exec.LookPath(command)
	return err == nil
}

// AtomicFile is a temp file that becomes dest only on Commit
type AtomicFile struct {
	*os.File
	dest string
	done bool
}

// CreateAtomic opens a temporary file next to dest. Callers write to it and
// then Commit; Abort (safe to defer) removes the temp file if Commit did not run.
func CreateAtomic(dest string) (*AtomicFile, error) {
	dir := filepath.Dir(dest)
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, filepath.Base(dest)+constants.TempFileSuffix)
	if err != nil {
		return nil, fmt.Errorf("create temp file for %s: %w", dest, err)
	}
	return &AtomicFile{File: f, dest: dest}, nil
}

// Commit flushes, closes and renames the temp file onto dest
func (a *AtomicFile) Commit() error {
	if a.done {
		return nil
	}
	a.done = true
	tmp := a.Name()
	if err := a.Sync(); err != nil {
		a.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := a.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Chmod(tmp, constants.DefaultFilePermission); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, a.dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", a.dest, err)
	}
	return nil
}

// Abort discards the temp file. It is a no-op after Commit.
func (a *AtomicFile) Abort() {
	if a.done {
		return
	}
	a.done = true
	a.Close()
	os.Remove(a.Name())
}

// WriteFileAtomic writes data to path via a temp file and rename
func WriteFileAtomic(path string, data []byte) error {
	f, err := CreateAtomic(path)
	if err != nil {
		return err
	}
	defer f.Abort()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Commit()
}
