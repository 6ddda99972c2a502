package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFileWithDirs writes data to path, creating missing parent directories.
func WriteFileWithDirs(path string, data []byte, perm fs.FileMode) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, perm)
}

// ReplaceFile swaps the contents of path through a temp file in the same
// directory and a rename. An existing file keeps its mode; perm applies only
// when path is new.
func ReplaceFile(path string, data []byte, perm fs.FileMode) error {
	mode := perm
	info, err := os.Stat(path)
	switch {
	case err == nil:
		mode = info.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat %q: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) error {
		_ = os.Remove(tmpName)
		return cause
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return cleanup(fmt.Errorf("write %q: %w", tmpName, err))
	}
	if err := tmp.Close(); err != nil {
		return cleanup(fmt.Errorf("close %q: %w", tmpName, err))
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return cleanup(fmt.Errorf("chmod %q: %w", tmpName, err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return cleanup(fmt.Errorf("replace %q: %w", path, err))
	}
	return nil
}
