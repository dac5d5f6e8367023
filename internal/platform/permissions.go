package platform

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}

// MakeWritable adds the owner write bit to path.
func MakeWritable(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	// os.Chmod rather than Chmod: on Windows it clears the read-only attribute.
	return os.Chmod(path, info.Mode().Perm()|0200)
}

// Remove deletes a file or empty directory. On a permission error the entry
// and its parent are made writable and the removal is retried once.
func Remove(path string) error {
	err := os.Remove(path)
	if err == nil || !errors.Is(err, fs.ErrPermission) {
		return err
	}
	_ = MakeWritable(filepath.Dir(path))
	_ = MakeWritable(path)
	return os.Remove(path)
}

// RemoveAll deletes path and everything below it, clearing read-only bits
// on a permission error before retrying once.
func RemoveAll(path string) error {
	err := os.RemoveAll(path)
	if err == nil || !errors.Is(err, fs.ErrPermission) {
		return err
	}
	_ = MakeWritable(filepath.Dir(path))
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr == nil {
			_ = MakeWritable(p)
		}
		return nil
	})
	return os.RemoveAll(path)
}
