// Package reconcile makes a target directory match a source directory:
// new and changed files are copied, unchanged files are left alone, and
// files and directories absent from the source are deleted. Sidecar
// metadata files (<name>.meta) survive while their owner exists in the
// source and are removed with it otherwise.
package reconcile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/extpm-labs/extpm/internal/platform"
	"go.uber.org/zap"
)

// DefaultSidecarSuffix marks sidecar metadata files.
const DefaultSidecarSuffix = ".meta"

// DefaultExcludes are never copied and never deleted.
var DefaultExcludes = []string{".git", ".DS_Store"}

// Stats counts what a reconciliation did.
type Stats struct {
	Copied    int
	Unchanged int
	Deleted   int
	Failed    int
}

// Reconciler merges directories.
type Reconciler struct {
	sidecarSuffix string
	excludes      []string
	logger        *zap.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithSidecarSuffix sets the sidecar file suffix.
func WithSidecarSuffix(suffix string) Option {
	return func(r *Reconciler) {
		if suffix != "" {
			r.sidecarSuffix = suffix
		}
	}
}

// WithExcludes replaces the exclude patterns. Patterns are doublestar globs
// matched against both the entry name and its path relative to the root.
func WithExcludes(patterns ...string) Option {
	return func(r *Reconciler) { r.excludes = patterns }
}

// WithLogger sets the logger for best-effort delete failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Reconciler.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		sidecarSuffix: DefaultSidecarSuffix,
		excludes:      DefaultExcludes,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile makes dst match src. Copy failures abort with an error; delete
// failures are logged and counted in Stats.Failed.
func (r *Reconciler) Reconcile(src, dst string) (*Stats, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", src, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", src)
	}

	stats := &Stats{}
	if err := r.reconcileDir(src, dst, "", stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *Reconciler) reconcileDir(src, dst, rel string, stats *Stats) error {
	if err := ensureDir(dst); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}

	srcFiles := make(map[string]bool)
	srcDirs := make(map[string]bool)
	for _, e := range entries {
		if r.excluded(e.Name(), filepath.Join(rel, e.Name())) {
			continue
		}
		switch {
		case e.IsDir():
			srcDirs[e.Name()] = true
		case e.Type().IsRegular():
			srcFiles[e.Name()] = true
		}
		// Symlinks and other special files are not carried over.
	}

	for name := range srcFiles {
		copied, err := syncFile(filepath.Join(src, name), filepath.Join(dst, name))
		if err != nil {
			return err
		}
		if copied {
			stats.Copied++
		} else {
			stats.Unchanged++
		}
	}

	for name := range srcDirs {
		if err := r.reconcileDir(filepath.Join(src, name), filepath.Join(dst, name), filepath.Join(rel, name), stats); err != nil {
			return err
		}
	}

	existing, err := os.ReadDir(dst)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dst, err)
	}
	for _, e := range existing {
		name := e.Name()
		if r.excluded(name, filepath.Join(rel, name)) {
			continue
		}
		path := filepath.Join(dst, name)

		if e.IsDir() {
			if srcDirs[name] {
				continue
			}
			r.remove(path, true, stats)
			if sidecar := name + r.sidecarSuffix; !srcFiles[sidecar] {
				if _, err := os.Lstat(filepath.Join(dst, sidecar)); err == nil {
					r.remove(filepath.Join(dst, sidecar), false, stats)
				}
			}
			continue
		}

		if srcFiles[name] {
			continue
		}
		if owner, ok := strings.CutSuffix(name, r.sidecarSuffix); ok && owner != "" {
			if srcFiles[owner] || srcDirs[owner] {
				continue
			}
		}
		r.remove(path, false, stats)
	}
	return nil
}

func (r *Reconciler) remove(path string, dir bool, stats *Stats) {
	var err error
	if dir {
		err = platform.RemoveAll(path)
	} else {
		err = platform.Remove(path)
	}
	switch {
	case err == nil:
		stats.Deleted++
	case os.IsNotExist(err):
	default:
		stats.Failed++
		r.logger.Warn("could not delete stale entry", zap.String("path", path), zap.Error(err))
	}
}

func (r *Reconciler) excluded(name, rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range r.excludes {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// ensureDir creates dir, replacing a file that occupies its path.
func ensureDir(dir string) error {
	if info, err := os.Lstat(dir); err == nil && !info.IsDir() {
		if err := platform.Remove(dir); err != nil {
			return fmt.Errorf("replacing file %s with directory: %w", dir, err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

// syncFile copies src to dst unless dst already has identical content. It
// reports whether a copy happened.
func syncFile(src, dst string) (bool, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", src, err)
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}

	if info, err := os.Lstat(dst); err == nil {
		if info.IsDir() {
			if err := platform.RemoveAll(dst); err != nil {
				return false, fmt.Errorf("replacing directory %s with file: %w", dst, err)
			}
		} else if info.Size() == srcInfo.Size() && info.Mode().IsRegular() {
			existing, err := os.ReadFile(dst)
			if err == nil && bytes.Equal(existing, data) {
				return false, nil
			}
		}
	}

	mode := srcInfo.Mode().Perm()
	if err := os.WriteFile(dst, data, mode); err != nil {
		if !os.IsPermission(err) {
			return false, fmt.Errorf("writing %s: %w", dst, err)
		}
		_ = platform.MakeWritable(dst)
		if err := os.WriteFile(dst, data, mode); err != nil {
			return false, fmt.Errorf("writing %s: %w", dst, err)
		}
	}
	// WriteFile keeps the mode of an existing file.
	if err := platform.Chmod(dst, mode); err != nil {
		return true, fmt.Errorf("setting mode on %s: %w", dst, err)
	}
	return true, nil
}
