package installer

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// extract unpacks the zip at archivePath into dest and returns the
// directory holding the repository contents: the single top-level folder
// branch archives wrap everything in, or dest itself.
func extract(archivePath, dest string) (string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchiveInvalid, err)
	}
	defer zr.Close()

	if len(zr.File) == 0 {
		return "", fmt.Errorf("%w: archive is empty", ErrArchiveInvalid)
	}

	for _, zf := range zr.File {
		name := strings.TrimSpace(zf.Name)
		if name == "" {
			continue
		}
		rel := path.Clean(strings.ReplaceAll(name, "\\", "/"))
		if rel == "." {
			continue
		}
		if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
			return "", fmt.Errorf("%w: entry %q escapes the archive", ErrArchiveInvalid, zf.Name)
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if err := ensureWithinRoot(dest, target); err != nil {
			return "", fmt.Errorf("%w: entry %q: %v", ErrArchiveInvalid, zf.Name, err)
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", fmt.Errorf("creating %s: %w", target, err)
			}
			continue
		}
		if !zf.Mode().IsRegular() {
			// Symlinks and devices are not installed.
			continue
		}
		if err := writeEntry(zf, target); err != nil {
			return "", err
		}
	}

	return archiveRoot(dest)
}

func writeEntry(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}

	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrArchiveInvalid, zf.Name, err)
	}
	defer rc.Close()

	mode := zf.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0200)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("%w: extracting %s: %v", ErrArchiveInvalid, zf.Name, err)
	}
	return f.Close()
}

func archiveRoot(dest string) (string, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dest, err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dest, entries[0].Name()), nil
	}
	return dest, nil
}

func ensureWithinRoot(root, target string) error {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("path escapes root")
	}
	return nil
}
