package installer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/extpm-labs/extpm/internal/manifest"
)

// locateContent finds the package folder inside an extracted archive. A
// folder named folder wins (shallowest first); otherwise the folder whose
// manifest declares name; otherwise, for single-package repositories with
// no folder hint, the archive root itself.
func locateContent(root, folder, name string, manifestNames []string) (string, error) {
	if folder != "" {
		if dir := shallowest(findDirs(root, func(p string, d os.DirEntry) bool {
			return d.IsDir() && d.Name() == folder
		})); dir != "" {
			return dir, nil
		}
	}

	isManifest := make(map[string]bool, len(manifestNames))
	for _, n := range manifestNames {
		isManifest[n] = true
	}
	var matches []string
	for _, p := range findDirs(root, func(p string, d os.DirEntry) bool {
		return !d.IsDir() && isManifest[d.Name()]
	}) {
		if m, err := manifest.Parse(p); err == nil && m.Name == name {
			matches = append(matches, filepath.Dir(p))
		}
	}
	if dir := shallowest(matches); dir != "" {
		return dir, nil
	}

	if folder == "" {
		if _, err := manifest.Find(root, manifestNames...); err == nil {
			return root, nil
		}
	}
	return "", ErrContentNotFound
}

// findDirs walks root concurrently and returns the paths accepted by match.
func findDirs(root string, match func(p string, d os.DirEntry) bool) []string {
	var (
		mu  sync.Mutex
		out []string
	)
	conf := fastwalk.Config{Follow: false}
	_ = fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p == root {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if match(p, d) {
			mu.Lock()
			out = append(out, p)
			mu.Unlock()
		}
		return nil
	})
	return out
}

// shallowest picks the path with the fewest separators, then the
// lexically smallest.
func shallowest(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	sort.Slice(paths, func(i, j int) bool {
		di := strings.Count(paths[i], string(os.PathSeparator))
		dj := strings.Count(paths[j], string(os.PathSeparator))
		if di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})
	return paths[0]
}
