package catalog

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/extpm-labs/extpm/internal/manifest"
	"github.com/extpm-labs/extpm/internal/userdata"
	"go.uber.org/zap"
)

// Scanner walks install roots and builds a Catalog.
type Scanner struct {
	roots         []Root
	manifestNames []string
	logger        *zap.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithManifestNames overrides the manifest file names looked up per directory.
func WithManifestNames(names ...string) Option {
	return func(s *Scanner) {
		if len(names) > 0 {
			s.manifestNames = names
		}
	}
}

// WithLogger sets the logger used for conflicts and skipped directories.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScanner creates a Scanner over roots, scanned in the given order.
func NewScanner(roots []Root, opts ...Option) *Scanner {
	s := &Scanner{
		roots:         roots,
		manifestNames: manifest.DefaultNames,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Roots returns the roots this scanner walks.
func (s *Scanner) Roots() []Root {
	return s.roots
}

// ScanAll scans every root and returns the catalog. Unreadable roots,
// directories without a manifest and unparsable manifests are skipped.
func (s *Scanner) ScanAll() *Catalog {
	cat := newCatalog()
	for _, root := range s.roots {
		s.scanRoot(cat, root)
	}
	return cat
}

func (s *Scanner) scanRoot(cat *Catalog, root Root) {
	if root.Path == "" {
		return
	}
	if root.includesSelf() {
		s.scanDir(cat, root, root.Path)
	}

	entries, err := os.ReadDir(root.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("reading install root",
				zap.String("path", root.Path), zap.Error(err))
		}
		return
	}

	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		s.scanDir(cat, root, filepath.Join(root.Path, e.Name()))
	}
}

func (s *Scanner) scanDir(cat *Catalog, root Root, dir string) {
	path, err := manifest.Find(dir, s.manifestNames...)
	if err != nil {
		return
	}
	m, err := manifest.Parse(path)
	if err != nil {
		s.logger.Warn("skipping package with unreadable manifest",
			zap.String("path", path), zap.Error(err))
		return
	}
	if root.Kind == KindCore && m.Category == "" {
		m.Category = manifest.CategoryCore
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	pkg := &Package{
		Manifest:     *m,
		FolderPath:   abs,
		ManifestPath: path,
		Kind:         root.Kind,
		IsInstalled:  true,
	}

	if kept, ok := cat.add(pkg); !ok {
		if kept.FolderPath == abs {
			return
		}
		c := Conflict{Name: m.Name, KeptPath: kept.FolderPath, IgnoredPath: abs}
		cat.Conflicts = append(cat.Conflicts, c)
		s.logger.Warn("duplicate package name, keeping first",
			zap.String("package", c.Name),
			zap.String("kept", c.KeptPath),
			zap.String("ignored", c.IgnoredPath))
	}
}

// DefaultRoots returns the standard scan order: extensions, core, package
// cache, then the tool's own directory.
func DefaultRoots(l *userdata.Layout) ([]Root, error) {
	type getter struct {
		fn   func() (string, error)
		kind Kind
	}
	getters := []getter{
		{l.ExtensionsRoot, KindExtensions},
		{l.CoreRoot, KindCore},
		{l.PackageCacheRoot, KindPackageCache},
		{l.ToolRoot, KindTool},
	}

	var roots []Root
	for _, g := range getters {
		p, err := g.fn()
		if err != nil {
			return nil, err
		}
		roots = append(roots, Root{Path: p, Kind: g.kind})
	}
	return roots, nil
}
