package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/extpm-labs/extpm/internal/manifest"
)

// ErrNotInstalled is returned when a package name is not in the catalog.
var ErrNotInstalled = errors.New("package not installed")

// Kind identifies the role of a scanned root.
type Kind int

const (
	// KindExtensions is the default install root.
	KindExtensions Kind = iota
	// KindCore holds core packages; empty categories default to "Core".
	KindCore
	// KindPackageCache is the platform's resolved package cache.
	KindPackageCache
	// KindTool is the directory containing the tool's own package.
	KindTool
)

func (k Kind) String() string {
	switch k {
	case KindExtensions:
		return "extensions"
	case KindCore:
		return "core"
	case KindPackageCache:
		return "package-cache"
	case KindTool:
		return "tool"
	default:
		return "unknown"
	}
}

// Root is a directory whose immediate subdirectories are candidate packages.
type Root struct {
	Path string
	Kind Kind
}

// includesSelf reports whether the root directory itself may be a package.
func (r Root) includesSelf() bool {
	return r.Kind == KindCore || r.Kind == KindTool
}

// Package is an installed package: its manifest plus where it was found.
type Package struct {
	manifest.Manifest
	FolderPath   string `json:"folderPath"`
	ManifestPath string `json:"manifestPath"`
	Kind         Kind   `json:"-"`
	IsInstalled  bool   `json:"isInstalled"`
}

// Ref returns the package's local reference.
func (p *Package) Ref() manifest.Ref {
	return manifest.RefOf(&p.Manifest, manifest.OriginLocal)
}

// Conflict records a second directory that declared an already-seen name.
type Conflict struct {
	Name        string `json:"name"`
	KeptPath    string `json:"keptPath"`
	IgnoredPath string `json:"ignoredPath"`
}

// Catalog is the deduplicated result of a scan, in discovery order.
type Catalog struct {
	Packages  []*Package `json:"packages"`
	Conflicts []Conflict `json:"conflicts,omitempty"`

	byName map[string]*Package
}

func newCatalog() *Catalog {
	return &Catalog{byName: make(map[string]*Package)}
}

// New builds a catalog from packages in order; later duplicates of a name
// are recorded as conflicts.
func New(pkgs ...*Package) *Catalog {
	c := newCatalog()
	for _, p := range pkgs {
		if kept, ok := c.add(p); !ok {
			c.Conflicts = append(c.Conflicts, Conflict{Name: p.Name, KeptPath: kept.FolderPath, IgnoredPath: p.FolderPath})
		}
	}
	return c
}

// add keeps p unless its name is taken, in which case it returns the
// existing entry and false.
func (c *Catalog) add(p *Package) (*Package, bool) {
	if existing, ok := c.byName[p.Name]; ok {
		return existing, false
	}
	c.byName[p.Name] = p
	c.Packages = append(c.Packages, p)
	return p, true
}

// Lookup returns the installed package with the given name.
func (c *Catalog) Lookup(name string) (*Package, bool) {
	if c == nil {
		return nil, false
	}
	p, ok := c.byName[name]
	return p, ok
}

// Get is Lookup returning ErrNotInstalled for unknown names.
func (c *Catalog) Get(name string) (*Package, error) {
	if p, ok := c.Lookup(name); ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotInstalled, name)
}

// Names returns the installed package names in sorted order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of installed packages.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Packages)
}
