package manifest

import "strings"

// Manifest is the identity and metadata of one package.
type Manifest struct {
	Name         string       `json:"name" yaml:"name"`
	DisplayName  string       `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Version      string       `json:"version,omitempty" yaml:"version,omitempty"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	Author       string       `json:"author,omitempty" yaml:"author,omitempty"`
	Category     string       `json:"category,omitempty" yaml:"category,omitempty"`
	DownloadURL  string       `json:"downloadUrl,omitempty" yaml:"downloadUrl,omitempty"`
	SourceURL    string       `json:"sourceUrl,omitempty" yaml:"sourceUrl,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Dependency is a reference to another package declared by a manifest.
type Dependency struct {
	Name        string `json:"name" yaml:"name"`
	GitURL      string `json:"gitUrl,omitempty" yaml:"gitUrl,omitempty"`
	InstallPath string `json:"installPath,omitempty" yaml:"installPath,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
}

// CategoryCore is the reserved category for packages under the core root.
const CategoryCore = "Core"

// Title returns the display name, falling back to the package name.
func (m *Manifest) Title() string {
	if strings.TrimSpace(m.DisplayName) != "" {
		return m.DisplayName
	}
	return m.Name
}

// Clone returns a deep copy of m.
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}
	c := *m
	if m.Dependencies != nil {
		c.Dependencies = append([]Dependency(nil), m.Dependencies...)
	}
	return &c
}

// Origin tags where a package reference was observed.
type Origin int

const (
	// OriginLocal is a package installed on disk.
	OriginLocal Origin = iota
	// OriginRemote is a package listed by a fresh registry fetch.
	OriginRemote
	// OriginCached is a registry package served from the on-disk cache.
	OriginCached
)

// String returns the origin's lowercase name.
func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	case OriginCached:
		return "cached"
	default:
		return "unknown"
	}
}

// Ref identifies a package independent of where it was found.
type Ref struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Origin  Origin `json:"origin"`
}

// RefOf builds a Ref for m observed at origin o.
func RefOf(m *Manifest, o Origin) Ref {
	return Ref{Name: m.Name, Version: m.Version, Origin: o}
}
