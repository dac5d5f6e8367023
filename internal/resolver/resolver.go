package resolver

import (
	"github.com/extpm-labs/extpm/internal/catalog"
	"github.com/extpm-labs/extpm/internal/manifest"
	"github.com/extpm-labs/extpm/internal/registry"
	"github.com/extpm-labs/extpm/internal/version"
	"go.uber.org/zap"
)

// PlanItem is one package to fetch and merge.
type PlanItem struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	// Version is the minimum version the dependency asked for, if any.
	Version          string `json:"version,omitempty"`
	AvailableVersion string `json:"availableVersion,omitempty"`
	InstalledVersion string `json:"installedVersion,omitempty"`
	GitURL           string `json:"gitUrl,omitempty"`
	InstallPath      string `json:"installPath,omitempty"`
	ExistingPath     string `json:"existingPath,omitempty"`
	Category         string `json:"category,omitempty"`
	IsUpgrade        bool   `json:"isUpgrade"`
	RequiredBy       string `json:"requiredBy,omitempty"`

	Remote *registry.RemotePackage `json:"-"`
	Ref    manifest.Ref            `json:"ref"`
}

// Source is the origin URL recorded as the installed package's sourceUrl.
func (i *PlanItem) Source() string {
	if i.Remote != nil {
		return i.Remote.DownloadURL
	}
	return i.GitURL
}

// Unresolved is a dependency found neither in the registry nor with a gitUrl.
type Unresolved struct {
	Name       string `json:"name"`
	RequiredBy string `json:"requiredBy"`
}

// Plan is the result of a resolution.
type Plan struct {
	Root       string       `json:"root"`
	Items      []PlanItem   `json:"items"`
	Unresolved []Unresolved `json:"unresolved,omitempty"`
}

// Empty reports whether there is nothing to install.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Items) == 0
}

// Resolver builds install plans.
type Resolver struct {
	logger *zap.Logger
}

// New creates a Resolver. A nil logger discards output.
func New(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

type pending struct {
	dep        manifest.Dependency
	requiredBy string
}

// Resolve plans the dependencies of root against the installed catalog and
// the registry snapshot. Either catalog may be nil. Only registry manifests
// are walked for transitive dependencies: an installed package is already
// satisfied, and a gitUrl-only dependency has no manifest to read.
func (r *Resolver) Resolve(root *manifest.Manifest, local *catalog.Catalog, remote *registry.Snapshot) *Plan {
	plan := &Plan{Root: root.Name}

	visited := map[string]bool{root.Name: true}
	var queue []pending
	for _, d := range root.Dependencies {
		queue = append(queue, pending{dep: d, requiredBy: root.Name})
	}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		d := next.dep

		if d.Name == "" || visited[d.Name] {
			continue
		}
		visited[d.Name] = true

		item := PlanItem{
			Name:        d.Name,
			DisplayName: d.Name,
			Version:     d.Version,
			GitURL:      d.GitURL,
			InstallPath: d.InstallPath,
			RequiredBy:  next.requiredBy,
			Ref:         manifest.Ref{Name: d.Name, Version: d.Version, Origin: manifest.OriginRemote},
		}

		if installed, ok := local.Lookup(d.Name); ok {
			if version.AtLeast(installed.Version, d.Version) {
				continue
			}
			item.IsUpgrade = true
			item.InstalledVersion = installed.Version
			item.ExistingPath = installed.FolderPath
			item.Category = installed.Category
		}

		if rp, ok := remote.Lookup(d.Name); ok {
			item.Remote = rp
			item.DisplayName = rp.Title()
			item.AvailableVersion = rp.Version
			item.Ref = rp.Ref()
			if item.Category == "" {
				item.Category = rp.Category
			}
			if d.Version != "" && version.Compare(rp.Version, d.Version) < 0 {
				r.logger.Warn("registry version is older than required",
					zap.String("package", d.Name),
					zap.String("available", rp.Version),
					zap.String("required", d.Version))
			}
			for _, sub := range rp.Dependencies {
				queue = append(queue, pending{dep: sub, requiredBy: d.Name})
			}
		} else if d.GitURL == "" {
			r.logger.Warn("dependency not found in registry and has no gitUrl, skipping",
				zap.String("package", d.Name),
				zap.String("required_by", next.requiredBy))
			plan.Unresolved = append(plan.Unresolved, Unresolved{Name: d.Name, RequiredBy: next.requiredBy})
			continue
		}

		plan.Items = append(plan.Items, item)
	}

	return plan
}
