package updater

import (
	"sort"

	"github.com/extpm-labs/extpm/internal/catalog"
	"github.com/extpm-labs/extpm/internal/registry"
	"github.com/extpm-labs/extpm/internal/version"
)

// Update is an installed package with a newer registry version.
type Update struct {
	Name      string `json:"name"`
	Title     string `json:"displayName"`
	Installed string `json:"installedVersion"`
	Available string `json:"availableVersion"`
	Path      string `json:"path"`
}

// Check compares every installed package with the registry listing and
// returns the outdated ones sorted by name. Packages the registry does not
// list, and the tool's own package, are never reported.
func Check(cat *catalog.Catalog, snap *registry.Snapshot) []Update {
	var updates []Update
	for _, name := range cat.Names() {
		local, _ := cat.Lookup(name)
		if local.Kind == catalog.KindTool {
			continue
		}
		remote, ok := snap.Lookup(name)
		if !ok || remote.Version == "" {
			continue
		}
		if version.Compare(local.Version, remote.Version) >= 0 {
			continue
		}
		updates = append(updates, Update{
			Name:      name,
			Title:     remote.Title(),
			Installed: local.Version,
			Available: remote.Version,
			Path:      local.FolderPath,
		})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Name < updates[j].Name })
	return updates
}

// Names returns the names of updates.
func Names(updates []Update) []string {
	names := make([]string, len(updates))
	for i, u := range updates {
		names[i] = u.Name
	}
	return names
}
