package updater

import (
	"fmt"
	"io"

	"github.com/extpm-labs/extpm/internal/branding"
	"github.com/extpm-labs/extpm/internal/catalog"
	"github.com/extpm-labs/extpm/internal/registry"
)

// PrintBanner prints an update notice when the cached registry listing has
// newer versions of installed packages. A nil snapshot prints nothing.
func PrintBanner(w io.Writer, cat *catalog.Catalog, cached *registry.Snapshot) {
	if cached == nil {
		return
	}
	updates := Check(cat, cached)
	if len(updates) == 0 {
		return
	}

	noun := "updates"
	if len(updates) == 1 {
		noun = "update"
	}
	fmt.Fprintf(w, "\n%d package %s available", len(updates), noun)
	if len(updates) == 1 {
		u := updates[0]
		fmt.Fprintf(w, ": %s %s -> %s", u.Name, orDash(u.Installed), u.Available)
	}
	fmt.Fprintf(w, "\n    Run `%s update` to upgrade\n\n", branding.CLIName())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
