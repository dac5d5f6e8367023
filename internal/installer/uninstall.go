package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/extpm-labs/extpm/internal/catalog"
	"github.com/extpm-labs/extpm/internal/platform"
	"github.com/extpm-labs/extpm/internal/reconcile"
)

// Uninstall removes an installed package's folder along with the sidecar
// file next to it. The tool's own package cannot be removed.
func Uninstall(pkg *catalog.Package, sidecarSuffix string) error {
	if pkg == nil || pkg.FolderPath == "" {
		return catalog.ErrNotInstalled
	}
	if pkg.Kind == catalog.KindTool {
		return fmt.Errorf("%w: %s", ErrSelfUninstall, pkg.Name)
	}
	if sidecarSuffix == "" {
		sidecarSuffix = reconcile.DefaultSidecarSuffix
	}

	dir := filepath.Clean(pkg.FolderPath)
	if err := platform.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	if err := platform.Remove(dir + sidecarSuffix); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", dir+sidecarSuffix, err)
	}
	return nil
}
