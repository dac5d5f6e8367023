package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/extpm-labs/extpm/internal/catalog"
	"github.com/extpm-labs/extpm/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUninstallRemovesFolderAndSidecar(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "tween")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Runtime"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Runtime", "Tween.cs"), []byte("x"), 0444))
	require.NoError(t, os.WriteFile(dir+".meta", []byte("guid"), 0644))

	pkg := &catalog.Package{Manifest: manifest.Manifest{Name: "tween"}, FolderPath: dir, Kind: catalog.KindExtensions}
	require.NoError(t, Uninstall(pkg, ""))

	assert.NoDirExists(t, dir)
	assert.NoFileExists(t, dir+".meta")
}

func TestUninstallWithoutSidecar(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "curves")
	require.NoError(t, os.MkdirAll(dir, 0755))

	pkg := &catalog.Package{Manifest: manifest.Manifest{Name: "curves"}, FolderPath: dir}
	require.NoError(t, Uninstall(pkg, ".meta"))
	assert.NoDirExists(t, dir)
}

func TestUninstallRefusesTool(t *testing.T) {
	dir := t.TempDir()
	pkg := &catalog.Package{Manifest: manifest.Manifest{Name: "extpm"}, FolderPath: dir, Kind: catalog.KindTool}

	err := Uninstall(pkg, "")
	assert.ErrorIs(t, err, ErrSelfUninstall)
	assert.DirExists(t, dir)
}

func TestUninstallNil(t *testing.T) {
	assert.ErrorIs(t, Uninstall(nil, ""), catalog.ErrNotInstalled)
}
