package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/extpm-labs/extpm/internal/userdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writePackage(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extension.json"), []byte(body), 0644))
}

func TestScanAll_CollectsPackages(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "alpha"), `{"name":"alpha","version":"1.0.0"}`)
	writePackage(t, filepath.Join(root, "beta"), `{"name":"beta","version":"2.0.0","category":"Tools"}`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))

	cat := NewScanner([]Root{{Path: root, Kind: KindExtensions}}).ScanAll()

	require.Equal(t, 2, cat.Len())
	assert.Equal(t, []string{"alpha", "beta"}, cat.Names())

	beta, ok := cat.Lookup("beta")
	require.True(t, ok)
	assert.True(t, beta.IsInstalled)
	assert.Equal(t, filepath.Join(root, "beta"), beta.FolderPath)
	assert.Equal(t, "Tools", beta.Category)
	assert.Empty(t, cat.Conflicts)
}

func TestScanAll_DuplicateFirstWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writePackage(t, filepath.Join(first, "a"), `{"name":"dup","version":"1.0.0"}`)
	writePackage(t, filepath.Join(first, "b"), `{"name":"dup","version":"9.0.0"}`)
	writePackage(t, filepath.Join(second, "c"), `{"name":"dup","version":"5.0.0"}`)

	core, logs := observer.New(zap.WarnLevel)
	s := NewScanner([]Root{
		{Path: first, Kind: KindExtensions},
		{Path: second, Kind: KindPackageCache},
	}, WithLogger(zap.New(core)))

	cat := s.ScanAll()

	require.Equal(t, 1, cat.Len())
	dup, _ := cat.Lookup("dup")
	assert.Equal(t, "1.0.0", dup.Version)
	assert.Equal(t, filepath.Join(first, "a"), dup.FolderPath)

	require.Len(t, cat.Conflicts, 2)
	assert.Equal(t, filepath.Join(first, "b"), cat.Conflicts[0].IgnoredPath)
	assert.Equal(t, filepath.Join(second, "c"), cat.Conflicts[1].IgnoredPath)
	for _, c := range cat.Conflicts {
		assert.Equal(t, filepath.Join(first, "a"), c.KeptPath)
	}

	entries := logs.FilterMessage("duplicate package name, keeping first").All()
	require.Len(t, entries, 2)
	fields := entries[0].ContextMap()
	assert.Equal(t, filepath.Join(first, "a"), fields["kept"])
	assert.Equal(t, filepath.Join(first, "b"), fields["ignored"])
}

func TestScanAll_SkipsBrokenAndHidden(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "broken"), `{"name":`)
	writePackage(t, filepath.Join(root, "noname"), `{"version":"1.0.0"}`)
	writePackage(t, filepath.Join(root, ".hidden"), `{"name":"hidden"}`)
	writePackage(t, filepath.Join(root, "ok"), `{"name":"ok"}`)

	core, logs := observer.New(zap.WarnLevel)
	cat := NewScanner([]Root{{Path: root}}, WithLogger(zap.New(core))).ScanAll()

	assert.Equal(t, []string{"ok"}, cat.Names())
	assert.Equal(t, 2, logs.FilterMessage("skipping package with unreadable manifest").Len())
}

func TestScanAll_MissingRootIsSkipped(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "ok"), `{"name":"ok"}`)

	cat := NewScanner([]Root{
		{Path: filepath.Join(root, "does-not-exist")},
		{Path: ""},
		{Path: root},
	}).ScanAll()

	assert.Equal(t, []string{"ok"}, cat.Names())
}

func TestScanAll_CoreRoot(t *testing.T) {
	core := t.TempDir()
	writePackage(t, core, `{"name":"core-self"}`)
	writePackage(t, filepath.Join(core, "physics"), `{"name":"physics"}`)
	writePackage(t, filepath.Join(core, "audio"), `{"name":"audio","category":"Sound"}`)

	cat := NewScanner([]Root{{Path: core, Kind: KindCore}}).ScanAll()

	require.Equal(t, 3, cat.Len())
	self, ok := cat.Lookup("core-self")
	require.True(t, ok)
	assert.Equal(t, "Core", self.Category)

	physics, _ := cat.Lookup("physics")
	assert.Equal(t, "Core", physics.Category)
	audio, _ := cat.Lookup("audio")
	assert.Equal(t, "Sound", audio.Category)
}

func TestScanAll_ExtensionsRootDoesNotIncludeSelf(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, `{"name":"root-pkg"}`)

	cat := NewScanner([]Root{{Path: root, Kind: KindExtensions}}).ScanAll()
	assert.Zero(t, cat.Len())
}

func TestScanAll_YAMLFallback(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "y")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extension.yaml"), []byte("name: yaml-pkg\n"), 0644))

	cat := NewScanner([]Root{{Path: root}}).ScanAll()
	assert.Equal(t, []string{"yaml-pkg"}, cat.Names())
}

func TestScanAll_CustomManifestName(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "p")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"custom"}`), 0644))

	cat := NewScanner([]Root{{Path: root}}, WithManifestNames("package.json")).ScanAll()
	assert.Equal(t, []string{"custom"}, cat.Names())
}

func TestScanAll_OverlappingRootsNoConflict(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "a"), `{"name":"a"}`)

	cat := NewScanner([]Root{{Path: root}, {Path: root}}).ScanAll()
	assert.Equal(t, 1, cat.Len())
	assert.Empty(t, cat.Conflicts)
}

func TestCatalog_Get(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "a"), `{"name":"a"}`)
	cat := NewScanner([]Root{{Path: root}}).ScanAll()

	p, err := cat.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", p.Ref().Name)

	_, err = cat.Get("zzz")
	assert.True(t, errors.Is(err, ErrNotInstalled))
}

func TestDefaultRoots(t *testing.T) {
	t.Setenv("EXTPM_HOME", "/tmp/h")
	roots, err := DefaultRoots(userdata.NewLayout(nil))
	require.NoError(t, err)
	require.Len(t, roots, 4)
	assert.Equal(t, Root{Path: "/tmp/h/extensions", Kind: KindExtensions}, roots[0])
	assert.Equal(t, KindCore, roots[1].Kind)
	assert.Equal(t, KindPackageCache, roots[2].Kind)
	assert.Equal(t, KindTool, roots[3].Kind)
}
