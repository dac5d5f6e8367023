package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/extpm-labs/extpm/internal/registrytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv points the CLI at a temporary home and a fake registry.
func setupEnv(t *testing.T) (string, *registrytest.Server) {
	t.Helper()
	home := t.TempDir()
	srv := registrytest.New()
	t.Cleanup(srv.Close)

	t.Setenv("EXTPM_HOME", home)
	t.Setenv("EXTPM_REGISTRY_URL", srv.RegistryURL())
	t.Setenv("EXTPM_PROJECT_ROOT", filepath.Join(home, "project"))
	t.Setenv("EXTPM_HTTP_RETRIES", "0")
	t.Setenv("GITHUB_TOKEN", "")

	srv.SetFile("main", "tween/extension.json",
		`{"name":"com.acme.tween","displayName":"Tween","version":"1.2.0","description":"Tweening library","dependencies":[{"name":"com.acme.curves"}]}`)
	srv.SetFile("main", "tween/Tween.cs", "class Tween {}")
	srv.SetFile("main", "curves/extension.json", `{"name":"com.acme.curves","displayName":"Curves","version":"0.3.0"}`)
	return home, srv
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	listJSON, listCategory = false, ""
	searchJSON = false
	registryRefresh, registryJSON = false, false
	installYes, installDryRun = false, false
	outdatedJSON, updateYes = false, false
	logLevel, metricsTextfile = "", ""
	versionShort, versionJSON = false, false
	createDir, createDisplayName, createDescription, createAuthor, createCategory = "", "", "", "", ""

	resetManager()
	t.Cleanup(resetManager)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInstallListUninstall(t *testing.T) {
	home, _ := setupEnv(t)

	out, err := runCLI(t, "", "install", "com.acme.tween", "-y")
	require.NoError(t, err, out)
	assert.Contains(t, out, "new: Curves (com.acme.curves)")
	assert.Contains(t, out, "✓ Installed 2 packages.")
	assert.FileExists(t, filepath.Join(home, "extensions", "tween", "Tween.cs"))

	out, err = runCLI(t, "", "list", "--json")
	require.NoError(t, err)
	var entries []listEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "com.acme.curves", entries[0].Name)
	assert.Equal(t, "extensions", entries[0].Root)

	out, err = runCLI(t, "", "uninstall", "com.acme.curves")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed com.acme.curves")
	assert.NoDirExists(t, filepath.Join(home, "extensions", "curves"))

	_, err = runCLI(t, "", "uninstall", "com.acme.curves")
	assert.Error(t, err)
}

func TestInstallDryRun(t *testing.T) {
	home, _ := setupEnv(t)

	out, err := runCLI(t, "", "install", "com.acme.tween", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Install: 2 new")
	assert.NoDirExists(t, filepath.Join(home, "extensions"))
}

func TestInstallCancelled(t *testing.T) {
	home, _ := setupEnv(t)

	out, err := runCLI(t, "n\n", "install", "com.acme.tween")
	require.NoError(t, err)
	assert.Contains(t, out, "Installation cancelled.")
	assert.NoDirExists(t, filepath.Join(home, "extensions", "tween"))
}

func TestInstallUnknownPackage(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "", "install", "com.acme.ghost", "-y")
	assert.ErrorContains(t, err, "unknown package")
}

func TestListEmpty(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No packages installed yet.")
}

func TestRegistryCommand(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "", "registry")
	require.NoError(t, err)
	assert.Contains(t, out, "com.acme.tween")
	assert.Contains(t, out, "com.acme.curves")
	assert.Contains(t, out, "branch main")
}

func TestSearchCommand(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "", "search", "twn", "--json")
	require.NoError(t, err)
	var entries []searchEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "com.acme.tween", entries[0].Name)
	assert.Equal(t, "remote", entries[0].Source)
}

func TestFilterSearch(t *testing.T) {
	entries := searchEntries{
		{Name: "com.acme.tween", Title: "Tween", Description: "Tweening library"},
		{Name: "com.acme.curves", Title: "Curves"},
		{Name: "com.other.audio", Title: "Audio"},
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty query keeps all", "", []string{"com.acme.tween", "com.acme.curves", "com.other.audio"}},
		{"subsequence", "crvs", []string{"com.acme.curves"}},
		{"description", "library", []string{"com.acme.tween"}},
		{"no match", "zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range filterSearch(entries, tt.query) {
				got = append(got, e.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigSetGet(t *testing.T) {
	home, _ := setupEnv(t)
	t.Setenv("EXTPM_REGISTRY_URL", "")

	out, err := runCLI(t, "", "config", "set", "registry_url", "https://github.com/acme/other")
	require.NoError(t, err)
	assert.Contains(t, out, "Set registry_url = https://github.com/acme/other")
	assert.FileExists(t, filepath.Join(home, "config.yaml"))

	out, err = runCLI(t, "", "config", "get", "registry_url")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/other\n", out)

	_, err = runCLI(t, "", "config", "set", "colour", "blue")
	assert.ErrorContains(t, err, "unknown config key")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good")
	require.NoError(t, os.MkdirAll(good, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(good, "extension.json"), []byte(`{"name":"com.acme.ok"}`), 0644))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version":"1.0.0"}`), 0644))

	out, err := runCLI(t, "", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	out, err = runCLI(t, "", "validate", bad)
	assert.Error(t, err)
	assert.Contains(t, out, "✗ "+bad)

	preview := filepath.Join(dir, "preview.json")
	require.NoError(t, os.WriteFile(preview, []byte(`{"name":"com.acme.fx","version":"2.0.0-preview.1"}`), 0644))
	out, err = runCLI(t, "", "validate", preview)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, "warning: /version: ")
}

func TestVersionCommand(t *testing.T) {
	buildVersion, buildCommit, buildDate = "1.0.0", "abc123", "2026-01-01"
	versionShort, versionJSON = false, false

	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "extpm version 1.0.0 (commit: abc123, built: 2026-01-01)\n", out)

	out, err = runCLI(t, "", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0\n", out)

	out, err = runCLI(t, "", "version", "--json")
	require.NoError(t, err)
	var info buildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "extpm", info.Name)
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, "2026-01-01", info.Date)
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
	assert.Contains(t, info.Platform, "/")
}

func TestCreateCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fx")

	out, err := runCLI(t, "", "create", "com.acme.fx", "--dir", dir, "--author", "Acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Created com.acme.fx in "+dir)
	assert.FileExists(t, filepath.Join(dir, "extension.json"))

	out, err = runCLI(t, "", "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}

func TestFolderName(t *testing.T) {
	assert.Equal(t, "fx", folderName("com.acme.fx"))
	assert.Equal(t, "plain", folderName("plain"))
	assert.Equal(t, "trailing.", folderName("trailing."))
}

func TestOutdatedAndUpdate(t *testing.T) {
	home, _ := setupEnv(t)
	old := filepath.Join(home, "extensions", "MyCurves")
	require.NoError(t, os.MkdirAll(old, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(old, "extension.json"), []byte(`{"name":"com.acme.curves","version":"0.1.0"}`), 0644))

	out, err := runCLI(t, "", "outdated")
	require.NoError(t, err)
	assert.Contains(t, out, "com.acme.curves")
	assert.Contains(t, out, "0.3.0")

	// The cached listing now drives the startup banner.
	out, err = runCLI(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "1 package update available: com.acme.curves 0.1.0 -> 0.3.0")

	out, err = runCLI(t, "", "update", "-y")
	require.NoError(t, err)
	assert.Contains(t, out, "updated com.acme.curves (1 package)")

	out, err = runCLI(t, "", "outdated", "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestInitCommand(t *testing.T) {
	home, _ := setupEnv(t)

	out, err := runCLI(t, "", "init")
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(home, "extensions"))
	assert.DirExists(t, filepath.Join(home, "core"))
	assert.DirExists(t, filepath.Join(home, "cache"))
	assert.Contains(t, out, "created "+filepath.Join(home, "extensions"))
	assert.Contains(t, out, "Package roots (scan order):")
	assert.Contains(t, out, filepath.Join(home, "tool"))

	out, err = runCLI(t, "", "init")
	require.NoError(t, err)
	assert.NotContains(t, out, "created ")
}
