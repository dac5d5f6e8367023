//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/extpm-labs/extpm/internal/config"
	"github.com/extpm-labs/extpm/internal/manager"
	"github.com/extpm-labs/extpm/internal/metrics"
	"github.com/extpm-labs/extpm/internal/registrytest"
)

// testEnv holds an isolated home directory and a fake registry.
type testEnv struct {
	HomeDir    string // EXTPM_HOME: extensions/, core/, cache/
	ProjectDir string
	Registry   *registrytest.Server
	Settings   mapSettings
}

type mapSettings map[string]string

func (m mapSettings) Get(key string) string { return m[key] }

func (m mapSettings) Set(key, value string) error {
	m[key] = value
	return nil
}

// setupTestEnv sandboxes every extpm path under temp directories.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir:    t.TempDir(),
		ProjectDir: t.TempDir(),
		Registry:   registrytest.New(),
	}
	t.Cleanup(env.Registry.Close)

	t.Setenv("EXTPM_HOME", env.HomeDir)
	t.Setenv("GITHUB_TOKEN", "")
	env.Settings = mapSettings{
		config.KeyRegistryURL: env.Registry.RegistryURL(),
		config.KeyProjectRoot: env.ProjectDir,
	}
	return env
}

// newManager builds a manager over env; each call is a fresh process view
// sharing the on-disk cache.
func (env *testEnv) newManager(t *testing.T, tune func(*config.Tunables)) *manager.Manager {
	t.Helper()
	tun := config.DefaultTunables()
	tun.HTTPRetries = 0
	if tune != nil {
		tune(tun)
	}
	m, err := manager.New(manager.Options{
		Settings: env.Settings,
		Tunables: tun,
		Metrics:  metrics.New(),
	})
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}
	return m
}

// publish adds a package folder to the registry's main branch.
func (env *testEnv) publish(folder, manifestJSON string, files map[string]string) {
	env.Registry.SetFile("main", folder+"/extension.json", manifestJSON)
	for name, content := range files {
		env.Registry.SetFile("main", folder+"/"+name, content)
	}
}

// writeInstalled creates an installed package folder with a manifest.
func writeInstalled(t *testing.T, dir, manifestJSON string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "extension.json"), []byte(manifestJSON), 0644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}
