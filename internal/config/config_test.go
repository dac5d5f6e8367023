package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	s := NewStore(path)
	require.NoError(t, s.Load(), "missing file loads as empty")

	require.NoError(t, s.Set(KeyRegistryURL, "https://github.com/acme/registry"))
	assert.Equal(t, "https://github.com/acme/registry", s.Get(KeyRegistryURL))

	// A fresh store reads the persisted value back.
	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, "https://github.com/acme/registry", reloaded.Get(KeyRegistryURL))
}

func TestStoreEnvOverride(t *testing.T) {
	t.Setenv("EXTPM_CORE_PATH", "/opt/core")
	s := NewStore(filepath.Join(t.TempDir(), "config.yaml"))
	assert.Equal(t, "/opt/core", s.Get(KeyCorePath))
}

func TestStoreLoadCorrupted(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unterminated flow sequence", "registry_url: [1, 2\n"},
		{"tab indentation", "core_path:\n\tnested: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0644))

			err := NewStore(path).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestDirEnvOverride(t *testing.T) {
	t.Setenv("EXTPM_HOME", "/tmp/extpm-home")
	assert.Equal(t, "/tmp/extpm-home/config.yaml", FilePath())
}

func TestIsKnownKey(t *testing.T) {
	assert.True(t, IsKnownKey(KeyExtensionsRoot))
	assert.False(t, IsKnownKey("mirror"))
}

func TestLoadTunablesDefaults(t *testing.T) {
	tun, err := LoadTunables()
	require.NoError(t, err)
	assert.Equal(t, DefaultTunables(), tun)
}

func TestLoadTunablesEnv(t *testing.T) {
	t.Setenv("EXTPM_REGISTRY_TTL", "90s")
	t.Setenv("EXTPM_DOWNLOAD_CONCURRENCY", "3")
	tun, err := LoadTunables()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, tun.RegistryTTL)
	assert.Equal(t, 3, tun.DownloadConcurrency)
}

func TestLoadTunablesRejectsBadValue(t *testing.T) {
	t.Setenv("EXTPM_REGISTRY_TTL", "soon")
	_, err := LoadTunables()
	assert.ErrorContains(t, err, "loading tunables")
}

func TestBranches(t *testing.T) {
	tun := DefaultTunables()
	assert.Equal(t, []string{"main", "master"}, tun.Branches())

	tun.FallbackBranch = "main"
	assert.Equal(t, []string{"main"}, tun.Branches(), "duplicate fallback collapses")
}
