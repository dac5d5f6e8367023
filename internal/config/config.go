package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/extpm-labs/extpm/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Setting keys understood by the core.
const (
	KeyExtensionsRoot   = "extensions_root"
	KeyCorePath         = "core_path"
	KeyRegistryURL      = "registry_url"
	KeyPackageCacheRoot = "package_cache_root"
	KeyProjectRoot      = "project_root"
)

// KnownKeys lists the keys accepted by `extpm config set`.
var KnownKeys = []string{
	KeyExtensionsRoot,
	KeyCorePath,
	KeyRegistryURL,
	KeyPackageCacheRoot,
	KeyProjectRoot,
}

// Settings is the get/set interface the host supplies to the core.
type Settings interface {
	Get(key string) string
	Set(key, value string) error
}

// Store is a viper-backed Settings persisted to a YAML file.
type Store struct {
	v    *viper.Viper
	path string
}

// NewStore creates a Store bound to path. Environment variables with the
// branding prefix override file values (EXTPM_REGISTRY_URL, ...).
func NewStore(path string) *Store {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.AutomaticEnv()
	return &Store{v: v, path: path}
}

// Load reads the config file. A missing file is not an error.
func (s *Store) Load() error {
	if err := s.v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(s.path); os.IsNotExist(statErr) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", s.path, err)
	}
	return nil
}

// Get returns a config value by key. Returns empty string if not set.
func (s *Store) Get(key string) string {
	return s.v.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func (s *Store) Set(key, value string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	s.v.Set(key, value)

	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Dir returns the path to the config directory (~/.extpm/).
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.extpm/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// IsKnownKey reports whether key is one of KnownKeys.
func IsKnownKey(key string) bool {
	for _, k := range KnownKeys {
		if k == key {
			return true
		}
	}
	return false
}
