// Package branding provides compile-time identity values for the CLI.
//
// branding.yaml is embedded at build time, so a fork only has to edit that
// file to rename the binary, its home directory and its default registry.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GoModule    string `yaml:"go_module"`
	RegistryURL string `yaml:"registry_url"`
	UserAgent   string `yaml:"user_agent"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or empty.
		defaults = brand{
			CLIName:     "extpm",
			DisplayName: "ExtPM",
			Description: "Extension package manager for editor toolchains",
			HomeDir:     ".extpm",
			EnvPrefix:   "EXTPM",
			GoModule:    "github.com/extpm-labs/extpm",
			RegistryURL: "https://github.com/extpm-labs/extension-registry",
			UserAgent:   "extpm",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "extpm").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".extpm").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "EXTPM").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// RegistryURL returns the default registry repository URL.
func RegistryURL() string { load(); return defaults.RegistryURL }

// UserAgent returns the User-Agent sent with every registry request.
func UserAgent() string { load(); return defaults.UserAgent }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") -> "EXTPM_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
