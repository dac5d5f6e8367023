package config

import (
	"fmt"
	"time"

	"github.com/extpm-labs/extpm/internal/branding"
	"github.com/kelseyhightower/envconfig"
)

// Tunables holds runtime knobs read from the environment.
type Tunables struct {
	RegistryTTL         time.Duration `envconfig:"REGISTRY_TTL" default:"5m"`
	HTTPTimeout         time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	HTTPRetries         int           `envconfig:"HTTP_RETRIES" default:"2"`
	DownloadConcurrency int           `envconfig:"DOWNLOAD_CONCURRENCY" default:"8"`
	DefaultBranch       string        `envconfig:"DEFAULT_BRANCH" default:"main"`
	FallbackBranch      string        `envconfig:"FALLBACK_BRANCH" default:"master"`
	ManifestName        string        `envconfig:"MANIFEST_NAME" default:"extension.json"`
	SidecarSuffix       string        `envconfig:"SIDECAR_SUFFIX" default:".meta"`
	LogLevel            string        `envconfig:"LOG_LEVEL" default:"warn"`
	LogDev              bool          `envconfig:"LOG_DEV" default:"false"`
}

// LoadTunables reads tunables from EXTPM_* environment variables.
func LoadTunables() (*Tunables, error) {
	var t Tunables
	if err := envconfig.Process(branding.EnvPrefix(), &t); err != nil {
		return nil, fmt.Errorf("loading tunables: %w", err)
	}
	return &t, nil
}

// DefaultTunables returns the built-in defaults.
func DefaultTunables() *Tunables {
	return &Tunables{
		RegistryTTL:         5 * time.Minute,
		HTTPTimeout:         30 * time.Second,
		HTTPRetries:         2,
		DownloadConcurrency: 8,
		DefaultBranch:       "main",
		FallbackBranch:      "master",
		ManifestName:        "extension.json",
		SidecarSuffix:       ".meta",
		LogLevel:            "warn",
	}
}

// Branches returns the ordered branch names tried for every remote request.
func (t *Tunables) Branches() []string {
	branches := []string{t.DefaultBranch}
	if t.FallbackBranch != "" && t.FallbackBranch != t.DefaultBranch {
		branches = append(branches, t.FallbackBranch)
	}
	return branches
}
