package userdata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/extpm-labs/extpm/internal/branding"
	"github.com/extpm-labs/extpm/internal/config"
)

// Directory and file name constants for the on-disk layout.
const (
	ExtensionsDir     = "extensions"
	CoreDir           = "core"
	CacheDir          = "cache"
	PackageCacheDir   = "packages"
	RegistryCacheFile = "registry.json"
	ToolDir           = "tool"
)

// Permission constants.
const (
	DirPermSecure  os.FileMode = 0700
	FilePermSecure os.FileMode = 0600
	DirPermNormal  os.FileMode = 0755
	FilePermNormal os.FileMode = 0644
)

// Layout resolves the install roots. Each path is taken from its env var
// first, then from the host setting, then from the default under ~/.extpm.
type Layout struct {
	Settings config.Settings
}

// NewLayout returns a Layout reading overrides from s. s may be nil.
func NewLayout(s config.Settings) *Layout {
	return &Layout{Settings: s}
}

// Home returns the tool's home directory (~/.extpm).
func Home() (string, error) {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, branding.HomeDir()), nil
}

func (l *Layout) resolve(envSuffix, key string, def ...string) (string, error) {
	if v := os.Getenv(branding.EnvVar(envSuffix)); v != "" {
		return v, nil
	}
	if l != nil && l.Settings != nil && key != "" {
		if v := l.Settings.Get(key); v != "" {
			return v, nil
		}
	}
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{home}, def...)...), nil
}

// ExtensionsRoot returns the default root new packages install into.
func (l *Layout) ExtensionsRoot() (string, error) {
	return l.resolve("EXTENSIONS_ROOT", config.KeyExtensionsRoot, ExtensionsDir)
}

// CoreRoot returns the install root for "Core" category packages.
func (l *Layout) CoreRoot() (string, error) {
	return l.resolve("CORE_PATH", config.KeyCorePath, CoreDir)
}

// PackageCacheRoot returns the platform package-cache root.
func (l *Layout) PackageCacheRoot() (string, error) {
	return l.resolve("PACKAGE_CACHE_ROOT", config.KeyPackageCacheRoot, CacheDir, PackageCacheDir)
}

// RegistryCachePath returns the registry cache file path.
func (l *Layout) RegistryCachePath() (string, error) {
	return l.resolve("REGISTRY_CACHE", "", CacheDir, RegistryCacheFile)
}

// ToolRoot returns the directory holding the tool's own package.
func (l *Layout) ToolRoot() (string, error) {
	return l.resolve("TOOL_ROOT", "", ToolDir)
}

// ProjectRoot returns the base for relative install-path overrides. It
// defaults to the working directory.
func (l *Layout) ProjectRoot() (string, error) {
	if v := os.Getenv(branding.EnvVar("PROJECT_ROOT")); v != "" {
		return v, nil
	}
	if l != nil && l.Settings != nil {
		if v := l.Settings.Get(config.KeyProjectRoot); v != "" {
			return v, nil
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return wd, nil
}

// Ensure creates the extensions, core and cache directories. Progress is
// printed to w for directories that did not exist yet.
func (l *Layout) Ensure(w io.Writer) error {
	ext, err := l.ExtensionsRoot()
	if err != nil {
		return err
	}
	core, err := l.CoreRoot()
	if err != nil {
		return err
	}
	cachePath, err := l.RegistryCachePath()
	if err != nil {
		return err
	}
	for _, dir := range []string{ext, core, filepath.Dir(cachePath)} {
		if err := ensureDir(w, dir, DirPermNormal); err != nil {
			return err
		}
	}
	return nil
}

func ensureDir(w io.Writer, path string, perm os.FileMode) error {
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", path)
		}
		return nil
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if w != nil {
		fmt.Fprintf(w, "  created %s\n", path)
	}
	return nil
}
