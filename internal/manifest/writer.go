package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// Marshal encodes m in the format implied by name.
func Marshal(m *Manifest, name string) ([]byte, error) {
	if isYAML(name) {
		return yaml.Marshal(m)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write saves m to path atomically (temp file then rename).
func Write(path string, m *Manifest) error {
	data, err := Marshal(m, path)
	if err != nil {
		return fmt.Errorf("encoding manifest %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp manifest: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting manifest permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing manifest %s: %w", path, err)
	}
	return nil
}

// SetSourceURL records url as the sourceUrl of the manifest in dir. It is a
// no-op when the value is already current.
func SetSourceURL(dir, url string, names ...string) error {
	m, path, err := Load(dir, names...)
	if err != nil {
		return err
	}
	if m.SourceURL == url {
		return nil
	}
	m.SourceURL = url
	return Write(path, m)
}
