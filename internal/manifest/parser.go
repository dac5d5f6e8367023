package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Manifest file names, in lookup order.
const (
	FileName     = "extension.json"
	YAMLFileName = "extension.yaml"
)

// DefaultNames is the lookup order used by Find when no names are given.
var DefaultNames = []string{FileName, YAMLFileName}

var (
	// ErrMissingName is returned for manifests without a name.
	ErrMissingName = errors.New("manifest has no name")
	// ErrNotFound is returned by Find when a directory holds no manifest.
	ErrNotFound = errors.New("no manifest found")
)

// ParseError is the failure result of parsing a manifest.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing manifest %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads and decodes the manifest at path.
func Parse(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return ParseBytes(data, path)
}

// ParseBytes decodes manifest data. name selects the format: .yaml/.yml
// decode as YAML, anything else as JSON.
func ParseBytes(data []byte, name string) (*Manifest, error) {
	var m Manifest
	var err error
	if isYAML(name) {
		err = yaml.Unmarshal(data, &m)
	} else {
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, &ParseError{Path: name, Err: err}
	}
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return nil, &ParseError{Path: name, Err: ErrMissingName}
	}
	return &m, nil
}

// Find returns the path of the first manifest file present in dir. With no
// names, DefaultNames is used.
func Find(dir string, names ...string) (string, error) {
	if len(names) == 0 {
		names = DefaultNames
	}
	for _, n := range names {
		if n == "" {
			continue
		}
		p := filepath.Join(dir, n)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: %w", dir, ErrNotFound)
}

// Load finds and parses the manifest in dir.
func Load(dir string, names ...string) (*Manifest, string, error) {
	path, err := Find(dir, names...)
	if err != nil {
		return nil, "", err
	}
	m, err := Parse(path)
	if err != nil {
		return nil, path, err
	}
	return m, path, nil
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
