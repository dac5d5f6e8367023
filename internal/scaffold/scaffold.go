package scaffold

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/extpm-labs/extpm/internal/manifest"
)

//go:embed templates
var templateFS embed.FS

const templatesDir = "templates/package"

// Data holds the template variables.
type Data struct {
	Name        string // e.g., "com.acme.tween"
	DisplayName string
	Version     string
	Description string
	Author      string
	Category    string
	Year        int
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

// NewData fills in defaults derived from name.
func NewData(name string) *Data {
	return &Data{
		Name:        name,
		DisplayName: displayName(name),
		Version:     "0.1.0",
		Description: fmt.Sprintf("The %s extension package.", name),
		Year:        time.Now().Year(),
	}
}

// displayName turns "com.acme.my-tween" into "My Tween".
func displayName(name string) string {
	last := name
	if i := strings.LastIndex(name, "."); i >= 0 && i < len(name)-1 {
		last = name[i+1:]
	}
	words := strings.FieldsFunc(last, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var funcs = template.FuncMap{
	"json": func(v string) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// Generate writes a new package into outputDir, which must be empty or
// absent, and validates the generated manifest.
func Generate(data *Data, outputDir string) (*Result, error) {
	entries, err := fs.ReadDir(templateFS, templatesDir)
	if err != nil {
		return nil, fmt.Errorf("reading templates: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	// Refuse to overwrite existing work.
	existing, err := os.ReadDir(outputDir)
	if err == nil && len(existing) > 0 {
		return nil, fmt.Errorf("output directory %s is not empty; remove existing files first", outputDir)
	}

	result := &Result{OutputDir: outputDir}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		tmplBytes, err := fs.ReadFile(templateFS, path.Join(templatesDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", entry.Name(), err)
		}
		tmpl, err := template.New(entry.Name()).Funcs(funcs).Parse(string(tmplBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", entry.Name(), err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("executing template %s: %w", entry.Name(), err)
		}

		outName := strings.TrimSuffix(entry.Name(), ".tmpl")
		outPath := filepath.Join(outputDir, outName)
		if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", outPath, err)
		}
		result.Files = append(result.Files, outName)
	}

	manifestFile := filepath.Join(outputDir, manifest.FileName)
	valResult, valErr := manifest.ValidateFile(manifestFile)
	if valErr != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not validate manifest: %v", valErr))
	} else {
		for _, issue := range valResult.Issues {
			msg := issue.Message
			if issue.Path != "" {
				msg = issue.Path + ": " + msg
			}
			result.Warnings = append(result.Warnings, msg)
		}
		result.Warnings = append(result.Warnings, valResult.Warnings...)
	}

	return result, nil
}
