package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// manifestCandidates are checked in order under the project root.
var manifestCandidates = []string{
	"saascode-kit/manifest.yaml",
	".saascode/manifest.yaml",
	"manifest.yaml",
	"saascode-kit.yaml",
	".reviewgate.yml",
}

// Manifest is the project description shared with the rest of the kit. Only
// the keys the reviewer reads are decoded.
type Manifest struct {
	Project struct {
		Name     string `yaml:"name"`
		Language string `yaml:"language"`
	} `yaml:"project"`
	Stack struct {
		Backend struct {
			Framework string `yaml:"framework"`
			Language  string `yaml:"language"`
		} `yaml:"backend"`
	} `yaml:"stack"`
	Paths struct {
		Backend  string `yaml:"backend"`
		Frontend string `yaml:"frontend"`
	} `yaml:"paths"`
	Tenancy struct {
		ScopingField string `yaml:"scoping_field"`
	} `yaml:"tenancy"`
	Review struct {
		Exclude     []string `yaml:"exclude"`
		EntryPoints []string `yaml:"entry_points"`
		APIPrefixes []string `yaml:"api_prefixes"`
	} `yaml:"review"`

	// Path is the manifest file that was read, empty when none exists.
	Path string `yaml:"-"`
}

// FindManifest returns the first manifest candidate under root, or "".
func FindManifest(root string) string {
	for _, c := range manifestCandidates {
		p := filepath.Join(root, filepath.FromSlash(c))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// LoadManifest reads the project manifest under root.
// If no manifest exists, it returns a zero-value Manifest and nil error.
func LoadManifest(root string) (*Manifest, error) {
	path := FindManifest(root)
	if path == "" {
		return &Manifest{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.Path = path
	return &m, nil
}

// Language is the declared review language: the backend language when
// set, else the project language.
func (m *Manifest) Language() string {
	if l := strings.TrimSpace(m.Stack.Backend.Language); l != "" {
		return l
	}
	return strings.TrimSpace(m.Project.Language)
}

// BackendRoot returns the directory to review under root. A declared
// backend path that does not exist is ignored.
func (m *Manifest) BackendRoot(root string) string {
	return m.area(root, m.Paths.Backend)
}

// FrontendRoot returns the client code area under root, or root itself.
func (m *Manifest) FrontendRoot(root string) string {
	return m.area(root, m.Paths.Frontend)
}

func (m *Manifest) area(root, rel string) string {
	rel = strings.TrimSpace(rel)
	if rel == "" || rel == "." {
		return root
	}
	p := rel
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, filepath.FromSlash(rel))
	}
	if info, err := os.Stat(p); err != nil || !info.IsDir() {
		return root
	}
	return p
}
