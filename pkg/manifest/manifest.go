// Package manifest records the raster dimensions of pixel-text artifacts.
// Pixel-text files do not embed their width and height, so each text
// directory carries a dimensions.yaml next to the artifacts it describes.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"tiffmerge/internal/models"
)

// FileName is the manifest file name inside a text directory
const FileName = "dimensions.yaml"

// Manifest maps artifact base names to source dimensions
type Manifest struct {
	Files map[string]models.Dimensions `yaml:"files"`
}

// New returns an empty manifest
func New() *Manifest {
	return &Manifest{Files: make(map[string]models.Dimensions)}
}

// PathIn returns the manifest location for dir
func PathIn(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads the manifest of dir. A missing manifest yields an empty one.
func Load(dir string) (*Manifest, error) {
	data, err := os.ReadFile(PathIn(dir))
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}

	m := New()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("error parsing manifest %s: %w", PathIn(dir), err)
	}
	if m.Files == nil {
		m.Files = make(map[string]models.Dimensions)
	}
	return m, nil
}

// Save writes the manifest into dir
func (m *Manifest) Save(dir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("error marshaling manifest: %w", err)
	}
	if err := os.WriteFile(PathIn(dir), data, 0644); err != nil {
		return fmt.Errorf("error writing manifest: %w", err)
	}
	return nil
}

// Set records the dimensions of the artifact named name
func (m *Manifest) Set(name string, d models.Dimensions) {
	m.Files[filepath.Base(name)] = d
}

// Delete forgets the artifact named name
func (m *Manifest) Delete(name string) {
	delete(m.Files, filepath.Base(name))
}

// Get looks up the dimensions of the artifact at path
func (m *Manifest) Get(path string) (models.Dimensions, bool) {
	d, ok := m.Files[filepath.Base(path)]
	return d, ok && d.Valid()
}

// Names lists recorded artifacts in sorted order
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
