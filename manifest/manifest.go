// Package manifest handles sable.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a sable.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Source  Source      `toml:"source"`
	Image   ImageConfig `toml:"image"`

	// Dir is the directory containing the sable.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// ImageConfig configures image output.
type ImageConfig struct {
	Output string `toml:"output"`
	Cache  string `toml:"cache"`
}

// Load parses a sable.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "sable.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Source.Entry == "" {
		m.Source.Entry = "main"
	}
	if m.Image.Output == "" && m.Project.Name != "" {
		m.Image.Output = m.Project.Name + ".image"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a sable.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "sable.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// OutputPath returns the absolute path for the image output file.
func (m *Manifest) OutputPath() string {
	return filepath.Join(m.Dir, m.Image.Output)
}

// CachePath returns the absolute path to the compile cache database, or
// "" when caching is not configured.
func (m *Manifest) CachePath() string {
	if m.Image.Cache == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Image.Cache)
}
