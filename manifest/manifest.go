// Package manifest handles pyrite.toml runtime configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a pyrite.toml runtime configuration.
type Manifest struct {
	Runtime  Runtime  `toml:"runtime"`
	Profile  Profile  `toml:"profile"`
	Snapshot Snapshot `toml:"snapshot"`

	// Dir is the directory containing the pyrite.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures the dispatch machinery.
type Runtime struct {
	// Trace logs every call-site re-specialization.
	Trace bool `toml:"trace"`
}

// Profile configures the dispatch-profile store.
type Profile struct {
	Path string `toml:"path"`
}

// Snapshot configures profile snapshot output.
type Snapshot struct {
	Dir string `toml:"dir"`
}

// Load parses a pyrite.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "pyrite.toml")
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

	applyDefaults(&m)
	return &m, nil
}

// FindAndLoad walks up from startDir to find a pyrite.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "pyrite.toml")
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

// Default returns the configuration used when no pyrite.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	applyDefaults(m)
	return m
}

func applyDefaults(m *Manifest) {
	if m.Profile.Path == "" {
		m.Profile.Path = "profiles.db"
	}
	if m.Snapshot.Dir == "" {
		m.Snapshot.Dir = "snapshots"
	}
}

// ProfilePath returns the profile database path, resolved against the
// manifest directory when relative.
func (m *Manifest) ProfilePath() string {
	return m.resolve(m.Profile.Path)
}

// SnapshotDir returns the snapshot output directory, resolved against
// the manifest directory when relative.
func (m *Manifest) SnapshotDir() string {
	return m.resolve(m.Snapshot.Dir)
}

func (m *Manifest) resolve(path string) string {
	if filepath.IsAbs(path) || m.Dir == "" {
		return path
	}
	return filepath.Join(m.Dir, path)
}
