// Package pkgmanifest reads a project's package manifest and resolves
// its dependencies against a local on-disk cache, per §6.5's package
// manager surface. Resolution and fetching are the only package-manager
// concerns in scope; publishing, version solving across a graph, and a
// registry protocol are not.
package pkgmanifest

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Dependency is one `[dependencies.name]` table: a git URL plus a
// version constraint resolved in the order Resolve documents
// (a pinned revision, then tag, then branch, then the default branch).
type Dependency struct {
	Git      string `toml:"git"`
	Tag      string `toml:"tag"`
	Branch   string `toml:"branch"`
	Revision string `toml:"rev"`
}

// Package is the `[package]` table.
type Package struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Entry   string `toml:"entry"`
}

// Manifest is a parsed `naml.toml` package manifest.
type Manifest struct {
	Package      Package               `toml:"package"`
	Dependencies map[string]Dependency `toml:"dependencies"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "pkgmanifest: reading %s", path)
	}
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, errors.Wrapf(err, "pkgmanifest: parsing %s", path)
	}
	if m.Package.Name == "" {
		return nil, errors.Errorf("pkgmanifest: %s: [package] table missing required `name`", path)
	}
	return &m, nil
}

// Validate checks every dependency names exactly one resolution
// target, per §6.5's order-of-precedence list — a manifest naming both
// `tag` and `branch` for the same dependency is ambiguous, not merely
// redundant, since Resolve would otherwise have to silently pick one.
func (m *Manifest) Validate() error {
	for name, dep := range m.Dependencies {
		if dep.Git == "" {
			return errors.Errorf("pkgmanifest: dependency %q missing `git` url", name)
		}
		set := 0
		if dep.Tag != "" {
			set++
		}
		if dep.Branch != "" {
			set++
		}
		if dep.Revision != "" {
			set++
		}
		if set > 1 {
			return errors.Errorf("pkgmanifest: dependency %q names more than one of tag/branch/rev", name)
		}
	}
	return nil
}
