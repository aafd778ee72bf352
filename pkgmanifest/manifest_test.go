package pkgmanifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "naml.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesPackageAndDependencies(t *testing.T) {
	path := writeManifest(t, `
[package]
name = "demo"
version = "0.1.0"
entry = "main.naml"

[dependencies.json]
git = "https://example.com/json.git"
tag = "v1.0.0"
`)
	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", m.Package.Name)
	dep, ok := m.Dependencies["json"]
	require.True(t, ok)
	assert.Equal(t, "v1.0.0", dep.Tag)
}

func TestLoadRejectsManifestMissingPackageName(t *testing.T) {
	path := writeManifest(t, `
[package]
version = "0.1.0"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsAmbiguousDependency(t *testing.T) {
	m := &Manifest{
		Package: Package{Name: "demo"},
		Dependencies: map[string]Dependency{
			"json": {Git: "https://example.com/json.git", Tag: "v1.0.0", Branch: "main"},
		},
	}
	assert.Error(t, m.Validate())
}

func TestValidateAcceptsSingleResolutionTarget(t *testing.T) {
	m := &Manifest{
		Package: Package{Name: "demo"},
		Dependencies: map[string]Dependency{
			"json": {Git: "https://example.com/json.git", Tag: "v1.0.0"},
		},
	}
	assert.NoError(t, m.Validate())
}

func TestValidateRejectsDependencyMissingGitURL(t *testing.T) {
	m := &Manifest{
		Package: Package{Name: "demo"},
		Dependencies: map[string]Dependency{
			"json": {Tag: "v1.0.0"},
		},
	}
	assert.Error(t, m.Validate())
}
