package pkgmanifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash16IsDeterministic(t *testing.T) {
	a := hash16("https://example.com/repo.git")
	b := hash16("https://example.com/repo.git")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestHash16DistinguishesDifferentURLs(t *testing.T) {
	a := hash16("https://example.com/repo-one.git")
	b := hash16("https://example.com/repo-two.git")
	assert.NotEqual(t, a, b)
}

func TestCachePathIncludesNameAndHashSuffix(t *testing.T) {
	path, err := CachePath("json", "https://example.com/json.git")
	assert.NoError(t, err)
	assert.Contains(t, path, "json-"+hash16("https://example.com/json.git"))
	assert.Contains(t, path, "naml")
	assert.Contains(t, path, "packages")
}
