package pkgmanifest

import (
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// hash16 truncates an FNV-1a hash of s to 16 hex characters, giving the
// cache directory suffix a fixed, filesystem-safe width regardless of
// the dependency URL's length.
func hash16(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	sum := h.Sum64()
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[sum&0xf]
		sum >>= 4
	}
	return string(buf)
}

// CachePath returns the on-disk directory a dependency named name,
// fetched from url, is (or would be) checked out into:
// {platform_cache_dir}/naml/packages/{name}-{hash16(url)}. The hash
// suffix disambiguates two manifests that happen to give a dependency
// the same short name from two different git remotes.
func CachePath(name, url string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(err, "pkgmanifest: resolving platform cache directory")
	}
	return filepath.Join(base, "naml", "packages", name+"-"+hash16(url)), nil
}

// EnsureCacheDir creates the naml package cache root if it does not
// already exist.
func EnsureCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(err, "pkgmanifest: resolving platform cache directory")
	}
	root := filepath.Join(base, "naml", "packages")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", errors.Wrapf(err, "pkgmanifest: creating %s", root)
	}
	return root, nil
}
