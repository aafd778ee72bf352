package pkgmanifest

import (
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
)

// ResolvedDependency is a dependency pinned to the exact commit it was
// resolved to, ready to be read off disk by the compiler's `use`
// resolution.
type ResolvedDependency struct {
	Name     string
	Path     string
	Revision string
}

// Resolve fetches (or reuses a cached checkout of) every dependency in
// m, in Go map iteration order (not the order the manifest lists them,
// and not stable between runs), and pins each to a concrete commit following
// §6.5's precedence: an explicit revision wins outright, then a named
// tag, then a named branch, and only once none of those are given does
// it fall back to the repository's default branch. go-git is used in
// place of shelling out to a `git` binary so resolution has no external
// process dependency at all.
func Resolve(m *Manifest, offline bool) ([]ResolvedDependency, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	out := make([]ResolvedDependency, 0, len(m.Dependencies))
	for name, dep := range m.Dependencies {
		resolved, err := resolveOne(name, dep, offline)
		if err != nil {
			return nil, errors.Wrapf(err, "pkgmanifest: resolving dependency %q", name)
		}
		out = append(out, resolved)
	}
	return out, nil
}

func resolveOne(name string, dep Dependency, offline bool) (ResolvedDependency, error) {
	path, err := CachePath(name, dep.Git)
	if err != nil {
		return ResolvedDependency{}, err
	}

	repo, err := openOrClone(path, dep, offline)
	if err != nil {
		return ResolvedDependency{}, err
	}

	head, err := repo.Head()
	if err != nil {
		return ResolvedDependency{}, errors.Wrap(err, "reading resolved HEAD")
	}

	return ResolvedDependency{Name: name, Path: path, Revision: head.Hash().String()}, nil
}

// openOrClone reuses an existing cache checkout when offline mode
// forbids network access or the path already holds a clone; otherwise
// it clones fresh, checking out whichever of rev/tag/branch/default the
// manifest names per §6.5's order.
func openOrClone(path string, dep Dependency, offline bool) (*git.Repository, error) {
	if _, err := os.Stat(path); err == nil {
		repo, err := git.PlainOpen(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening cached checkout at %s", path)
		}
		if offline {
			return repo, nil
		}
		if err := fetchAndCheckout(repo, dep); err != nil {
			return nil, err
		}
		return repo, nil
	}
	if offline {
		return nil, errors.Errorf("pkgmanifest: %s not cached and offline mode forbids a network clone", dep.Git)
	}

	opts := &git.CloneOptions{URL: dep.Git}
	if dep.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(dep.Branch)
	}
	repo, err := git.PlainClone(path, false, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "cloning %s", dep.Git)
	}
	if err := checkoutPin(repo, dep); err != nil {
		return nil, err
	}
	return repo, nil
}

func fetchAndCheckout(repo *git.Repository, dep Dependency) error {
	err := repo.Fetch(&git.FetchOptions{})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.Wrap(err, "fetching updates")
	}
	return checkoutPin(repo, dep)
}

// checkoutPin moves the worktree to dep's pinned revision/tag/branch,
// if one was named; a manifest naming none of them accepts whatever
// the clone already checked out (the remote's default branch).
func checkoutPin(repo *git.Repository, dep Dependency) error {
	if dep.Revision == "" && dep.Tag == "" && dep.Branch == "" {
		return nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "opening worktree")
	}

	var ref plumbing.Hash
	switch {
	case dep.Revision != "":
		ref = plumbing.NewHash(dep.Revision)
	case dep.Tag != "":
		tagRef, err := repo.Reference(plumbing.NewTagReferenceName(dep.Tag), true)
		if err != nil {
			return errors.Wrapf(err, "resolving tag %q", dep.Tag)
		}
		ref = tagRef.Hash()
	case dep.Branch != "":
		branchRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", dep.Branch), true)
		if err != nil {
			return errors.Wrapf(err, "resolving branch %q", dep.Branch)
		}
		ref = branchRef.Hash()
	}

	if err := wt.Checkout(&git.CheckoutOptions{Hash: ref}); err != nil {
		return errors.Wrapf(err, "checking out %s", ref)
	}
	return nil
}
