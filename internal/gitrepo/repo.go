// Package gitrepo reads the caller's repository: revision resolution and
// main-document discovery through go-git, snapshot export through the
// non-destructive `git archive` mechanism. The repository is never
// mutated; no checkout or index operation is ever performed.
package gitrepo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/texerr"
)

// Repo wraps an opened repository and its worktree root.
type Repo struct {
	repo *git.Repository
	root string
}

// Open locates and opens the repository containing dir, searching upwards
// for the .git directory the way the git CLI does.
func Open(dir string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, texerr.Wrap(err, texerr.CategoryUsage, "not inside a git repository")
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, texerr.Wrap(err, texerr.CategoryUsage, "repository has no working tree")
	}
	return &Repo{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the absolute path of the repository's working tree.
func (r *Repo) Root() string { return r.root }

// Resolve turns a user-supplied revision into a commit hash. The
// working-tree sentinel passes through unresolved; it names no commit.
func (r *Repo) Resolve(rev string) (string, error) {
	if rev == config.WorktreeRev {
		return rev, nil
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", texerr.Wrap(err, texerr.CategoryUsage, fmt.Sprintf("cannot resolve revision %q", rev))
	}
	return hash.String(), nil
}

// FindMainDocument searches the tracked files of rev for the single .tex
// file containing a \documentclass declaration. Anything but exactly one
// candidate is a usage error: the caller must then pass --main.
func (r *Repo) FindMainDocument(rev string) (string, error) {
	lookup := rev
	if lookup == config.WorktreeRev {
		lookup = "HEAD"
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(lookup))
	if err != nil {
		return "", texerr.Wrap(err, texerr.CategoryUsage, fmt.Sprintf("cannot resolve revision %q", lookup))
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return "", texerr.Wrap(err, texerr.CategoryUsage, fmt.Sprintf("revision %q is not a commit", lookup))
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", texerr.Wrap(err, texerr.CategoryInternal, "read commit tree")
	}

	var candidates []string
	err = tree.Files().ForEach(func(f *object.File) error {
		if !strings.HasSuffix(f.Name, ".tex") {
			return nil
		}
		contents, err := f.Contents()
		if err != nil {
			return nil // unreadable blob, not a candidate
		}
		if strings.Contains(contents, `\documentclass`) {
			candidates = append(candidates, f.Name)
		}
		return nil
	})
	if err != nil {
		return "", texerr.Wrap(err, texerr.CategoryInternal, "walk tracked files")
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return "", texerr.UsageError("no .tex file with \\documentclass found; use --main to name the document")
	default:
		sort.Strings(candidates)
		return "", texerr.UsageError(fmt.Sprintf(
			"several candidate documents (%s); use --main to pick one", strings.Join(candidates, ", ")))
	}
}
