// Package vcs enriches analyzed files with git history.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ErrNotRepository is returned when root is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Repo is an opened work tree plus the location of the analyzed root inside it.
type Repo struct {
	repo   *git.Repository
	prefix string // root relative to the work tree, slash-separated, "" at top level
}

// Open finds the repository containing root, searching parent directories.
func Open(root string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening work tree: %w", err)
	}

	top, err := canonical(wt.Filesystem.Root())
	if err != nil {
		return nil, err
	}
	abs, err := canonical(root)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(top, abs)
	if err != nil {
		return nil, fmt.Errorf("locating %s in work tree: %w", root, err)
	}
	prefix := filepath.ToSlash(rel)
	if prefix == "." {
		prefix = ""
	}
	return &Repo{repo: repo, prefix: prefix}, nil
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// LastCommitHours returns, for each of paths (slash-separated, relative to
// the root given to Open), the whole hours between now and the most recent
// commit that touched it. Paths never committed are absent from the result.
// History is walked newest first and stops once every path is resolved.
func (r *Repo) LastCommitHours(ctx context.Context, paths []string, now time.Time) (map[string]int, error) {
	pending := make(map[string]string, len(paths))
	for _, p := range paths {
		pending[r.repoPath(p)] = p
	}
	result := make(map[string]int, len(paths))
	if len(pending) == 0 {
		return result, nil
	}

	head, err := r.repo.Head()
	if err != nil {
		// An empty repository has no HEAD yet.
		return result, nil
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		changed, err := changedFiles(c)
		if err != nil {
			return err
		}
		hours := hoursSince(c.Committer.When, now)
		for _, name := range changed {
			if p, ok := pending[name]; ok {
				result[p] = hours
				delete(pending, name)
			}
		}
		if len(pending) == 0 {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Repo) repoPath(p string) string {
	if r.prefix == "" {
		return p
	}
	return r.prefix + "/" + strings.TrimPrefix(p, "/")
}

// changedFiles lists the paths a commit added or modified relative to its
// first parent. A root commit changes every file in its tree.
func changedFiles(c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree of %s: %w", c.Hash, err)
	}

	if c.NumParents() == 0 {
		var names []string
		err := tree.Files().ForEach(func(f *object.File) error {
			names = append(names, f.Name)
			return nil
		})
		return names, err
	}

	parent, err := c.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("reading parent of %s: %w", c.Hash, err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree of %s: %w", parent.Hash, err)
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, fmt.Errorf("diffing %s: %w", c.Hash, err)
	}

	names := make([]string, 0, len(changes))
	for _, ch := range changes {
		if ch.To.Name != "" {
			names = append(names, ch.To.Name)
		}
	}
	return names, nil
}

func hoursSince(then, now time.Time) int {
	return max(int(now.Sub(then).Hours()), 0)
}
