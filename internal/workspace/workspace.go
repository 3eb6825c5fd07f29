// Package workspace manages a project's configured root paths: which
// folders of a repository are exposed as document tree entry points.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/orcharddocs/orchard/internal/gitcli"
	"github.com/orcharddocs/orchard/internal/sandbox"
)

var (
	// ErrNotGitRepo reports a candidate folder with no repository above it.
	ErrNotGitRepo = errors.New("not inside a git repository")
	// ErrDifferentRepo reports a candidate folder in another repository
	// than the project's existing root paths.
	ErrDifferentRepo = errors.New("folder belongs to a different repository")
	// ErrDuplicatePath reports a candidate already covered by a root path.
	ErrDuplicatePath = errors.New("folder is already covered by a root path")
	// ErrRootNotFound reports removal of a path that is not a root path.
	ErrRootNotFound = errors.New("root path not configured")
)

// State is a project's root-path configuration. It travels by value:
// callers pass the current state in and persist the returned one. RepoRoot
// is empty until the first folder is added and cleared again when the last
// root is removed, so the project can later bind to a different repository.
//
// Invariant: Roots holds repo-relative normalized paths, sorted, with no
// two paths in an ancestor/descendant relationship.
type State struct {
	RepoRoot string   `json:"repoRoot"`
	Roots    []string `json:"roots"`
}

// Manager validates and applies root-path changes. It holds no project
// state of its own.
type Manager struct {
	runner *gitcli.Runner
}

func New(runner *gitcli.Runner) *Manager {
	return &Manager{runner: runner}
}

// AddFolder adds the on-disk folder candidate as a root path and returns
// the updated state along with the repository handle the candidate resolved
// to. Adding an ancestor of existing roots removes the subsumed
// descendants; a root already implies everything beneath it.
func (m *Manager) AddFolder(ctx context.Context, state State, candidate string) (State, gitcli.RepositoryHandle, error) {
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return state, gitcli.RepositoryHandle{}, fmt.Errorf("add folder %q: %w", candidate, err)
	}
	// Git reports toplevels with symlinks resolved, so resolve the
	// candidate the same way before deriving relative paths from it.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return state, gitcli.RepositoryHandle{}, fmt.Errorf("add folder %q: %w", candidate, err)
	}
	if !info.IsDir() {
		return state, gitcli.RepositoryHandle{}, fmt.Errorf("add folder %q: not a directory", candidate)
	}

	handle, err := m.runner.Resolve(ctx, abs)
	if err != nil {
		return state, gitcli.RepositoryHandle{}, err
	}
	if handle.RepoRoot == "" {
		return state, gitcli.RepositoryHandle{}, fmt.Errorf("add folder %q: %w", candidate, ErrNotGitRepo)
	}
	if state.RepoRoot != "" && state.RepoRoot != handle.RepoRoot {
		return state, gitcli.RepositoryHandle{}, fmt.Errorf("add folder %q: %w", candidate, ErrDifferentRepo)
	}

	rel := sandbox.RelativeTo(handle.RepoRoot, abs)
	if rel == "" {
		return state, gitcli.RepositoryHandle{}, fmt.Errorf("add folder %q: resolved outside repository %s", candidate, handle.RepoRoot)
	}
	if sandbox.IsWithin(rel, state.Roots) {
		return state, gitcli.RepositoryHandle{}, fmt.Errorf("add folder %q: %w", rel, ErrDuplicatePath)
	}

	next := State{RepoRoot: handle.RepoRoot}
	for _, r := range state.Roots {
		if sandbox.IsWithin(r, []string{rel}) {
			continue
		}
		next.Roots = append(next.Roots, r)
	}
	next.Roots = append(next.Roots, rel)
	sort.Strings(next.Roots)
	return next, handle, nil
}

// RemoveFolder removes a root path from the configuration. Nothing on disk
// is touched.
func (m *Manager) RemoveFolder(state State, p string) (State, error) {
	rel := sandbox.Normalize(p)
	idx := -1
	for i, r := range state.Roots {
		if r == rel {
			idx = i
			break
		}
	}
	if idx == -1 {
		return state, fmt.Errorf("remove folder %q: %w", rel, ErrRootNotFound)
	}

	next := State{RepoRoot: state.RepoRoot}
	next.Roots = append(next.Roots, state.Roots[:idx]...)
	next.Roots = append(next.Roots, state.Roots[idx+1:]...)
	if len(next.Roots) == 0 {
		next.RepoRoot = ""
	}
	return next, nil
}
