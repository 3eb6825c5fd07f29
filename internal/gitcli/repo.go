package gitcli

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/orcharddocs/orchard/internal/sandbox"
)

// RepositoryHandle is the resolved identity of a repository for one call.
// Branch is empty on a detached HEAD; RemoteURL is empty when no remote is
// configured. Handles are re-derived per operation and never cached.
type RepositoryHandle struct {
	RepoRoot  string
	Branch    string
	RemoteURL string
}

// FindRepoRoot returns the root of the repository containing path, or an
// empty string when path is not inside any repository. The latter is a
// common, expected case and not an error.
func (r *Runner) FindRepoRoot(ctx context.Context, path string) (string, error) {
	out, err := r.RunTrimmed(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		if stderrContains(err, "not a git repository") {
			return "", nil
		}
		return "", err
	}
	return filepath.Clean(out), nil
}

// CurrentBranch returns the branch repoRoot has checked out, or an empty
// string on a detached HEAD.
func (r *Runner) CurrentBranch(ctx context.Context, repoRoot string) (string, error) {
	out, err := r.RunTrimmed(ctx, repoRoot, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if out == "HEAD" {
		return "", nil
	}
	return out, nil
}

// RemoteURL returns the URL of the origin remote, or an empty string when no
// remote is configured.
func (r *Runner) RemoteURL(ctx context.Context, repoRoot string) (string, error) {
	out, err := r.RunTrimmed(ctx, repoRoot, "remote", "get-url", "origin")
	if err != nil {
		if stderrContains(err, "no such remote") {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// Resolve derives the full repository handle for a path inside a working
// tree. The handle's RepoRoot is empty when the path is outside any
// repository.
func (r *Runner) Resolve(ctx context.Context, path string) (RepositoryHandle, error) {
	root, err := r.FindRepoRoot(ctx, path)
	if err != nil || root == "" {
		return RepositoryHandle{}, err
	}
	branch, err := r.CurrentBranch(ctx, root)
	if err != nil {
		return RepositoryHandle{}, err
	}
	remote, err := r.RemoteURL(ctx, root)
	if err != nil {
		return RepositoryHandle{}, err
	}
	return RepositoryHandle{RepoRoot: root, Branch: branch, RemoteURL: remote}, nil
}

// IgnoredPaths returns the set of repository-ignored paths, normalized to
// repo-relative form, in a single subprocess call. Directories are reported
// collapsed (the directory itself, not each file underneath).
func (r *Runner) IgnoredPaths(ctx context.Context, repoRoot string) (map[string]struct{}, error) {
	out, err := r.Run(ctx, repoRoot,
		"ls-files", "--others", "--ignored", "--exclude-standard", "--directory", "-z")
	if err != nil {
		return nil, err
	}

	ignored := make(map[string]struct{})
	for _, entry := range strings.Split(string(out), "\x00") {
		entry = strings.TrimSuffix(entry, "/")
		if entry == "" {
			continue
		}
		ignored[sandbox.Normalize(entry)] = struct{}{}
	}
	return ignored, nil
}
