// Package gitsync orchestrates repository synchronization: status, history,
// commit, push, and pull. Every git failure crossing this package's
// boundary is folded into a GitError with a stable code and a user-safe
// message.
package gitsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/orcharddocs/orchard/internal/gitcli"
	"github.com/orcharddocs/orchard/internal/logging"
	"github.com/orcharddocs/orchard/internal/sandbox"
)

// Controller runs synchronization operations against one repository at a
// time, identified by its root on every call. It keeps no repository state
// between calls.
//
// Controller does not serialize writers: two concurrent commits against the
// same working tree race at the git level. Callers with concurrent writers
// must hold a per-repository lock around Commit, Push, and Pull.
type Controller struct {
	runner *gitcli.Runner
}

func New(runner *gitcli.Runner) *Controller {
	return &Controller{runner: runner}
}

// Commit stages the given repo-relative paths (everything, when none are
// named) and commits them, returning the new head commit.
func (c *Controller) Commit(ctx context.Context, repoRoot, message string, paths ...string) (*Commit, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("commit: empty message")
	}

	addArgs := []string{"add"}
	if len(paths) == 0 {
		addArgs = append(addArgs, "-A")
	} else {
		addArgs = append(addArgs, "--")
		for _, p := range paths {
			addArgs = append(addArgs, strings.TrimPrefix(sandbox.Normalize(p), "/"))
		}
	}
	if _, err := c.runner.Run(ctx, repoRoot, addArgs...); err != nil {
		return nil, ParseGitError(err)
	}

	if _, err := c.runner.Run(ctx, repoRoot, "commit", "-m", message); err != nil {
		return nil, ParseGitError(err)
	}

	head, err := c.Log(ctx, repoRoot, 1, "")
	if err != nil {
		return nil, err
	}
	if len(head) == 0 {
		return nil, fmt.Errorf("commit: no head commit after committing")
	}
	logging.Info("committed",
		logging.String("repo", repoRoot),
		logging.String("commit", head[0].ShortHash))
	return &head[0], nil
}

// Push publishes the current branch to origin.
func (c *Controller) Push(ctx context.Context, repoRoot string) error {
	if _, err := c.runner.Run(ctx, repoRoot, "push", "origin", "HEAD"); err != nil {
		return ParseGitError(err)
	}
	logging.Info("pushed", logging.String("repo", repoRoot))
	return nil
}

// Pull merges the upstream branch into the working tree. Rebase is
// disabled so divergence surfaces as an ordinary merge, and a failed merge
// as MERGE_CONFLICT.
func (c *Controller) Pull(ctx context.Context, repoRoot string) error {
	if _, err := c.runner.Run(ctx, repoRoot, "pull", "--no-rebase"); err != nil {
		return ParseGitError(err)
	}
	logging.Info("pulled", logging.String("repo", repoRoot))
	return nil
}
