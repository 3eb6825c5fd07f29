package gitsync

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/orcharddocs/orchard/internal/gitcli"
	"github.com/orcharddocs/orchard/internal/sandbox"
)

// defaultLogLimit bounds history queries that do not name their own limit.
const defaultLogLimit = 20

// Commit is one history entry.
type Commit struct {
	Hash      string    `json:"hash"`
	ShortHash string    `json:"shortHash"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Date      time.Time `json:"date"`
	Subject   string    `json:"subject"`
}

// logFormat emits one commit per line with unit-separator delimited fields,
// so subjects containing any printable text parse cleanly.
const logFormat = "%H%x1f%h%x1f%an%x1f%ae%x1f%aI%x1f%s"

// Log returns up to limit commits, newest first. A non-empty pathFilter
// restricts history to commits touching that repo-relative path.
func (c *Controller) Log(ctx context.Context, repoRoot string, limit int, pathFilter string) ([]Commit, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	args := []string{"log", "--pretty=format:" + logFormat, "-n", strconv.Itoa(limit)}
	if pathFilter != "" {
		args = append(args, "--", strings.TrimPrefix(sandbox.Normalize(pathFilter), "/"))
	}

	out, err := c.runner.Run(ctx, repoRoot, args...)
	if err != nil {
		// A repository with no commits yet has an empty history, not a
		// failure.
		var cmdErr *gitcli.CommandError
		if errors.As(err, &cmdErr) &&
			strings.Contains(strings.ToLower(cmdErr.Stderr), "does not have any commits") {
			return nil, nil
		}
		return nil, ParseGitError(err)
	}
	return parseLog(string(out)), nil
}

func parseLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\x1f")
		if len(fields) < 6 {
			continue
		}
		date, err := time.Parse(time.RFC3339, fields[4])
		if err != nil {
			continue
		}
		commits = append(commits, Commit{
			Hash:      fields[0],
			ShortHash: fields[1],
			Author:    fields[2],
			Email:     fields[3],
			Date:      date,
			Subject:   fields[5],
		})
	}
	return commits
}
