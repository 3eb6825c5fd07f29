package gitsync

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/orcharddocs/orchard/internal/sandbox"
)

// FileChange is one changed path with its single-letter git status
// (M, A, D, R, C, T).
type FileChange struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// Status is a snapshot of the working tree relative to its branch and
// upstream. Branch is empty on a detached HEAD.
type Status struct {
	Branch    string       `json:"branch"`
	Upstream  string       `json:"upstream,omitempty"`
	Head      string       `json:"head,omitempty"`
	Detached  bool         `json:"detached,omitempty"`
	Ahead     int          `json:"ahead"`
	Behind    int          `json:"behind"`
	Staged    []FileChange `json:"staged,omitempty"`
	Unstaged  []FileChange `json:"unstaged,omitempty"`
	Untracked []string     `json:"untracked,omitempty"`
	Conflicts []string     `json:"conflicts,omitempty"`
	Clean     bool         `json:"clean"`
}

// Status reports the repository's branch, upstream divergence, and changed
// files from a single porcelain v2 invocation.
func (c *Controller) Status(ctx context.Context, repoRoot string) (*Status, error) {
	out, err := c.runner.Run(ctx, repoRoot,
		"status", "--porcelain=v2", "--branch", "--untracked-files=all")
	if err != nil {
		return nil, ParseGitError(err)
	}
	return parseStatus(string(out)), nil
}

func parseStatus(out string) *Status {
	st := &Status{}

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		switch line[0] {
		case '#':
			parseStatusHeader(st, line)
		case '1':
			// 1 <XY> <sub> <mH> <mI> <mW> <hH> <hI> <path>
			parts := strings.SplitN(line, " ", 9)
			if len(parts) < 9 {
				continue
			}
			appendChange(st, parts[1], parts[8])
		case '2':
			// 2 <XY> <sub> <mH> <mI> <mW> <hH> <hI> <Xscore> <path>\t<origPath>
			parts := strings.SplitN(line, " ", 10)
			if len(parts) < 10 {
				continue
			}
			p, _, _ := strings.Cut(parts[9], "\t")
			appendChange(st, parts[1], p)
		case 'u':
			// u <XY> <sub> <m1> <m2> <m3> <mW> <h1> <h2> <h3> <path>
			parts := strings.SplitN(line, " ", 11)
			if len(parts) < 11 {
				continue
			}
			st.Conflicts = append(st.Conflicts, sandbox.Normalize(parts[10]))
		case '?':
			if len(line) > 2 {
				st.Untracked = append(st.Untracked, sandbox.Normalize(line[2:]))
			}
		}
	}

	st.Clean = len(st.Staged) == 0 && len(st.Unstaged) == 0 &&
		len(st.Untracked) == 0 && len(st.Conflicts) == 0
	return st
}

func parseStatusHeader(st *Status, line string) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return
	}
	switch fields[1] {
	case "branch.head":
		if fields[2] == "(detached)" {
			st.Detached = true
		} else {
			st.Branch = fields[2]
		}
	case "branch.oid":
		if fields[2] != "(initial)" {
			st.Head = fields[2]
		}
	case "branch.upstream":
		st.Upstream = fields[2]
	case "branch.ab":
		if len(fields) >= 4 {
			st.Ahead, _ = strconv.Atoi(fields[2])
			st.Behind, _ = strconv.Atoi(strings.TrimPrefix(fields[3], "-"))
		}
	}
}

// appendChange splits a porcelain XY pair into the staged and unstaged
// change lists. X reports the index, Y the working tree; "." means
// unchanged on that side.
func appendChange(st *Status, xy, rawPath string) {
	if len(xy) != 2 {
		return
	}
	p := sandbox.Normalize(rawPath)
	if xy[0] != '.' {
		st.Staged = append(st.Staged, FileChange{Path: p, Status: string(xy[0])})
	}
	if xy[1] != '.' {
		st.Unstaged = append(st.Unstaged, FileChange{Path: p, Status: string(xy[1])})
	}
}
