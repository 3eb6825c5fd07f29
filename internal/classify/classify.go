// Package classify categorizes candidate folders for the documentation-root
// picker: which to auto-select, which to offer, and which to hide entirely.
package classify

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/orcharddocs/orchard/internal/gitcli"
	"github.com/orcharddocs/orchard/internal/metrics"
	"github.com/orcharddocs/orchard/internal/sandbox"
)

// Category is the classification outcome for one folder.
type Category string

const (
	CategoryPreselect Category = "preselect"
	CategorySuggest   Category = "suggest"
	CategoryIgnore    Category = "ignore"
	CategoryNormal    Category = "normal"
)

// Patterns holds the ordered path-prefix pattern lists. A pattern matches a
// path on exact equality or as a pattern+"/" ancestor, the same rule the
// sandbox uses for containment. Ignore always wins over preselect and
// suggest.
type Patterns struct {
	Preselect []string
	Suggest   []string
	Ignore    []string
}

func (p Patterns) merge(other Patterns) Patterns {
	return Patterns{
		Preselect: append(append([]string(nil), p.Preselect...), other.Preselect...),
		Suggest:   append(append([]string(nil), p.Suggest...), other.Suggest...),
		Ignore:    append(append([]string(nil), p.Ignore...), other.Ignore...),
	}
}

// probeDepth bounds the contains-a-document search below a candidate folder.
const probeDepth = 4

// Classifier builds per-repository classification batches from the
// configured patterns and document extensions.
type Classifier struct {
	runner     *gitcli.Runner
	patterns   Patterns
	extensions map[string]struct{}
}

// New returns a Classifier. extensions are matched case-insensitively.
func New(runner *gitcli.Runner, patterns Patterns, extensions []string) *Classifier {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &Classifier{runner: runner, patterns: patterns, extensions: exts}
}

// Batch snapshots one repository's ignore state: the repository's own ignore
// rules and any .orchard.yml overrides are loaded once, so classifying any
// number of paths afterwards spawns no further subprocesses.
type Batch struct {
	c        *Classifier
	repoRoot string
	patterns Patterns
	ignored  map[string]struct{}
}

// Batch loads the ignore state for repoRoot and returns a Batch bound to it.
func (c *Classifier) Batch(ctx context.Context, repoRoot string) (*Batch, error) {
	ignored, err := c.runner.IgnoredPaths(ctx, repoRoot)
	if err != nil {
		return nil, err
	}
	return &Batch{
		c:        c,
		repoRoot: repoRoot,
		patterns: c.patterns.merge(loadRepoConfig(repoRoot)),
		ignored:  ignored,
	}, nil
}

// Classify returns the category for a repo-relative folder path.
func (b *Batch) Classify(p string) Category {
	cat := b.classify(p)
	metrics.RecordClassification(string(cat))
	return cat
}

func (b *Batch) classify(p string) Category {
	p = sandbox.Normalize(p)
	switch {
	case b.IsIgnored(p):
		return CategoryIgnore
	case sandbox.IsWithin(p, b.patterns.Preselect) && b.containsDocument(p):
		return CategoryPreselect
	case sandbox.IsWithin(p, b.patterns.Suggest) && b.containsDocument(p):
		return CategorySuggest
	default:
		return CategoryNormal
	}
}

// IsIgnored reports whether the repo-relative path matches an ignore pattern
// or is covered by the repository's own ignore rules. Ignored folders are
// omitted from listings entirely, not merely flagged.
func (b *Batch) IsIgnored(p string) bool {
	p = sandbox.Normalize(p)
	if sandbox.IsWithin(p, b.patterns.Ignore) {
		return true
	}
	if _, ok := b.ignored[p]; ok {
		return true
	}
	// The ignore set reports directories collapsed, so check ancestors too.
	for prefix := path.Dir(p); prefix != "/" && prefix != "."; prefix = path.Dir(prefix) {
		if _, ok := b.ignored[prefix]; ok {
			return true
		}
	}
	return false
}

// containsDocument reports whether at least one document file exists at or
// below the folder, searching breadth-bounded with early exit and pruning
// ignored subtrees.
func (b *Batch) containsDocument(rel string) bool {
	abs, err := sandbox.ResolveAndContain(b.repoRoot, rel)
	if err != nil {
		return false
	}
	return b.probeDir(abs, sandbox.Normalize(rel), probeDepth)
}

func (b *Batch) probeDir(abs, rel string, depth int) bool {
	if depth < 0 {
		return false
	}
	dirents, err := os.ReadDir(abs)
	if err != nil {
		return false
	}

	for _, de := range dirents {
		if de.Type().IsRegular() {
			if _, ok := b.c.extensions[strings.ToLower(path.Ext(de.Name()))]; ok {
				return true
			}
		}
	}
	for _, de := range dirents {
		if !de.IsDir() || de.Name() == ".git" {
			continue
		}
		childRel := sandbox.Normalize(rel + "/" + de.Name())
		if b.IsIgnored(childRel) {
			continue
		}
		if b.probeDir(abs+string(os.PathSeparator)+de.Name(), childRel, depth-1) {
			return true
		}
	}
	return false
}
