// Package docs exposes the document layer as one service: tree listing,
// file access, root-path management, folder suggestions, and repository
// synchronization. A project is identified on every call by its repository
// root and configured root paths; the service re-derives repository state
// per call and keeps none of its own.
package docs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/orcharddocs/orchard/internal/classify"
	"github.com/orcharddocs/orchard/internal/config"
	"github.com/orcharddocs/orchard/internal/doctree"
	"github.com/orcharddocs/orchard/internal/events"
	"github.com/orcharddocs/orchard/internal/gitcli"
	"github.com/orcharddocs/orchard/internal/gitsync"
	"github.com/orcharddocs/orchard/internal/metrics"
	"github.com/orcharddocs/orchard/internal/sandbox"
	"github.com/orcharddocs/orchard/internal/workspace"
)

// Service is the single entry point for everything the document layer
// does.
type Service struct {
	cfg         *config.Config
	runner      *gitcli.Runner
	sync        *gitsync.Controller
	roots       *workspace.Manager
	classifier  *classify.Classifier
	engine      *doctree.Engine
	broadcaster *events.Broadcaster
}

// New wires a Service from the configuration. A nil broadcaster gets a
// fresh one; callers that fan events out to a transport pass their own.
func New(cfg *config.Config, bc *events.Broadcaster) *Service {
	if bc == nil {
		bc = events.NewBroadcaster()
	}
	runner := gitcli.New(cfg.GitBinary, cfg.GitTimeout)
	return &Service{
		cfg:    cfg,
		runner: runner,
		sync:   gitsync.New(runner),
		roots:  workspace.New(runner),
		classifier: classify.New(runner, classify.Patterns{
			Preselect: cfg.PreselectPatterns,
			Suggest:   cfg.SuggestPatterns,
			Ignore:    cfg.IgnorePatterns,
		}, cfg.DocExtensions),
		engine:      doctree.NewEngine(cfg.MaxExpandedPaths),
		broadcaster: bc,
	}
}

// Events returns the broadcaster document mutations are published on.
func (s *Service) Events() *events.Broadcaster {
	return s.broadcaster
}

// Resolve reports the repository handle for an on-disk path.
func (s *Service) Resolve(ctx context.Context, path string) (gitcli.RepositoryHandle, error) {
	return s.runner.Resolve(ctx, path)
}

// ListTree returns the visible entries for the configured roots plus the
// client's expanded folders, echoing back which expansions were honored.
func (s *Service) ListTree(ctx context.Context, repoRoot string, roots []string, expanded doctree.ExpandedTree) (*doctree.Listing, error) {
	batch, err := s.classifier.Batch(ctx, repoRoot)
	if err != nil {
		metrics.RecordTreeListing(0, false)
		return nil, err
	}

	visible := make([]string, 0, len(roots))
	for _, r := range roots {
		if !batch.IsIgnored(r) {
			visible = append(visible, r)
		}
	}

	lister := doctree.NewDirLister(repoRoot, s.cfg.DocExtensions, s.cfg.MaxDirEntries, batch.IsIgnored)
	listing, err := s.engine.List(visible, expanded, lister)
	if err != nil {
		metrics.RecordTreeListing(0, false)
		return nil, err
	}
	metrics.RecordTreeListing(len(listing.Entries), true)
	return listing, nil
}

// IgnoreFilter returns the ignored-folder predicate for repoRoot, for
// callers that mirror the tree's visibility rules outside a listing. The
// watcher uses it to keep ignored subtrees out of the event stream.
func (s *Service) IgnoreFilter(ctx context.Context, repoRoot string) (func(rel string) bool, error) {
	batch, err := s.classifier.Batch(ctx, repoRoot)
	if err != nil {
		return nil, err
	}
	return batch.IsIgnored, nil
}

// AddFolder adds an on-disk folder to the project's root paths, returning
// the updated state and the repository it resolved into.
func (s *Service) AddFolder(ctx context.Context, state workspace.State, candidate string) (workspace.State, gitcli.RepositoryHandle, error) {
	return s.roots.AddFolder(ctx, state, candidate)
}

// RemoveFolder drops a root path from the project's configuration.
func (s *Service) RemoveFolder(state workspace.State, path string) (workspace.State, error) {
	return s.roots.RemoveFolder(state, path)
}

// Status reports branch, divergence, and working tree changes.
func (s *Service) Status(ctx context.Context, repoRoot string) (*gitsync.Status, error) {
	return s.sync.Status(ctx, repoRoot)
}

// Log returns commit history, newest first.
func (s *Service) Log(ctx context.Context, repoRoot string, limit int, pathFilter string) ([]gitsync.Commit, error) {
	return s.sync.Log(ctx, repoRoot, limit, pathFilter)
}

// Commit stages and commits the named paths, or everything when none are
// given.
func (s *Service) Commit(ctx context.Context, repoRoot, message string, paths ...string) (*gitsync.Commit, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: empty commit message", ErrInvalidInput)
	}
	commit, err := s.sync.Commit(ctx, repoRoot, message, paths...)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Publish(events.Event{
		Type:     events.EventCommit,
		RepoRoot: repoRoot,
	})
	return commit, nil
}

// Push publishes the current branch to origin.
func (s *Service) Push(ctx context.Context, repoRoot string) error {
	if err := s.sync.Push(ctx, repoRoot); err != nil {
		return err
	}
	s.broadcaster.Publish(events.Event{Type: events.EventPush, RepoRoot: repoRoot})
	return nil
}

// Pull merges upstream changes into the working tree.
func (s *Service) Pull(ctx context.Context, repoRoot string) error {
	if err := s.sync.Pull(ctx, repoRoot); err != nil {
		return err
	}
	s.broadcaster.Publish(events.Event{Type: events.EventPull, RepoRoot: repoRoot})
	return nil
}

// Suggestion is one folder worth offering in a documentation-root picker.
type Suggestion struct {
	Path     string            `json:"path"`
	Category classify.Category `json:"category"`
}

// SuggestFolders scans the repository's directories to a bounded depth and
// returns the preselect and suggest candidates, preselect first. Matched
// folders are not descended into: a candidate already implies its subtree.
func (s *Service) SuggestFolders(ctx context.Context, repoRoot string) ([]Suggestion, error) {
	batch, err := s.classifier.Batch(ctx, repoRoot)
	if err != nil {
		return nil, err
	}

	depth := s.cfg.SuggestDepth
	if depth <= 0 {
		depth = 3
	}

	var out []Suggestion
	suggestWalk(batch, repoRoot, "/", depth, &out)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category == classify.CategoryPreselect
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

func suggestWalk(batch *classify.Batch, absDir, relDir string, depth int, out *[]Suggestion) {
	if depth <= 0 {
		return
	}
	dirents, err := os.ReadDir(absDir)
	if err != nil {
		return
	}
	for _, de := range dirents {
		if !de.IsDir() || de.Name() == ".git" {
			continue
		}
		rel := sandbox.Normalize(relDir + "/" + de.Name())
		switch cat := batch.Classify(rel); cat {
		case classify.CategoryIgnore:
			continue
		case classify.CategoryPreselect, classify.CategorySuggest:
			*out = append(*out, Suggestion{Path: rel, Category: cat})
		default:
			suggestWalk(batch, filepath.Join(absDir, de.Name()), rel, depth-1, out)
		}
	}
}
