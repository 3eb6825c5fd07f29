package doctree

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/orcharddocs/orchard/internal/sandbox"
)

var (
	// ErrTooManyExpandedPaths rejects a listing whose expansion set exceeds
	// the engine cap before any directory is read.
	ErrTooManyExpandedPaths = errors.New("too many expanded paths")

	// ErrTooManyFiles rejects a listing when one directory exceeds the
	// per-directory entry ceiling.
	ErrTooManyFiles = errors.New("too many files in directory")
)

// EntryType distinguishes files from directories in a listing.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
)

// FileEntry is one node of a listing. Paths are repo-relative. Entries are
// computed per request and never persisted.
type FileEntry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Type EntryType `json:"type"`
}

// Lister returns the immediate children of a repo-relative directory.
// A missing or no-longer-a-directory path is reported as fs.ErrNotExist;
// a directory over the entry ceiling as ErrTooManyFiles.
type Lister interface {
	List(dir string) ([]FileEntry, error)
}

// Listing is the result of one tree request: the flat entry list and the
// echo of the validly-expanded set, in the same nested shape the client
// sent, so its next request can round-trip it.
type Listing struct {
	Entries  []FileEntry  `json:"entries"`
	Expanded ExpandedTree `json:"expanded"`
}

// Engine builds listings from a root set and a client expansion set.
type Engine struct {
	maxExpandedPaths int
}

// NewEngine returns an Engine capping the expansion union at
// maxExpandedPaths (default 200 when non-positive).
func NewEngine(maxExpandedPaths int) *Engine {
	if maxExpandedPaths <= 0 {
		maxExpandedPaths = 200
	}
	return &Engine{maxExpandedPaths: maxExpandedPaths}
}

// List produces the flat entry list for the union of roots and the client's
// expanded set. Roots are implicitly expanded and emit their own directory
// entry. Expanded paths outside the roots, or gone from disk, are skipped
// silently: the client's cached expansion state may be stale. The returned
// Listing echoes only the paths that were actually expanded.
func (e *Engine) List(roots []string, expanded ExpandedTree, lister Lister) (*Listing, error) {
	rootSet := make(map[string]struct{}, len(roots))
	normRoots := make([]string, 0, len(roots))
	for _, root := range roots {
		r := sandbox.Normalize(root)
		if _, ok := rootSet[r]; !ok {
			rootSet[r] = struct{}{}
			normRoots = append(normRoots, r)
		}
	}

	union := make(map[string]struct{}, len(rootSet))
	for r := range rootSet {
		union[r] = struct{}{}
	}
	for _, p := range Flatten(expanded) {
		union[p] = struct{}{}
	}

	if len(union) > e.maxExpandedPaths {
		return nil, fmt.Errorf("%w: %d paths (limit %d)",
			ErrTooManyExpandedPaths, len(union), e.maxExpandedPaths)
	}

	paths := make([]string, 0, len(union))
	for p := range union {
		paths = append(paths, p)
	}
	SortByDepth(paths)

	var entries []FileEntry
	var validExpanded []string

	for _, p := range paths {
		if _, isRoot := rootSet[p]; isRoot && p != "/" {
			entries = append(entries, FileEntry{
				Name: path.Base(p),
				Path: p,
				Type: EntryDirectory,
			})
		}

		if !sandbox.IsWithin(p, normRoots) {
			continue
		}

		children, err := lister.List(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
				continue
			}
			return nil, err
		}

		entries = spliceAfter(entries, p, children)
		validExpanded = append(validExpanded, p)
	}

	return &Listing{Entries: entries, Expanded: Nest(validExpanded)}, nil
}

// spliceAfter inserts children immediately after the entry for parent when
// that entry exists, otherwise appends them.
func spliceAfter(entries []FileEntry, parent string, children []FileEntry) []FileEntry {
	if len(children) == 0 {
		return entries
	}
	at := len(entries)
	for i, entry := range entries {
		if entry.Path == parent {
			at = i + 1
			break
		}
	}
	out := make([]FileEntry, 0, len(entries)+len(children))
	out = append(out, entries[:at]...)
	out = append(out, children...)
	out = append(out, entries[at:]...)
	return out
}
