package doctree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"syscall"

	"github.com/orcharddocs/orchard/internal/sandbox"
)

// DirLister reads children from a repository working tree. Files are
// filtered to the configured document extensions; directories pass through
// unless ignored. Symlinks and other irregular entries are dropped so the
// sandbox cannot be escaped through a link target.
type DirLister struct {
	repoRoot   string
	extensions map[string]struct{}
	maxEntries int
	isIgnored  func(rel string) bool
}

// NewDirLister builds a DirLister for repoRoot. extensions are matched
// case-insensitively; isIgnored may be nil.
func NewDirLister(repoRoot string, extensions []string, maxEntries int, isIgnored func(rel string) bool) *DirLister {
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
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &DirLister{
		repoRoot:   repoRoot,
		extensions: exts,
		maxEntries: maxEntries,
		isIgnored:  isIgnored,
	}
}

// List returns the immediate children of the repo-relative directory dir.
// An ignored directory lists like a missing one, so ignored subtrees stay
// invisible even when a client expands them directly.
func (l *DirLister) List(dir string) ([]FileEntry, error) {
	abs, err := sandbox.ResolveAndContain(l.repoRoot, dir)
	if err != nil {
		return nil, err
	}
	if l.isIgnored != nil && l.isIgnored(sandbox.Normalize(dir)) {
		return nil, fs.ErrNotExist
	}

	dirents, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, syscall.ENOTDIR) {
			// The path stopped being a directory since the client expanded
			// it; report it like a vanished one.
			return nil, fs.ErrNotExist
		}
		return nil, err
	}

	if len(dirents) > l.maxEntries {
		return nil, fmt.Errorf("%w: %s has %d entries (limit %d)",
			ErrTooManyFiles, sandbox.Normalize(dir), len(dirents), l.maxEntries)
	}

	dir = sandbox.Normalize(dir)
	var out []FileEntry
	for _, de := range dirents {
		name := de.Name()
		if name == ".git" {
			continue
		}
		rel := sandbox.Normalize(dir + "/" + name)
		if l.isIgnored != nil && l.isIgnored(rel) {
			continue
		}

		switch {
		case de.IsDir():
			out = append(out, FileEntry{Name: name, Path: rel, Type: EntryDirectory})
		case de.Type().IsRegular():
			if _, ok := l.extensions[strings.ToLower(path.Ext(name))]; ok {
				out = append(out, FileEntry{Name: name, Path: rel, Type: EntryFile})
			}
		}
	}
	return out, nil
}
