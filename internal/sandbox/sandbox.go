// Package sandbox implements the path containment boundary for document
// trees. All paths handled here are slash-separated; operating-system
// conversion happens at the edges via ToSlash/FromSlash. The package does
// pure path arithmetic and never touches the filesystem.
package sandbox

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrTraversal is returned when a resolved path escapes its repository root.
var ErrTraversal = errors.New("path escapes repository root")

// Normalize returns the canonical form of a root-relative path: leading
// slash, cleaned, no trailing slash except the literal root "/".
func Normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// IsWithin reports whether target equals one of roots or lies beneath one.
// Matching uses a root+"/" prefix test on normalized paths, so sibling names
// sharing a prefix ("/docs" vs "/docs-extra") never match. The root "/"
// contains every path.
func IsWithin(target string, roots []string) bool {
	t := Normalize(target)
	for _, root := range roots {
		r := Normalize(root)
		if r == "/" {
			return true
		}
		if t == r || strings.HasPrefix(t, r+"/") {
			return true
		}
	}
	return false
}

// RelativeTo returns the path of abs relative to repoRoot, prefixed with
// "/". The identical-path case returns "/". When abs does not lie under
// repoRoot the result is empty.
func RelativeTo(repoRoot, abs string) string {
	root := Normalize(filepath.ToSlash(repoRoot))
	target := Normalize(filepath.ToSlash(abs))
	if target == root {
		return "/"
	}
	if root == "/" {
		return target
	}
	if strings.HasPrefix(target, root+"/") {
		return target[len(root):]
	}
	return ""
}

// ResolveAndContain joins repoRoot with a repo-relative path, normalizes the
// result, and verifies it still lies inside repoRoot. It fails closed: any
// input that resolves outside the root, including ".." traversal, returns
// ErrTraversal. Every filesystem path for document access must be built
// through this function.
func ResolveAndContain(repoRoot, rel string) (string, error) {
	root := Normalize(filepath.ToSlash(repoRoot))
	joined := path.Clean(root + "/" + filepath.ToSlash(rel))
	if joined != root && !strings.HasPrefix(joined, root+"/") {
		return "", fmt.Errorf("resolve %q: %w", rel, ErrTraversal)
	}
	return filepath.FromSlash(joined), nil
}
