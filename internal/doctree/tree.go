// Package doctree converts between the sparse expanded-tree representation a
// client sends and the flat, depth-ordered listings of a project's document
// tree. Internally everything operates on flat path sets; the nested form is
// only a wire format and is converted at the boundary.
package doctree

import (
	"sort"
	"strings"

	"github.com/orcharddocs/orchard/internal/sandbox"
)

// ExpandedTree is the nested wire form of the open-directory set: each key
// is one path segment mapping to the subtree below it. Every node present is
// an expanded directory, so a well-formed tree is closed under ancestors (a
// client cannot hold a directory open without its parent). The repository
// root "/" is the tree itself and never appears as a key.
type ExpandedTree map[string]ExpandedTree

// Flatten returns the sorted set of absolute-from-root paths in t.
func Flatten(t ExpandedTree) []string {
	var paths []string
	flattenInto(t, "", &paths)
	sort.Strings(paths)
	return paths
}

func flattenInto(t ExpandedTree, parent string, out *[]string) {
	for seg, sub := range t {
		p := sandbox.Normalize(parent + "/" + seg)
		if p == "/" {
			// An empty or slash segment cannot name a child.
			continue
		}
		*out = append(*out, p)
		flattenInto(sub, p, out)
	}
}

// Nest converts a flat set of absolute paths to the nested wire form,
// inserting any missing intermediate nodes. The root path "/" is implicit
// and produces no key.
func Nest(paths []string) ExpandedTree {
	t := ExpandedTree{}
	for _, p := range paths {
		p = sandbox.Normalize(p)
		if p == "/" {
			continue
		}
		node := t
		for _, seg := range strings.Split(p[1:], "/") {
			child, ok := node[seg]
			if !ok {
				child = ExpandedTree{}
				node[seg] = child
			}
			node = child
		}
	}
	return t
}

// Depth returns the number of path segments; the root "/" has depth zero.
func Depth(p string) int {
	p = sandbox.Normalize(p)
	if p == "/" {
		return 0
	}
	return strings.Count(p, "/")
}

// SortByDepth orders paths shallow-first, breaking ties lexicographically so
// the result is deterministic. After sorting, no path precedes one of its
// ancestors.
func SortByDepth(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		di, dj := Depth(paths[i]), Depth(paths[j])
		if di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})
}
