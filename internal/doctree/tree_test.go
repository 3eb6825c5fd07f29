package doctree

import (
	"reflect"
	"sort"
	"testing"
)

func TestFlattenNestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
	}{
		{"empty", nil},
		{"single", []string{"/docs"}},
		{"parent and child", []string{"/docs", "/docs/guides"}},
		{"two branches", []string{"/a", "/a/b", "/a/b/c", "/x"}},
		{"siblings", []string{"/docs", "/wiki", "/notes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(Nest(tt.paths))
			want := append([]string(nil), tt.paths...)
			sort.Strings(want)
			if len(got) == 0 && len(want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Flatten(Nest(%v)) = %v, want %v", tt.paths, got, want)
			}
		})
	}
}

func TestNestFlattenTreeRoundTrip(t *testing.T) {
	tree := ExpandedTree{
		"docs": {
			"guides": {},
			"api":    {"v2": {}},
		},
		"wiki": {},
	}

	got := Nest(Flatten(tree))
	if !reflect.DeepEqual(got, tree) {
		t.Errorf("Nest(Flatten(tree)) = %v, want %v", got, tree)
	}
}

func TestNestInsertsIntermediates(t *testing.T) {
	got := Flatten(Nest([]string{"/a/b/c"}))
	want := []string{"/a", "/a/b", "/a/b/c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected intermediate nodes %v, got %v", want, got)
	}
}

func TestNestSkipsRoot(t *testing.T) {
	tree := Nest([]string{"/", "/docs"})
	if _, ok := tree[""]; ok {
		t.Error("root produced an empty key")
	}
	if len(tree) != 1 {
		t.Errorf("expected only /docs in tree, got %v", tree)
	}
}

func TestDepth(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"/", 0},
		{"/docs", 1},
		{"/docs/guides", 2},
		{"/docs/guides/advanced", 3},
		{"docs", 1},
		{"/docs/", 1},
	}

	for _, tt := range tests {
		if got := Depth(tt.path); got != tt.want {
			t.Errorf("Depth(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestSortByDepth(t *testing.T) {
	paths := []string{"/docs/guides/advanced", "/wiki", "/docs/guides", "/", "/docs", "/a/b"}
	SortByDepth(paths)

	// No path may precede one of its ancestors.
	for i, p := range paths {
		for j := i + 1; j < len(paths); j++ {
			anc := paths[j]
			if anc == "/" && p != "/" {
				t.Errorf("root sorted after %q", p)
				continue
			}
			if len(p) > len(anc) && p[:len(anc)] == anc && p[len(anc)] == '/' {
				t.Errorf("ancestor %q sorted after descendant %q", anc, p)
			}
		}
	}

	want := []string{"/", "/docs", "/wiki", "/a/b", "/docs/guides", "/docs/guides/advanced"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("sorted order %v, want %v", paths, want)
	}
}
