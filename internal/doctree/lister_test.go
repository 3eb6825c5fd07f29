package doctree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirListerFiltersToDocumentExtensions(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "docs/intro.md", "# intro")
	writeTestFile(t, root, "docs/notes.txt", "notes")
	writeTestFile(t, root, "docs/main.go", "package main")
	if err := os.MkdirAll(filepath.Join(root, "docs", "guides"), 0o755); err != nil {
		t.Fatal(err)
	}

	l := NewDirLister(root, []string{".md", ".txt"}, 1000, nil)
	entries, err := l.List("/docs")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	byPath := map[string]EntryType{}
	for _, e := range entries {
		byPath[e.Path] = e.Type
	}
	if byPath["/docs/guides"] != EntryDirectory {
		t.Errorf("expected /docs/guides directory, got %v", entries)
	}
	if byPath["/docs/intro.md"] != EntryFile {
		t.Errorf("expected /docs/intro.md file, got %v", entries)
	}
	if byPath["/docs/notes.txt"] != EntryFile {
		t.Errorf("expected /docs/notes.txt file, got %v", entries)
	}
	if _, ok := byPath["/docs/main.go"]; ok {
		t.Error("non-document file listed")
	}
}

func TestDirListerSkipsGitDirectory(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, ".git/config", "[core]")
	writeTestFile(t, root, "README.md", "# readme")

	l := NewDirLister(root, []string{".md"}, 1000, nil)
	entries, err := l.List("/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, e := range entries {
		if e.Name == ".git" {
			t.Error(".git listed")
		}
	}
}

func TestDirListerHonorsIgnoreFunc(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "node_modules/pkg/index.js", "x")
	writeTestFile(t, root, "docs/a.md", "# a")

	ignored := func(rel string) bool { return rel == "/node_modules" }
	l := NewDirLister(root, []string{".md"}, 1000, ignored)
	entries, err := l.List("/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, e := range entries {
		if e.Path == "/node_modules" {
			t.Error("ignored directory listed")
		}
	}
}

func TestDirListerEntryCeiling(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 6; i++ {
		writeTestFile(t, root, fmt.Sprintf("many/f%d.md", i), "x")
	}

	l := NewDirLister(root, []string{".md"}, 5, nil)
	_, err := l.List("/many")
	if !errors.Is(err, ErrTooManyFiles) {
		t.Fatalf("expected ErrTooManyFiles, got %v", err)
	}
}

func TestDirListerMissingDirectory(t *testing.T) {
	l := NewDirLister(t.TempDir(), []string{".md"}, 1000, nil)
	_, err := l.List("/gone")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestDirListerPathThatBecameAFile(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "docs", "now a file")

	l := NewDirLister(root, []string{".md"}, 1000, nil)
	_, err := l.List("/docs")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist for non-directory, got %v", err)
	}
}

func TestDirListerSkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	writeTestFile(t, root, "docs/real.md", "# real")
	if err := os.Symlink("/etc/passwd", filepath.Join(root, "docs", "link.md")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	l := NewDirLister(root, []string{".md"}, 1000, nil)
	entries, err := l.List("/docs")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, e := range entries {
		if e.Name == "link.md" {
			t.Error("symlink listed")
		}
	}
}
