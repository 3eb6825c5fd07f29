package docs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/orcharddocs/orchard/internal/events"
	"github.com/orcharddocs/orchard/internal/testutil"
)

func TestReadFile(t *testing.T) {
	repo := testutil.InitRepo(t)
	testutil.WriteFile(t, repo, "docs/intro.md", "# Intro\n")

	svc, _ := newTestService()
	got, err := svc.ReadFile(context.Background(), repo, []string{"/docs"}, "/docs/intro.md")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Content != "# Intro\n" {
		t.Errorf("Content = %q", got.Content)
	}
	if got.Path != "/docs/intro.md" {
		t.Errorf("Path = %q", got.Path)
	}
	if got.Size != 8 {
		t.Errorf("Size = %d, want 8", got.Size)
	}
}

func TestReadFileMissing(t *testing.T) {
	repo := testutil.InitRepo(t)

	svc, _ := newTestService()
	_, err := svc.ReadFile(context.Background(), repo, []string{"/docs"}, "/docs/absent.md")
	if err == nil {
		t.Fatal("ReadFile succeeded on a missing file")
	}
	if got := ErrorCodeOf(err); got != CodeInvalidInput {
		t.Errorf("ErrorCodeOf = %s, want %s", got, CodeInvalidInput)
	}
}

func TestReadFileOutsideRoots(t *testing.T) {
	repo := testutil.InitRepo(t)
	testutil.WriteFile(t, repo, "secrets/key.md", "secret\n")

	svc, _ := newTestService()
	_, err := svc.ReadFile(context.Background(), repo, []string{"/docs"}, "/secrets/key.md")
	if !errors.Is(err, ErrPathOutsideRoots) {
		t.Fatalf("ReadFile error = %v, want ErrPathOutsideRoots", err)
	}
	if got := ErrorCodeOf(err); got != CodePathOutsideRoots {
		t.Errorf("ErrorCodeOf = %s, want %s", got, CodePathOutsideRoots)
	}
}

func TestReadFileTraversalDenied(t *testing.T) {
	repo := testutil.InitRepo(t)

	svc, _ := newTestService()
	for _, rel := range []string{"../../etc/passwd", "/docs/../../../etc/passwd"} {
		_, err := svc.ReadFile(context.Background(), repo, []string{"/docs"}, rel)
		if got := ErrorCodeOf(err); got != CodePathOutsideRoots {
			t.Errorf("ReadFile(%q) code = %s, want %s (err %v)", rel, got, CodePathOutsideRoots, err)
		}
	}
}

func TestReadFileBinary(t *testing.T) {
	repo := testutil.InitRepo(t)
	testutil.WriteFile(t, repo, "docs/blob.md", "PN\x00G binary payload")

	svc, _ := newTestService()
	_, err := svc.ReadFile(context.Background(), repo, []string{"/docs"}, "/docs/blob.md")
	if !errors.Is(err, ErrBinaryFile) {
		t.Fatalf("ReadFile error = %v, want ErrBinaryFile", err)
	}
}

func TestReadFileTooLarge(t *testing.T) {
	repo := testutil.InitRepo(t)
	testutil.WriteFile(t, repo, "docs/big.md", "0123456789")

	svc, cfg := newTestService()
	cfg.MaxFileSize = 8
	_, err := svc.ReadFile(context.Background(), repo, []string{"/docs"}, "/docs/big.md")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("ReadFile error = %v, want ErrFileTooLarge", err)
	}
	if got := ErrorCodeOf(err); got != CodeFileTooLarge {
		t.Errorf("ErrorCodeOf = %s, want %s", got, CodeFileTooLarge)
	}
}

func TestReadFileRejectsSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	repo := testutil.InitRepo(t)
	outside := testutil.ResolvePath(t.TempDir())
	target := filepath.Join(outside, "target.md")
	if err := os.WriteFile(target, []byte("outside\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(repo, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(repo, "docs", "link.md")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	svc, _ := newTestService()
	_, err := svc.ReadFile(context.Background(), repo, []string{"/docs"}, "/docs/link.md")
	if got := ErrorCodeOf(err); got != CodeInvalidInput {
		t.Fatalf("ErrorCodeOf = %s, want %s (err %v)", got, CodeInvalidInput, err)
	}
}

func TestWriteFileCreateAndModify(t *testing.T) {
	repo := testutil.InitRepo(t)

	svc, _ := newTestService()
	ch := svc.Events().Subscribe()
	defer svc.Events().Unsubscribe(ch)

	ctx := context.Background()
	roots := []string{"/docs"}

	res, err := svc.WriteFile(ctx, repo, roots, "/docs/new/page.md", []byte("# New\n"))
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !res.Created {
		t.Error("Created = false on first write")
	}
	raw, err := os.ReadFile(filepath.Join(repo, "docs", "new", "page.md"))
	if err != nil {
		t.Fatalf("written file missing: %v", err)
	}
	if string(raw) != "# New\n" {
		t.Errorf("content = %q", raw)
	}
	ev := waitEvent(t, ch)
	if ev.Type != events.EventCreate || ev.Path != "/docs/new/page.md" {
		t.Errorf("event = %+v, want create /docs/new/page.md", ev)
	}

	res, err = svc.WriteFile(ctx, repo, roots, "/docs/new/page.md", []byte("# Updated\n"))
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if res.Created {
		t.Error("Created = true on overwrite")
	}
	ev = waitEvent(t, ch)
	if ev.Type != events.EventModify {
		t.Errorf("event = %+v, want modify", ev)
	}
}

func TestWriteFileOutsideRoots(t *testing.T) {
	repo := testutil.InitRepo(t)

	svc, _ := newTestService()
	_, err := svc.WriteFile(context.Background(), repo, []string{"/docs"}, "/elsewhere/x.md", []byte("x\n"))
	if !errors.Is(err, ErrPathOutsideRoots) {
		t.Fatalf("WriteFile error = %v, want ErrPathOutsideRoots", err)
	}
	if _, statErr := os.Stat(filepath.Join(repo, "elsewhere")); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("denied write still touched the filesystem")
	}
}

func TestWriteFileBinary(t *testing.T) {
	repo := testutil.InitRepo(t)

	svc, _ := newTestService()
	_, err := svc.WriteFile(context.Background(), repo, []string{"/docs"}, "/docs/blob.md", []byte{0x89, 0x00, 0x50})
	if !errors.Is(err, ErrBinaryFile) {
		t.Fatalf("WriteFile error = %v, want ErrBinaryFile", err)
	}
}

func TestWriteFileTooLarge(t *testing.T) {
	repo := testutil.InitRepo(t)

	svc, cfg := newTestService()
	cfg.MaxFileSize = 8
	_, err := svc.WriteFile(context.Background(), repo, []string{"/docs"}, "/docs/big.md", []byte("0123456789"))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("WriteFile error = %v, want ErrFileTooLarge", err)
	}
}
