package gitsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/orcharddocs/orchard/internal/gitcli"
	"github.com/orcharddocs/orchard/internal/testutil"
)

func newTestController() *Controller {
	return New(gitcli.New("", 0))
}

// secondClone makes another working clone of bare, for divergence
// scenarios.
func secondClone(t *testing.T, bare string) string {
	t.Helper()
	base := testutil.ResolvePath(t.TempDir())
	clone := filepath.Join(base, "clone2")
	testutil.Git(t, base, "clone", bare, clone)
	testutil.Git(t, clone, "config", "user.email", "test@test.com")
	testutil.Git(t, clone, "config", "user.name", "Test")
	return clone
}

func TestLogReturnsNewestFirst(t *testing.T) {
	repo := testutil.InitRepo(t)
	testutil.WriteFile(t, repo, "a.md", "a\n")
	testutil.CommitAll(t, repo, "add a")
	testutil.WriteFile(t, repo, "b.md", "b\n")
	testutil.CommitAll(t, repo, "add b")

	commits, err := newTestController().Log(context.Background(), repo, 10, "")
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(commits) != 3 {
		t.Fatalf("len(commits) = %d, want 3", len(commits))
	}
	wantSubjects := []string{"add b", "add a", "initial"}
	for i, want := range wantSubjects {
		if commits[i].Subject != want {
			t.Errorf("commits[%d].Subject = %q, want %q", i, commits[i].Subject, want)
		}
	}
	head := commits[0]
	if len(head.Hash) != 40 {
		t.Errorf("Hash = %q, want 40 hex chars", head.Hash)
	}
	if head.ShortHash == "" || head.Hash[:len(head.ShortHash)] != head.ShortHash {
		t.Errorf("ShortHash %q is not a prefix of %q", head.ShortHash, head.Hash)
	}
	if head.Author != "Test" || head.Email != "test@test.com" {
		t.Errorf("Author/Email = %q/%q", head.Author, head.Email)
	}
	if head.Date.IsZero() {
		t.Error("Date is zero")
	}
}

func TestLogLimit(t *testing.T) {
	repo := testutil.InitRepo(t)
	testutil.WriteFile(t, repo, "a.md", "a\n")
	testutil.CommitAll(t, repo, "add a")

	commits, err := newTestController().Log(context.Background(), repo, 1, "")
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(commits) != 1 {
		t.Fatalf("len(commits) = %d, want 1", len(commits))
	}
}

func TestLogPathFilter(t *testing.T) {
	repo := testutil.InitRepo(t)
	testutil.WriteFile(t, repo, "a.md", "a\n")
	testutil.CommitAll(t, repo, "add a")
	testutil.WriteFile(t, repo, "b.md", "b\n")
	testutil.CommitAll(t, repo, "add b")

	commits, err := newTestController().Log(context.Background(), repo, 10, "/a.md")
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(commits) != 1 || commits[0].Subject != "add a" {
		t.Fatalf("commits = %v, want only \"add a\"", commits)
	}
}

func TestLogEmptyRepository(t *testing.T) {
	testutil.SkipIfNoGit(t)
	dir := testutil.ResolvePath(t.TempDir())
	testutil.Git(t, dir, "init", "-b", "main")

	commits, err := newTestController().Log(context.Background(), dir, 10, "")
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(commits) != 0 {
		t.Fatalf("len(commits) = %d, want 0", len(commits))
	}
}

func TestParseLogSkipsMalformedLines(t *testing.T) {
	out := "aaaa\x1faa\x1fAlice\x1falice@example.com\x1f2026-01-15T10:30:00+01:00\x1fadd intro\n" +
		"garbage line without separators\n" +
		"bbbb\x1fbb\x1fBob\x1fbob@example.com\x1fnot-a-date\x1fbroken date\n"

	commits := parseLog(out)
	if len(commits) != 1 {
		t.Fatalf("len(commits) = %d, want 1", len(commits))
	}
	if commits[0].Author != "Alice" || commits[0].Subject != "add intro" {
		t.Errorf("commit = %+v", commits[0])
	}
}

func TestCommit(t *testing.T) {
	repo := testutil.InitRepo(t)
	testutil.WriteFile(t, repo, "docs/intro.md", "# intro\n")

	c := newTestController()
	ctx := context.Background()
	commit, err := c.Commit(ctx, repo, "add intro")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if commit.Subject != "add intro" {
		t.Errorf("Subject = %q, want \"add intro\"", commit.Subject)
	}

	st, err := c.Status(ctx, repo)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Clean {
		t.Errorf("working tree not clean after commit: %+v", st)
	}
}

func TestCommitSelectedPaths(t *testing.T) {
	repo := testutil.InitRepo(t)
	testutil.WriteFile(t, repo, "a.md", "a\n")
	testutil.WriteFile(t, repo, "b.md", "b\n")

	c := newTestController()
	ctx := context.Background()
	commit, err := c.Commit(ctx, repo, "add a", "/a.md")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if commit.Subject != "add a" {
		t.Errorf("Subject = %q, want \"add a\"", commit.Subject)
	}

	st, err := c.Status(ctx, repo)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !hasString(st.Untracked, "/b.md") {
		t.Errorf("Untracked = %v, want /b.md left behind", st.Untracked)
	}
}

func TestCommitNothingToCommit(t *testing.T) {
	repo := testutil.InitRepo(t)

	_, err := newTestController().Commit(context.Background(), repo, "noop")
	var gitErr *GitError
	if !errors.As(err, &gitErr) || gitErr.Code != CodeNothingToCommit {
		t.Fatalf("Commit error = %v, want code %s", err, CodeNothingToCommit)
	}
}

func TestCommitEmptyMessage(t *testing.T) {
	repo := testutil.InitRepo(t)

	_, err := newTestController().Commit(context.Background(), repo, "   ")
	if err == nil {
		t.Fatal("Commit with empty message succeeded")
	}
	var gitErr *GitError
	if errors.As(err, &gitErr) {
		t.Fatalf("empty message classified as git failure: %v", err)
	}
}

func TestPushPull(t *testing.T) {
	bare, cloneA := testutil.InitBareWithClone(t)
	cloneB := secondClone(t, bare)

	testutil.WriteFile(t, cloneA, "docs/shared.md", "# shared\n")
	testutil.CommitAll(t, cloneA, "add shared")

	c := newTestController()
	ctx := context.Background()
	if err := c.Push(ctx, cloneA); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := c.Pull(ctx, cloneB); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cloneB, "docs", "shared.md")); err != nil {
		t.Fatalf("pulled file missing: %v", err)
	}
}

func TestPushRejected(t *testing.T) {
	bare, cloneA := testutil.InitBareWithClone(t)
	cloneB := secondClone(t, bare)

	testutil.WriteFile(t, cloneB, "x.md", "x\n")
	testutil.CommitAll(t, cloneB, "from B")
	testutil.Git(t, cloneB, "push", "origin", "main")

	testutil.WriteFile(t, cloneA, "y.md", "y\n")
	testutil.CommitAll(t, cloneA, "from A")

	err := newTestController().Push(context.Background(), cloneA)
	var gitErr *GitError
	if !errors.As(err, &gitErr) || gitErr.Code != CodePushRejected {
		t.Fatalf("Push error = %v, want code %s", err, CodePushRejected)
	}
}

func TestPullMergeConflict(t *testing.T) {
	bare, cloneA := testutil.InitBareWithClone(t)
	cloneB := secondClone(t, bare)

	// Both sides add the same file with different content.
	testutil.WriteFile(t, cloneB, "docs/topic.md", "# topic from B\n")
	testutil.CommitAll(t, cloneB, "edit topic B")
	testutil.Git(t, cloneB, "push", "origin", "main")

	testutil.WriteFile(t, cloneA, "docs/topic.md", "# topic from A\n")
	testutil.CommitAll(t, cloneA, "edit topic A")

	err := newTestController().Pull(context.Background(), cloneA)
	var gitErr *GitError
	if !errors.As(err, &gitErr) || gitErr.Code != CodeMergeConflict {
		t.Fatalf("Pull error = %v, want code %s", err, CodeMergeConflict)
	}
}
