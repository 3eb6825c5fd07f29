// Package testutil provides git repository fixtures for tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// SkipIfNoGit skips the test if git is not available.
func SkipIfNoGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH, skipping")
	}
}

// ResolvePath resolves symlinks so paths match git's own output
// (t.TempDir may live under a symlinked location, e.g. /var on macOS).
// Returns the original path if resolution fails.
func ResolvePath(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

// Git runs a git command in dir and returns its combined output,
// failing the test on error.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return string(out)
}

// InitRepo creates a temporary git repository with one initial commit and
// returns its path.
func InitRepo(t *testing.T) string {
	t.Helper()
	SkipIfNoGit(t)

	dir := ResolvePath(t.TempDir())
	Git(t, dir, "init", "-b", "main")
	Git(t, dir, "config", "user.email", "test@test.com")
	Git(t, dir, "config", "user.name", "Test")

	WriteFile(t, dir, "README.md", "# test\n")
	Git(t, dir, "add", ".")
	Git(t, dir, "commit", "-m", "initial")
	return dir
}

// WriteFile writes content to rel inside dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// CommitAll stages everything in dir and commits it.
func CommitAll(t *testing.T, dir, msg string) {
	t.Helper()
	Git(t, dir, "add", "-A")
	Git(t, dir, "commit", "-m", msg)
}

// InitBareWithClone creates a bare repository and a working clone wired to
// it as origin, with one pushed initial commit. Returns (bare, clone).
func InitBareWithClone(t *testing.T) (string, string) {
	t.Helper()
	SkipIfNoGit(t)

	base := ResolvePath(t.TempDir())
	bare := filepath.Join(base, "origin.git")
	clone := filepath.Join(base, "clone")

	if err := os.MkdirAll(bare, 0o755); err != nil {
		t.Fatal(err)
	}
	Git(t, bare, "init", "--bare", "-b", "main")

	Git(t, base, "clone", bare, clone)
	Git(t, clone, "config", "user.email", "test@test.com")
	Git(t, clone, "config", "user.name", "Test")

	WriteFile(t, clone, "README.md", "# test\n")
	Git(t, clone, "add", ".")
	Git(t, clone, "commit", "-m", "initial")
	Git(t, clone, "push", "-u", "origin", "main")
	return bare, clone
}
