// Package gitcli runs the external git binary as a subprocess. Arguments are
// always passed as a vector, never through a shell, since paths, branch
// names, and commit messages are user-influenced. Stderr is captured for
// diagnostics and logging; callers translate failures into stable codes
// before anything reaches a user.
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/orcharddocs/orchard/internal/logging"
	"github.com/orcharddocs/orchard/internal/metrics"
)

// Runner executes git commands with a bounded lifetime per invocation.
type Runner struct {
	binary  string
	timeout time.Duration
}

// New returns a Runner using the given git binary and default per-command
// timeout. Empty values fall back to "git" and 30 seconds.
func New(binary string, timeout time.Duration) *Runner {
	if binary == "" {
		binary = "git"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{binary: binary, timeout: timeout}
}

// CommandError carries a failed git invocation. Stderr may contain local
// absolute paths or credential hints; it is log material, never caller
// output. Stdout is kept too: git commit reports "nothing to commit" there
// rather than on stderr.
type CommandError struct {
	Args     []string
	Stdout   string
	Stderr   string
	TimedOut bool
	err      error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.err != nil {
		msg = e.err.Error()
	}
	return fmt.Sprintf("git %s failed: %s", e.Args[0], msg)
}

func (e *CommandError) Unwrap() error {
	return e.err
}

// Run executes git with args in dir and returns stdout. The environment pins
// LC_ALL=C (the error classifier matches English text) and disables terminal
// credential prompts. A context deadline kill is reported via
// CommandError.TimedOut.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("git: no command specified")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"LC_ALL=C",
		"LANG=C",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	logging.Debug("git command completed",
		logging.String("command", args[0]),
		logging.String("dir", dir),
		logging.Duration("duration", duration),
		logging.Any("success", err == nil))
	metrics.RecordGitCommand(args[0], duration, err == nil)

	if err != nil {
		cmdErr := &CommandError{
			Args:     args,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
			err:      err,
		}
		logging.Debug("git command failed",
			logging.String("command", args[0]),
			logging.String("stderr", strings.TrimSpace(cmdErr.Stderr)))
		return nil, cmdErr
	}
	return stdout.Bytes(), nil
}

// RunTrimmed executes git and returns stdout with surrounding whitespace
// removed.
func (r *Runner) RunTrimmed(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := r.Run(ctx, dir, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// stderrContains reports whether err is a CommandError whose stderr contains
// the given fragment, case-insensitively.
func stderrContains(err error, fragment string) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	return strings.Contains(strings.ToLower(cmdErr.Stderr), strings.ToLower(fragment))
}
