package gitsync

import (
	"context"
	"errors"
	"strings"

	"github.com/orcharddocs/orchard/internal/gitcli"
	"github.com/orcharddocs/orchard/internal/logging"
)

// Code identifies a classified git failure.
type Code string

const (
	CodeAuthFailed      Code = "AUTH_FAILED"
	CodeNetworkError    Code = "NETWORK_ERROR"
	CodePushRejected    Code = "PUSH_REJECTED"
	CodeMergeConflict   Code = "MERGE_CONFLICT"
	CodeNothingToCommit Code = "NOTHING_TO_COMMIT"
	CodeTimeout         Code = "TIMEOUT"
	CodeGitError        Code = "GIT_ERROR"
)

// GitError is a classified git failure: a stable code plus a user-safe
// message. Raw subprocess output is logged at the point of failure and
// never carried here, since it can contain absolute local paths or
// credential hints.
type GitError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	err     error
}

func (e *GitError) Error() string { return e.Message }

func (e *GitError) Unwrap() error { return e.err }

var messages = map[Code]string{
	CodeAuthFailed:      "authentication failed, check your credentials and repository access",
	CodeNetworkError:    "could not reach the remote repository",
	CodePushRejected:    "push rejected, the remote has newer commits; pull first",
	CodeMergeConflict:   "merge conflict, resolve the conflicting files before continuing",
	CodeNothingToCommit: "nothing to commit",
	CodeTimeout:         "git operation timed out",
	CodeGitError:        "git operation failed",
}

// matchers is the ordered classification table. Matching is first-hit, so
// the more specific failure families sit above the broader ones.
var matchers = []struct {
	code      Code
	fragments []string
}{
	{CodeAuthFailed, []string{
		"authentication failed",
		"permission denied",
		"could not read username",
		"could not read password",
		"invalid username or password",
		"returned error: 403",
	}},
	{CodeNetworkError, []string{
		"could not resolve host",
		"unable to access",
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"connection timed out",
	}},
	{CodePushRejected, []string{
		"non-fast-forward",
		"fetch first",
		"[rejected]",
		"failed to push some refs",
		"updates were rejected",
	}},
	{CodeMergeConflict, []string{
		"merge conflict",
		"automatic merge failed",
		"needs merge",
		"unmerged files",
		"would be overwritten by merge",
		"fix conflicts",
	}},
	{CodeNothingToCommit, []string{
		"nothing to commit",
		"no changes added to commit",
		"nothing added to commit",
	}},
	{CodeTimeout, []string{
		"timed out",
		"timeout",
	}},
}

// ParseGitError folds any git failure into a GitError. It returns nil for a
// nil err. Classification is ordered, case-insensitive substring matching
// over the subprocess output: a best-effort mapping of opaque tool text to
// an actionable code, not a parse of git's output grammar.
func ParseGitError(err error) *GitError {
	if err == nil {
		return nil
	}
	var gitErr *GitError
	if errors.As(err, &gitErr) {
		return gitErr
	}

	var cmdErr *gitcli.CommandError
	if errors.As(err, &cmdErr) {
		code := CodeTimeout
		if !cmdErr.TimedOut {
			code = classifyText(cmdErr.Stderr + "\n" + cmdErr.Stdout)
		}
		logging.Debug("git failure classified",
			logging.String("code", string(code)),
			logging.String("stderr", strings.TrimSpace(cmdErr.Stderr)))
		return &GitError{Code: code, Message: messages[code], err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GitError{Code: CodeTimeout, Message: messages[CodeTimeout], err: err}
	}
	return &GitError{Code: CodeGitError, Message: messages[CodeGitError], err: err}
}

func classifyText(text string) Code {
	text = strings.ToLower(text)
	for _, m := range matchers {
		for _, frag := range m.fragments {
			if strings.Contains(text, frag) {
				return m.code
			}
		}
	}
	return CodeGitError
}
