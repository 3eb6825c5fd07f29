package docs

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/orcharddocs/orchard/internal/doctree"
	"github.com/orcharddocs/orchard/internal/gitcli"
	"github.com/orcharddocs/orchard/internal/gitsync"
	"github.com/orcharddocs/orchard/internal/sandbox"
	"github.com/orcharddocs/orchard/internal/workspace"
)

// ErrorCode is the stable, transport-facing identifier for a failure. The
// routing layer maps codes to HTTP statuses; the codes themselves never
// change meaning.
type ErrorCode string

const (
	CodeNotGitRepo           ErrorCode = "NOT_GIT_REPO"
	CodeDifferentRepo        ErrorCode = "DIFFERENT_REPO"
	CodeDuplicatePath        ErrorCode = "DUPLICATE_PATH"
	CodeRootNotFound         ErrorCode = "ROOT_NOT_FOUND"
	CodePathOutsideRoots     ErrorCode = "PATH_OUTSIDE_ROOTS"
	CodeBinaryFile           ErrorCode = "BINARY_FILE"
	CodeFileTooLarge         ErrorCode = "FILE_TOO_LARGE"
	CodeTooManyFiles         ErrorCode = "TOO_MANY_FILES"
	CodeTooManyExpandedPaths ErrorCode = "TOO_MANY_EXPANDED_PATHS"
	CodeAuthFailed           ErrorCode = "AUTH_FAILED"
	CodeNetworkError         ErrorCode = "NETWORK_ERROR"
	CodePushRejected         ErrorCode = "PUSH_REJECTED"
	CodeMergeConflict        ErrorCode = "MERGE_CONFLICT"
	CodeNothingToCommit      ErrorCode = "NOTHING_TO_COMMIT"
	CodeTimeout              ErrorCode = "TIMEOUT"
	CodeGitError             ErrorCode = "GIT_ERROR"
	CodeInvalidInput         ErrorCode = "INVALID_INPUT"
	CodeInternal             ErrorCode = "INTERNAL"
)

var (
	// ErrPathOutsideRoots reports a file access outside every configured
	// root path.
	ErrPathOutsideRoots = errors.New("path is outside the configured root paths")
	// ErrBinaryFile reports a file that is not text.
	ErrBinaryFile = errors.New("file is binary")
	// ErrFileTooLarge reports a file or payload over the size cap.
	ErrFileTooLarge = errors.New("file exceeds the size limit")
	// ErrInvalidInput reports malformed caller input, rejected before any
	// subprocess or filesystem work happens on its behalf.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorCodeOf folds any error returned by the service into its stable
// code. Unrecognized errors map to INTERNAL rather than leaking detail.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, workspace.ErrNotGitRepo):
		return CodeNotGitRepo
	case errors.Is(err, workspace.ErrDifferentRepo):
		return CodeDifferentRepo
	case errors.Is(err, workspace.ErrDuplicatePath):
		return CodeDuplicatePath
	case errors.Is(err, workspace.ErrRootNotFound):
		return CodeRootNotFound
	case errors.Is(err, ErrPathOutsideRoots), errors.Is(err, sandbox.ErrTraversal):
		return CodePathOutsideRoots
	case errors.Is(err, ErrBinaryFile):
		return CodeBinaryFile
	case errors.Is(err, ErrFileTooLarge):
		return CodeFileTooLarge
	case errors.Is(err, doctree.ErrTooManyFiles):
		return CodeTooManyFiles
	case errors.Is(err, doctree.ErrTooManyExpandedPaths):
		return CodeTooManyExpandedPaths
	case errors.Is(err, ErrInvalidInput), errors.Is(err, fs.ErrNotExist):
		return CodeInvalidInput
	}

	var gitErr *gitsync.GitError
	if errors.As(err, &gitErr) {
		return ErrorCode(gitErr.Code)
	}
	var cmdErr *gitcli.CommandError
	if errors.As(err, &cmdErr) {
		if strings.Contains(strings.ToLower(cmdErr.Stderr), "not a git repository") {
			return CodeNotGitRepo
		}
		return ErrorCode(gitsync.ParseGitError(err).Code)
	}
	return CodeInternal
}
