package docs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/orcharddocs/orchard/internal/events"
	"github.com/orcharddocs/orchard/internal/logging"
	"github.com/orcharddocs/orchard/internal/metrics"
	"github.com/orcharddocs/orchard/internal/sandbox"
)

// FileContent is a read document.
type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// WriteResult reports a completed write.
type WriteResult struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Created bool   `json:"created"`
}

// binarySniffLen is how much of a file the NUL-byte heuristic inspects.
const binarySniffLen = 8 * 1024

// resolveWithinRoots is the chokepoint for file access: the path must fall
// inside a configured root path and must resolve inside the repository.
// All reads and writes pass through here; nothing else builds filesystem
// paths from caller input.
func (s *Service) resolveWithinRoots(repoRoot string, roots []string, rel string) (abs, norm string, err error) {
	norm = sandbox.Normalize(rel)
	if !sandbox.IsWithin(norm, roots) {
		metrics.RecordContainmentDenial()
		return "", "", fmt.Errorf("access %q: %w", norm, ErrPathOutsideRoots)
	}
	abs, err = sandbox.ResolveAndContain(repoRoot, norm)
	if err != nil {
		metrics.RecordContainmentDenial()
		return "", "", err
	}
	return abs, norm, nil
}

// ReadFile returns the UTF-8 text of a document inside the configured
// roots. The size cap is enforced from metadata before any bytes are read.
func (s *Service) ReadFile(ctx context.Context, repoRoot string, roots []string, rel string) (*FileContent, error) {
	abs, norm, err := s.resolveWithinRoots(repoRoot, roots, rel)
	if err != nil {
		metrics.RecordFileRead(0, false)
		return nil, err
	}

	info, err := os.Lstat(abs)
	if err != nil {
		metrics.RecordFileRead(0, false)
		return nil, err
	}
	if !info.Mode().IsRegular() {
		// Symlinks included: following one could leave the repository.
		metrics.RecordFileRead(0, false)
		return nil, fmt.Errorf("read %q: not a regular file: %w", norm, ErrInvalidInput)
	}
	if info.Size() > s.cfg.MaxFileSize {
		metrics.RecordFileRead(0, false)
		return nil, fmt.Errorf("read %q: %d bytes: %w", norm, info.Size(), ErrFileTooLarge)
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		metrics.RecordFileRead(0, false)
		return nil, err
	}
	if isBinary(raw) {
		metrics.RecordFileRead(0, false)
		return nil, fmt.Errorf("read %q: %w", norm, ErrBinaryFile)
	}

	metrics.RecordFileRead(int64(len(raw)), true)
	return &FileContent{Path: norm, Content: string(raw), Size: int64(len(raw))}, nil
}

// WriteFile stores content through the same boundary checks as ReadFile,
// creating parent directories as needed. The bytes land in a temp file
// that is renamed over the target, so readers never observe a half-written
// document.
func (s *Service) WriteFile(ctx context.Context, repoRoot string, roots []string, rel string, content []byte) (*WriteResult, error) {
	abs, norm, err := s.resolveWithinRoots(repoRoot, roots, rel)
	if err != nil {
		metrics.RecordFileWrite(0, false)
		return nil, err
	}
	if int64(len(content)) > s.cfg.MaxFileSize {
		metrics.RecordFileWrite(0, false)
		return nil, fmt.Errorf("write %q: %d bytes: %w", norm, len(content), ErrFileTooLarge)
	}
	if isBinary(content) {
		metrics.RecordFileWrite(0, false)
		return nil, fmt.Errorf("write %q: %w", norm, ErrBinaryFile)
	}

	created := false
	info, err := os.Lstat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		created = true
	case err != nil:
		metrics.RecordFileWrite(0, false)
		return nil, err
	case !info.Mode().IsRegular():
		metrics.RecordFileWrite(0, false)
		return nil, fmt.Errorf("write %q: not a regular file: %w", norm, ErrInvalidInput)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		metrics.RecordFileWrite(0, false)
		return nil, fmt.Errorf("create dirs for %q: %w", norm, err)
	}

	tmp, err := os.CreateTemp(dir, ".orchard-*.tmp")
	if err != nil {
		metrics.RecordFileWrite(0, false)
		return nil, fmt.Errorf("create temp for %q: %w", norm, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		metrics.RecordFileWrite(0, false)
		return nil, fmt.Errorf("write %q: %w", norm, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		metrics.RecordFileWrite(0, false)
		return nil, fmt.Errorf("close temp for %q: %w", norm, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		os.Remove(tmpName)
		metrics.RecordFileWrite(0, false)
		return nil, fmt.Errorf("rename temp to %q: %w", norm, err)
	}

	metrics.RecordFileWrite(int64(len(content)), true)
	evType := events.EventModify
	if created {
		evType = events.EventCreate
	}
	s.broadcaster.Publish(events.Event{
		Type:     evType,
		RepoRoot: repoRoot,
		Path:     norm,
		Size:     int64(len(content)),
	})
	logging.Debug("document written",
		logging.String("path", norm),
		logging.Int("bytes", len(content)),
		logging.Any("created", created))
	return &WriteResult{Path: norm, Size: int64(len(content)), Created: created}, nil
}

// isBinary sniffs for a NUL byte in the first 8 KB, the heuristic git
// itself uses to separate text from binary.
func isBinary(b []byte) bool {
	n := len(b)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(b[:n], 0) >= 0
}
