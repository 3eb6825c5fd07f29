package projectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/orcharddocs/orchard/internal/logging"
	"github.com/orcharddocs/orchard/internal/metrics"
)

// fileStore keeps one JSON document per project under dir. Writes go through
// a temp file and rename, so concurrent readers never observe a partial
// document and no locking is needed.
type fileStore struct {
	dir string
}

// NewFile opens the file backend rooted at dir, creating it if needed.
func NewFile(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %q: %w", dir, err)
	}
	logStoreReady(backendFile, zap.String("dir", dir))
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// validID rejects anything that could escape the data directory. Stored IDs
// are UUIDs, so a name with separators or dot segments is simply not a
// record of ours.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

func (s *fileStore) Get(ctx context.Context, id string) (p *Project, err error) {
	defer observeQuery(backendFile, "get", time.Now(), &err)
	if !validID(id) {
		return nil, ErrNotFound
	}
	return s.readDocument(s.path(id))
}

func (s *fileStore) readDocument(path string) (*Project, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read project document: %w", err)
	}
	var p Project
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode project document %q: %w", filepath.Base(path), err)
	}
	return &p, nil
}

func (s *fileStore) GetByRepoRoot(ctx context.Context, repoRoot string) (p *Project, err error) {
	defer observeQuery(backendFile, "get_by_repo_root", time.Now(), &err)
	all, err := s.scan()
	if err != nil {
		return nil, err
	}
	var latest *Project
	for _, cand := range all {
		if cand.RepoRoot != repoRoot {
			continue
		}
		if latest == nil || cand.UpdatedAt.After(latest.UpdatedAt) {
			latest = cand
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *fileStore) List(ctx context.Context, userID string) (out []*Project, err error) {
	defer observeQuery(backendFile, "list", time.Now(), &err)
	all, err := s.scan()
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if userID == "" || p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// scan loads every document in the directory. Documents that fail to decode
// are logged and skipped so one damaged file cannot hide the rest.
func (s *fileStore) scan() ([]*Project, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan data dir: %w", err)
	}
	var out []*Project
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		p, err := s.readDocument(filepath.Join(s.dir, e.Name()))
		if err != nil {
			logging.Warn("skipping unreadable project document",
				zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fileStore) Put(ctx context.Context, p *Project) (err error) {
	defer observeQuery(backendFile, "put", time.Now(), &err)
	if p == nil {
		return errors.New("nil project")
	}
	p.prepareForSave(time.Now().UTC())
	if !validID(p.ID) {
		return fmt.Errorf("invalid project id %q", p.ID)
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	return writeDocument(s.path(p.ID), b)
}

// writeDocument lands the bytes atomically: temp file in the same directory,
// then rename over the destination.
func writeDocument(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".orchard-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %q: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp for %q: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %q: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %q: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *fileStore) Delete(ctx context.Context, id string) (err error) {
	defer observeQuery(backendFile, "delete", time.Now(), &err)
	if !validID(id) {
		return ErrNotFound
	}
	err = os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete project document: %w", err)
	}
	return nil
}

func (s *fileStore) Close() error { return nil }

// observeQuery feeds the store metrics from a deferred call site. A lookup
// that finds nothing still counts as a successful query.
func observeQuery(backend, op string, start time.Time, errp *error) {
	err := *errp
	metrics.RecordStoreQuery(backend, op, time.Since(start), err == nil || errors.Is(err, ErrNotFound))
}
