// Package projectstore persists project records, the externally-owned state
// that binds a repository root, a branch, and a set of document root paths
// to a project ID. The core document layer treats these fields as inputs and
// proposed mutations; this package is the collaborator that actually owns
// them.
//
// Three backends share one Store interface: a JSON-document-per-project
// layout under a data directory, SQLite, and PostgreSQL. New selects a
// backend from the configured database URL and places a small record cache
// in front of the database backends.
package projectstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orcharddocs/orchard/internal/config"
	"github.com/orcharddocs/orchard/internal/logging"
)

// ErrNotFound reports that no project record matches the lookup.
var ErrNotFound = errors.New("project not found")

// Backend labels, used in log fields and store metrics.
const (
	backendFile     = "file"
	backendSQLite   = "sqlite"
	backendPostgres = "postgres"
)

// Project is one stored record. RepoRoot, Branch, and RootPaths are the
// fields the document layer reads and proposes updates to; everything else
// is bookkeeping for the store's own lookups.
type Project struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Name      string    `json:"name"`
	RepoRoot  string    `json:"repoRoot"`
	Branch    string    `json:"branch,omitempty"`
	RemoteURL string    `json:"remoteUrl,omitempty"`
	RootPaths []string  `json:"rootPaths"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// clone returns a copy that shares no memory with p.
func (p *Project) clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.RootPaths = append([]string(nil), p.RootPaths...)
	return &out
}

// prepareForSave fills in the fields the store owns. A missing ID gets a
// fresh UUID, a zero creation time is stamped, and the update time always
// moves to now.
func (p *Project) prepareForSave(now time.Time) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// Store is the project-record persistence contract. Get and GetByRepoRoot
// return ErrNotFound when nothing matches. When several records reference
// the same repository root, GetByRepoRoot returns the most recently updated
// one. List with an empty userID returns every record, newest first. Put
// stores the record as given after prepareForSave runs; re-read to observe
// what a concurrent writer stored.
type Store interface {
	Get(ctx context.Context, id string) (*Project, error)
	GetByRepoRoot(ctx context.Context, repoRoot string) (*Project, error)
	List(ctx context.Context, userID string) ([]*Project, error)
	Put(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// New selects a backend from cfg.DatabaseURL: postgres:// and postgresql://
// open PostgreSQL, sqlite:// opens SQLite at the path after the scheme, and
// an empty URL falls back to JSON documents under the data directory. The
// database backends are wrapped with a record cache; the file backend reads
// cheaply enough to go uncached.
func New(cfg *config.Config) (Store, error) {
	switch url := strings.TrimSpace(cfg.DatabaseURL); {
	case url == "":
		return NewFile(filepath.Join(cfg.DataDir, "projects"))
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		inner, err := NewPostgres(url)
		if err != nil {
			return nil, err
		}
		return withCache(inner), nil
	case strings.HasPrefix(url, "sqlite://"):
		inner, err := NewSQLite(strings.TrimPrefix(url, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return withCache(inner), nil
	default:
		// The URL may embed credentials, so the error names the scheme only.
		scheme, _, _ := strings.Cut(url, "://")
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	}
}

func logStoreReady(backend string, fields ...zap.Field) {
	logging.Info("project store ready", append([]zap.Field{zap.String("backend", backend)}, fields...)...)
}
