package projectstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// storedTimeFormat is how both database backends serialize timestamps. The
// columns are plain TEXT so SQLite and PostgreSQL behave identically and no
// driver-specific time handling is involved. The fractional second is
// zero-padded to a fixed width; RFC3339Nano drops trailing zeros, which
// would break the lexicographic ordering ORDER BY updated_at relies on.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// schemaSQL bootstraps the projects table. It is valid in both dialects and
// runs on every open.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  repo_root TEXT NOT NULL DEFAULT '',
  branch TEXT NOT NULL DEFAULT '',
  remote_url TEXT NOT NULL DEFAULT '',
  root_paths TEXT NOT NULL DEFAULT '[]',
  created_at TEXT NOT NULL DEFAULT '',
  updated_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_projects_repo_root ON projects (repo_root);
CREATE INDEX IF NOT EXISTS idx_projects_user_id ON projects (user_id);
`

// dbStatements carries the per-dialect SQL. The two dialects differ only in
// placeholder syntax, but lib/pq insists on $n and SQLite's $n support is a
// driver detail not worth depending on, so each backend supplies its own.
type dbStatements struct {
	get           string
	getByRepoRoot string
	listAll       string
	listByUser    string
	upsert        string
	delete        string
}

// dbStore implements Store over database/sql. Both SQL backends share it;
// only the connection, the statements, and the metrics label differ.
type dbStore struct {
	db      *sql.DB
	backend string
	stmts   dbStatements
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var roots, created, updated string
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.RepoRoot, &p.Branch, &p.RemoteURL, &roots, &created, &updated); err != nil {
		return nil, err
	}
	if roots != "" {
		if err := json.Unmarshal([]byte(roots), &p.RootPaths); err != nil {
			return nil, fmt.Errorf("decode root paths for %q: %w", p.ID, err)
		}
	}
	var err error
	if p.CreatedAt, err = parseStoredTime(created); err != nil {
		return nil, fmt.Errorf("parse created_at for %q: %w", p.ID, err)
	}
	if p.UpdatedAt, err = parseStoredTime(updated); err != nil {
		return nil, fmt.Errorf("parse updated_at for %q: %w", p.ID, err)
	}
	return &p, nil
}

func parseStoredTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(storedTimeFormat, s)
}

func (s *dbStore) Get(ctx context.Context, id string) (p *Project, err error) {
	defer observeQuery(s.backend, "get", time.Now(), &err)
	if id == "" {
		return nil, ErrNotFound
	}
	p, err = scanProject(s.db.QueryRowContext(ctx, s.stmts.get, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return p, nil
}

func (s *dbStore) GetByRepoRoot(ctx context.Context, repoRoot string) (p *Project, err error) {
	defer observeQuery(s.backend, "get_by_repo_root", time.Now(), &err)
	p, err = scanProject(s.db.QueryRowContext(ctx, s.stmts.getByRepoRoot, repoRoot))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query project by repo root: %w", err)
	}
	return p, nil
}

func (s *dbStore) List(ctx context.Context, userID string) (out []*Project, err error) {
	defer observeQuery(s.backend, "list", time.Now(), &err)
	var rows *sql.Rows
	if userID == "" {
		rows, err = s.db.QueryContext(ctx, s.stmts.listAll)
	} else {
		rows, err = s.db.QueryContext(ctx, s.stmts.listByUser, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return out, nil
}

func (s *dbStore) Put(ctx context.Context, p *Project) (err error) {
	defer observeQuery(s.backend, "put", time.Now(), &err)
	if p == nil {
		return errors.New("nil project")
	}
	p.prepareForSave(time.Now().UTC())
	roots, err := json.Marshal(p.RootPaths)
	if err != nil {
		return fmt.Errorf("encode root paths: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.stmts.upsert,
		p.ID, p.UserID, p.Name, p.RepoRoot, p.Branch, p.RemoteURL, string(roots),
		p.CreatedAt.UTC().Format(storedTimeFormat), p.UpdatedAt.UTC().Format(storedTimeFormat))
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}

func (s *dbStore) Delete(ctx context.Context, id string) (err error) {
	defer observeQuery(s.backend, "delete", time.Now(), &err)
	if id == "" {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, s.stmts.delete, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *dbStore) Close() error { return s.db.Close() }
