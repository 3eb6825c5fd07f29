package projectstore

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const projectColumns = "id, user_id, name, repo_root, branch, remote_url, root_paths, created_at, updated_at"

var sqliteStatements = dbStatements{
	get:           `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`,
	getByRepoRoot: `SELECT ` + projectColumns + ` FROM projects WHERE repo_root = ? ORDER BY updated_at DESC, id LIMIT 1`,
	listAll:       `SELECT ` + projectColumns + ` FROM projects ORDER BY updated_at DESC, id`,
	listByUser:    `SELECT ` + projectColumns + ` FROM projects WHERE user_id = ? ORDER BY updated_at DESC, id`,
	upsert: `INSERT INTO projects (` + projectColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  user_id = EXCLUDED.user_id,
  name = EXCLUDED.name,
  repo_root = EXCLUDED.repo_root,
  branch = EXCLUDED.branch,
  remote_url = EXCLUDED.remote_url,
  root_paths = EXCLUDED.root_paths,
  created_at = EXCLUDED.created_at,
  updated_at = EXCLUDED.updated_at`,
	delete: `DELETE FROM projects WHERE id = ?`,
}

// NewSQLite opens or creates a SQLite database at path and bootstraps the
// schema.
func NewSQLite(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers itself; a single connection avoids busy
	// errors under concurrent use.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	logStoreReady(backendSQLite, zap.String("path", path))
	return &dbStore{db: db, backend: backendSQLite, stmts: sqliteStatements}, nil
}
