package projectstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

var postgresStatements = dbStatements{
	get:           `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`,
	getByRepoRoot: `SELECT ` + projectColumns + ` FROM projects WHERE repo_root = $1 ORDER BY updated_at DESC, id LIMIT 1`,
	listAll:       `SELECT ` + projectColumns + ` FROM projects ORDER BY updated_at DESC, id`,
	listByUser:    `SELECT ` + projectColumns + ` FROM projects WHERE user_id = $1 ORDER BY updated_at DESC, id`,
	upsert: `INSERT INTO projects (` + projectColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  user_id = EXCLUDED.user_id,
  name = EXCLUDED.name,
  repo_root = EXCLUDED.repo_root,
  branch = EXCLUDED.branch,
  remote_url = EXCLUDED.remote_url,
  root_paths = EXCLUDED.root_paths,
  created_at = EXCLUDED.created_at,
  updated_at = EXCLUDED.updated_at`,
	delete: `DELETE FROM projects WHERE id = $1`,
}

// NewPostgres connects to PostgreSQL with the given URL, verifies the
// connection, and bootstraps the schema. The URL is never logged; it can
// carry credentials.
func NewPostgres(databaseURL string) (Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	logStoreReady(backendPostgres)
	return &dbStore{db: db, backend: backendPostgres, stmts: postgresStatements}, nil
}
