// Package registry is the SQLite-backed list of known projects, mapping
// opaque project ids to project roots and their specs directories.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	path          TEXT NOT NULL UNIQUE,
	specs_dir     TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	color         TEXT NOT NULL DEFAULT '',
	favorite      INTEGER NOT NULL DEFAULT 0,
	added_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_accessed DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_projects_last_accessed ON projects(last_accessed);
`

// Registry wraps a sql.DB with project registry operations.
type Registry struct {
	conn   *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("registry: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: apply schema: %w", err)
	}
	return &Registry{conn: conn, logger: logger, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (r *Registry) Close() error {
	return r.conn.Close()
}

// Ping checks that the database is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	return r.conn.PingContext(ctx)
}
