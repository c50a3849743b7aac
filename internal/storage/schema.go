package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT    NOT NULL,
	body        TEXT    NOT NULL DEFAULT '',
	favorite    BOOLEAN NOT NULL DEFAULT 0,
	tags        TEXT    NOT NULL DEFAULT '[]',
	created_at  INTEGER NOT NULL,
	modified_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at);
`

// SQLite implements Store with one row per entry. Identifiers are row ids.
type SQLite struct {
	conn   *sql.DB
	path   string // absolute path to the database file
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database file and applies the schema.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), dirPerms); err != nil {
		return nil, fmt.Errorf("storage: create db dir: %w", err)
	}
	conn, err := sql.Open("sqlite3", abs+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn, path: abs, logger: logger, now: time.Now}, nil
}

// Root returns the directory holding the database and its WAL.
func (s *SQLite) Root() string { return filepath.Dir(s.path) }

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
