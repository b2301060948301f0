// Package journal records fetch calls in a SQLite database.
//
// A Recorder installs a request/response interceptor pair on a client; every
// call that reaches the transport ends up as one Entry, whether it resolved,
// was rejected by status, or failed before a response arrived.
package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const (
	CurrentSchemaVersion = 1
)

// DB wraps the SQLite database
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the journal database at path
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// Recorder writes from many goroutines; serialize them on one connection.
	conn.SetMaxOpenConns(1)

	db := &DB{
		conn: conn,
		path: path,
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the file the journal was opened from.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err = db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for version := currentVersion + 1; version <= CurrentSchemaVersion; version++ {
		if err := db.runMigration(version); err != nil {
			return fmt.Errorf("migration %d failed: %w", version, err)
		}
	}

	return nil
}

func (db *DB) runMigration(version int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	switch version {
	case 1:
		if err := migration1(tx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown migration version: %d", version)
	}

	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// migration1 creates the entries table
func migration1(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		host TEXT NOT NULL,
		status_code INTEGER,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		error_kind TEXT,
		error_message TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX idx_entries_created ON entries(created_at);
	CREATE INDEX idx_entries_host ON entries(host);
	CREATE INDEX idx_entries_status ON entries(status_code);
	`)
	return err
}
