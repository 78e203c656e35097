// Package db provides the SQLite connection and schema for truenasctl.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// OpenMemory opens a private in-memory database, used by tests.
func OpenMemory() (*DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Reconcile ledger - append-only history of every reconciliation outcome
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reconcile_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			kind TEXT NOT NULL,
			resource_key TEXT NOT NULL,
			action TEXT NOT NULL,
			changed INTEGER NOT NULL DEFAULT 0,
			message TEXT,
			error TEXT,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_run ON reconcile_ledger(run_id);
		CREATE INDEX IF NOT EXISTS idx_ledger_ts ON reconcile_ledger(timestamp);
		CREATE INDEX IF NOT EXISTS idx_ledger_kind_key ON reconcile_ledger(kind, resource_key, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create reconcile_ledger table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
