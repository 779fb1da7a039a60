package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is the SQLite index of recorded steps. It answers queries about
// past runs; it is never read back to rebuild an engine.
type Store struct {
	db *sql.DB
}

// pragma is a connection setting applied on Open and checked by tests.
type pragma struct {
	name  string
	value string // as reported by "PRAGMA <name>"
	set   string
}

// pragmas configures the index for one writer with readers alongside.
var pragmas = []pragma{
	{name: "journal_mode", value: "wal", set: "WAL"},
	{name: "synchronous", value: "1", set: "NORMAL"},
	{name: "busy_timeout", value: "5000", set: "5000"},
	{name: "foreign_keys", value: "1", set: "ON"},
}

// migrations[i] upgrades user_version i to i+1. The embedded schema is
// version 0; append new steps here, never edit old ones.
var migrations = []func(*sql.Tx) error{
	indexTransactionsByReducer,
}

// Open creates or opens the index at path and brings its schema to the
// latest version. Pass MemoryPath for a throwaway index. Safe to call
// repeatedly on the same file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// One connection: SQLite has a single writer, and a :memory: database
	// lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := setup(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func setup(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.set)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return migrate(db)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SchemaVersion reports the index's user_version.
func (s *Store) SchemaVersion() (int, error) {
	return userVersion(s.db)
}

func userVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// migrate runs every pending migration, each in its own transaction
// together with its user_version bump.
func migrate(db *sql.DB) error {
	from, err := userVersion(db)
	if err != nil {
		return err
	}
	for v := from; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := migrations[v](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	return nil
}

// indexTransactionsByReducer serves ConflictCounts.
func indexTransactionsByReducer(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_transactions_reducer
		ON transactions(run_id, reducer_id)
	`)
	return err
}
