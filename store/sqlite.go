package store

import (
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arkilian/pulse/internal/faults"
)

// SQLite is a Store backed by a single-table SQLite database. It is the
// production implementation: durable across process restarts, which the
// once-per-lifetime log condition depends on.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the store database at path.
func OpenSQLite(path string) (*SQLite, error) {
	path = filepath.Clean(path)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}

	// WAL mode keeps single-row writes cheap for the frequent counter and
	// last-view updates.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to set journal mode: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		) WITHOUT ROWID
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to create kv table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// GetString returns the value for key and whether it was present.
func (s *SQLite) GetString(key string) (string, bool) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		log.Printf("pulse: %v", faults.Storage(faults.CodeReadFailed, key, err))
		return "", false
	}
	return value, true
}

// PutString stores value under key, overwriting any prior value.
func (s *SQLite) PutString(key, value string) {
	upsertSQL := `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.Exec(upsertSQL, key, value); err != nil {
		log.Printf("pulse: %v", faults.Storage(faults.CodeWriteFailed, key, err))
	}
}

// GetBool returns the boolean for key, or def when absent or malformed.
func (s *SQLite) GetBool(key string, def bool) bool {
	raw, ok := s.GetString(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// PutBool stores a boolean under key.
func (s *SQLite) PutBool(key string, value bool) {
	s.PutString(key, strconv.FormatBool(value))
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *SQLite) Remove(key string) {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		log.Printf("pulse: %v", faults.Storage(faults.CodeWriteFailed, key, err))
	}
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
