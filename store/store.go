// Package store keeps a SQLite journal of emitted files so repeated runs
// can tell which outputs actually changed. Generation semantics never
// depend on it; it only informs what gets rewritten and reported.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the output journal. Safe for use from one generation run at a
// time; the mutex serializes the CLI's read-modify-write against any
// concurrent inspection queries.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the journal database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS outputs (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		schema_digest TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating outputs table: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		schema_digest TEXT NOT NULL,
		precision TEXT NOT NULL,
		file_count INTEGER NOT NULL,
		ran_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Sync records the given rendered files under schemaDigest and returns the
// names whose content hash differs from the previous run (including files
// never seen before). Unchanged files keep their prior timestamp.
func (s *Store) Sync(schemaDigest string, files map[string][]byte) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	var changed []string
	for name, data := range files {
		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])

		var prev string
		err := tx.QueryRow("SELECT hash FROM outputs WHERE path = ?", name).Scan(&prev)
		switch {
		case err == sql.ErrNoRows:
			// first sighting
		case err != nil:
			return nil, fmt.Errorf("query %s: %w", name, err)
		case prev == hash:
			continue
		}
		changed = append(changed, name)

		if _, err := tx.Exec(`INSERT INTO outputs (path, hash, schema_digest, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET hash = ?, schema_digest = ?, updated_at = ?`,
			name, hash, schemaDigest, now, hash, schemaDigest, now); err != nil {
			return nil, fmt.Errorf("upsert %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return changed, nil
}

// RecordRun appends a row to the run journal.
func (s *Store) RecordRun(schemaDigest, precision string, fileCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO runs (schema_digest, precision, file_count, ran_at)
		VALUES (?, ?, ?, ?)`,
		schemaDigest, precision, fileCount, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// LastDigest returns the schema digest of the most recent run, or "" when
// the journal is empty.
func (s *Store) LastDigest() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var digest string
	err := s.db.QueryRow("SELECT schema_digest FROM runs ORDER BY id DESC LIMIT 1").Scan(&digest)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying last run: %w", err)
	}
	return digest, nil
}
