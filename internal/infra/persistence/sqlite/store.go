// Package sqlite persists local snapshots in a SQLite database file.
package sqlite

import (
	"clinicdesk/pkg/domain"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "clinicdesk.db"

// Slot is a domain.SnapshotSlot backed by a single SQLite table of
// key/payload pairs. A positive MaxBytes bounds each payload.
type Slot struct {
	MaxBytes int

	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ domain.SnapshotSlot = (*Slot)(nil)

// NewSlot opens (creating when needed) the database at path.
func NewSlot(path string, maxBytes int) (*Slot, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Slot{MaxBytes: maxBytes, db: db, path: path}, nil
}

// Get returns the payload stored under key.
func (s *Slot) Get(key string) (string, bool, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM state WHERE bucket = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select %s: %w", key, err)
	}
	return string(payload), true, nil
}

// Set upserts the payload under key. Oversized payloads are rejected with
// domain.ErrSlotCapacity and the previous value is kept.
func (s *Slot) Set(key, value string) (retErr error) {
	if s.MaxBytes > 0 && len(value) > s.MaxBytes {
		return domain.ErrSlotCapacity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, key, []byte(value)); err != nil {
		retErr = fmt.Errorf("upsert %s: %w", key, err)
		return retErr
	}
	return tx.Commit()
}

// Close releases the database handle.
func (s *Slot) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Slot) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Slot) Path() string { return s.path }
