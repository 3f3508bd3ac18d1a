// Package history keeps a local record of editing sessions in SQLite,
// supporting both pure Go (modernc.org/sqlite) and CGO (mattn/go-sqlite3)
// implementations.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3
//
// The driver name is "sqlite" or "sqlite3" depending on the implementation.
// Use Open or OpenInMemory instead of sql.Open so the right driver is used.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DriverName returns the SQL driver name in use.
func DriverName() string {
	return driverName
}

// DriverType returns a string identifying the underlying implementation.
// Returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// DriverInfo returns information about the current SQLite configuration.
func DriverInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS loads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	opened_at TEXT NOT NULL,
	path TEXT NOT NULL,
	document_digest TEXT NOT NULL,
	paragraphs INTEGER NOT NULL,
	runs INTEGER NOT NULL,
	tables INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS saves (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	saved_at TEXT NOT NULL,
	path TEXT NOT NULL,
	document_digest TEXT NOT NULL,
	mutations INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_loads_path ON loads(path);
CREATE INDEX IF NOT EXISTS idx_saves_path ON saves(path);
`

// LoadRecord is one document load.
type LoadRecord struct {
	SessionID  string
	OpenedAt   time.Time
	Path       string
	Digest     string
	Paragraphs int
	Runs       int
	Tables     int
}

// SaveRecord is one document save.
type SaveRecord struct {
	SessionID string
	SavedAt   time.Time
	Path      string
	Digest    string
	Mutations int
}

// Store is an open history database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the per-user history database path.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "lancet", "history.db"), nil
}

// Open opens (and if needed creates) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a throwaway in-memory history database.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory db: %w", err)
	}
	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing history database without write access.
func OpenReadOnly(path string) (*Store, error) {
	db, err := sql.Open(driverName, "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open history db read-only: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate history schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordLoad inserts one load record. A zero OpenedAt is stamped with the
// current time.
func (s *Store) RecordLoad(r LoadRecord) error {
	if r.OpenedAt.IsZero() {
		r.OpenedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO loads (session_id, opened_at, path, document_digest, paragraphs, runs, tables)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.OpenedAt.Format(time.RFC3339), r.Path, r.Digest, r.Paragraphs, r.Runs, r.Tables,
	)
	if err != nil {
		return fmt.Errorf("record load: %w", err)
	}
	return nil
}

// RecordSave inserts one save record. A zero SavedAt is stamped with the
// current time.
func (s *Store) RecordSave(r SaveRecord) error {
	if r.SavedAt.IsZero() {
		r.SavedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO saves (session_id, saved_at, path, document_digest, mutations)
		 VALUES (?, ?, ?, ?, ?)`,
		r.SessionID, r.SavedAt.Format(time.RFC3339), r.Path, r.Digest, r.Mutations,
	)
	if err != nil {
		return fmt.Errorf("record save: %w", err)
	}
	return nil
}

// RecentLoads returns the most recent loads, newest first.
func (s *Store) RecentLoads(limit int) ([]LoadRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, opened_at, path, document_digest, paragraphs, runs, tables
		 FROM loads ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query loads: %w", err)
	}
	defer rows.Close()

	var out []LoadRecord
	for rows.Next() {
		var r LoadRecord
		var openedAt string
		if err := rows.Scan(&r.SessionID, &openedAt, &r.Path, &r.Digest, &r.Paragraphs, &r.Runs, &r.Tables); err != nil {
			return nil, fmt.Errorf("scan load: %w", err)
		}
		r.OpenedAt, _ = time.Parse(time.RFC3339, openedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentSaves returns the most recent saves, newest first.
func (s *Store) RecentSaves(limit int) ([]SaveRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, saved_at, path, document_digest, mutations
		 FROM saves ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query saves: %w", err)
	}
	defer rows.Close()

	var out []SaveRecord
	for rows.Next() {
		var r SaveRecord
		var savedAt string
		if err := rows.Scan(&r.SessionID, &savedAt, &r.Path, &r.Digest, &r.Mutations); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		r.SavedAt, _ = time.Parse(time.RFC3339, savedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SavesForPath returns all saves of one document path, newest first.
func (s *Store) SavesForPath(path string) ([]SaveRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, saved_at, path, document_digest, mutations
		 FROM saves WHERE path = ? ORDER BY id DESC`, path)
	if err != nil {
		return nil, fmt.Errorf("query saves: %w", err)
	}
	defer rows.Close()

	var out []SaveRecord
	for rows.Next() {
		var r SaveRecord
		var savedAt string
		if err := rows.Scan(&r.SessionID, &savedAt, &r.Path, &r.Digest, &r.Mutations); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		r.SavedAt, _ = time.Parse(time.RFC3339, savedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastSave returns the newest save of a document path, or nil.
func (s *Store) LastSave(path string) (*SaveRecord, error) {
	saves, err := s.SavesForPath(path)
	if err != nil {
		return nil, err
	}
	if len(saves) == 0 {
		return nil, nil
	}
	return &saves[0], nil
}
