// Package store persists per-session annotations — custom display names and
// last-viewed timestamps — in a local SQLite database. The conversation index
// itself is never persisted; annotations are the only durable state.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Annotation is the durable per-session row.
type Annotation struct {
	SessionID    string
	Name         string
	LastViewedAt time.Time
}

// Store wraps the annotations database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the annotations database at dbPath.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open annotations database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS annotations (
			session_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			last_viewed_at INTEGER NOT NULL DEFAULT 0
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetName sets the custom display name for a session. An empty name removes
// the annotation unless a last-viewed timestamp keeps the row alive.
func (s *Store) SetName(sessionID, name string) error {
	if name == "" {
		_, err := s.db.Exec(`
			UPDATE annotations SET name = '' WHERE session_id = ?
		`, sessionID)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(`
			DELETE FROM annotations WHERE session_id = ? AND name = '' AND last_viewed_at = 0
		`, sessionID)
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO annotations (session_id, name) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET name = excluded.name
	`, sessionID, name)
	return err
}

// GetName returns the custom name for a session, or empty string if unset.
func (s *Store) GetName(sessionID string) (string, error) {
	var name string
	err := s.db.QueryRow(`
		SELECT name FROM annotations WHERE session_id = ?
	`, sessionID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return name, err
}

// Touch records that a session was viewed now.
func (s *Store) Touch(sessionID string) error {
	_, err := s.db.Exec(`
		INSERT INTO annotations (session_id, last_viewed_at) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET last_viewed_at = excluded.last_viewed_at
	`, sessionID, time.Now().UnixMilli())
	return err
}

// All returns every annotation keyed by session id.
func (s *Store) All() (map[string]Annotation, error) {
	rows, err := s.db.Query(`SELECT session_id, name, last_viewed_at FROM annotations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]Annotation)
	for rows.Next() {
		var a Annotation
		var viewedMilli int64
		if err := rows.Scan(&a.SessionID, &a.Name, &viewedMilli); err != nil {
			return nil, err
		}
		if viewedMilli > 0 {
			a.LastViewedAt = time.UnixMilli(viewedMilli)
		}
		result[a.SessionID] = a
	}
	return result, rows.Err()
}

// Prune drops annotations for sessions not in the keep set. Called after
// refreshes so deleted transcripts do not accumulate orphan rows.
func (s *Store) Prune(keep map[string]bool) error {
	rows, err := s.db.Query(`SELECT session_id FROM annotations`)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := s.db.Exec(`DELETE FROM annotations WHERE session_id = ?`, id); err != nil {
			return err
		}
	}
	return nil
}
