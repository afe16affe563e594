// Package statestore persists per-thread reading positions in a local
// SQLite database so reopening the app restores where each thread was
// left.
package statestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/runlight/threadview/internal/scrollstate"
)

// Store is the SQLite-backed persistence layer for scroll state.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS scroll_state (
	thread_id         TEXT PRIMARY KEY,
	position          TEXT NOT NULL,
	at_bottom_at_open INTEGER NOT NULL,
	updated_at_unix   INTEGER NOT NULL
);
`

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveScrollState upserts the stored position for a thread.
func (s *Store) SaveScrollState(threadID string, pos *scrollstate.Position, atBottomAtOpen bool) {
	if threadID == "" || pos == nil {
		return
	}
	data, err := json.Marshal(pos)
	if err != nil {
		return
	}
	bottom := 0
	if atBottomAtOpen {
		bottom = 1
	}
	s.db.Exec(`
		INSERT INTO scroll_state (thread_id, position, at_bottom_at_open, updated_at_unix)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			position = excluded.position,
			at_bottom_at_open = excluded.at_bottom_at_open,
			updated_at_unix = excluded.updated_at_unix`,
		threadID, string(data), bottom, time.Now().Unix())
}

// LoadScrollState returns the stored position for a thread, if any.
func (s *Store) LoadScrollState(threadID string) (*scrollstate.Position, bool, error) {
	var raw string
	var bottom int
	err := s.db.QueryRow(
		`SELECT position, at_bottom_at_open FROM scroll_state WHERE thread_id = ?`,
		threadID).Scan(&raw, &bottom)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var pos scrollstate.Position
	if err := json.Unmarshal([]byte(raw), &pos); err != nil {
		return nil, false, err
	}
	return &pos, bottom != 0, nil
}

// DeleteScrollState removes the stored position for a thread.
func (s *Store) DeleteScrollState(threadID string) {
	s.db.Exec(`DELETE FROM scroll_state WHERE thread_id = ?`, threadID)
}

// Prune removes entries not touched within the retention window.
func (s *Store) Prune(retention time.Duration) error {
	cutoff := time.Now().Add(-retention).Unix()
	_, err := s.db.Exec(`DELETE FROM scroll_state WHERE updated_at_unix < ?`, cutoff)
	return err
}
