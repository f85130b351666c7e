// Package state persists conversation state as JSON blobs keyed by
// conversation identifier, using SQLite.
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/faqdesk/faqdesk/internal/history"
)

// ErrNotFound is returned when no state exists for a conversation.
var ErrNotFound = errors.New("conversation not found")

// Store manages conversation state persistence in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at the given path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			state      TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT (datetime('now')),
			updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load retrieves the state for a conversation. Returns ErrNotFound if the
// conversation has no stored state.
func (s *Store) Load(conversationID string) (*history.Conversation, error) {
	var blob string
	err := s.db.QueryRow(
		`SELECT state FROM conversations WHERE id = ?`, conversationID,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	conv := &history.Conversation{}
	if err := json.Unmarshal([]byte(blob), conv); err != nil {
		return nil, fmt.Errorf("decoding conversation state: %w", err)
	}
	return conv, nil
}

// LoadOrCreate retrieves the state for a conversation, creating an empty
// one if absent.
func (s *Store) LoadOrCreate(conversationID string) (*history.Conversation, error) {
	conv, err := s.Load(conversationID)
	if errors.Is(err, ErrNotFound) {
		return &history.Conversation{}, nil
	}
	return conv, err
}

// Save upserts the state for a conversation.
func (s *Store) Save(conversationID string, conv *history.Conversation) error {
	blob, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encoding conversation state: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO conversations (id, state, created_at, updated_at)
		 VALUES (?, ?, datetime('now'), datetime('now'))
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = datetime('now')`,
		conversationID, string(blob),
	)
	return err
}

// Delete removes the state for a conversation.
func (s *Store) Delete(conversationID string) error {
	_, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, conversationID)
	return err
}

// PurgeIdle deletes conversations not updated within the retention window
// and returns the number of rows removed.
func (s *Store) PurgeIdle(retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	result, err := s.db.Exec(
		`DELETE FROM conversations WHERE updated_at < ?`,
		cutoff.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
