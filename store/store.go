// Package store keeps chat messages in a local sqlite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrNotFound is returned when a message does not exist.
var ErrNotFound = errors.New("store: message not found")

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	sender     TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	audio_path TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_created_at ON messages(created_at);
`

// Message is one chat message. AudioPath is empty for text-only messages.
type Message struct {
	ID        string
	Sender    string
	Body      string
	AudioPath string
	CreatedAt time.Time
}

// HasAudio reports whether the message carries a voice clip.
func (m Message) HasAudio() bool { return m.AudioPath != "" }

// Store is a sqlite-backed message store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add inserts msg, assigning an ID and creation time when missing, and
// returns the stored message.
func (s *Store) Add(ctx context.Context, msg Message) (Message, error) {
	if s == nil || s.db == nil {
		return Message{}, fmt.Errorf("store: missing database connection")
	}
	if msg.Sender == "" {
		return Message{}, fmt.Errorf("store: message needs a sender")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, sender, body, audio_path, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.Sender, msg.Body, msg.AudioPath, msg.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Message{}, fmt.Errorf("inserting message: %w", err)
	}
	return msg, nil
}

// List returns all messages, oldest first.
func (s *Store) List(ctx context.Context) ([]Message, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store: missing database connection")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender, body, audio_path, created_at FROM messages ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Get returns the message with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Message, error) {
	if s == nil || s.db == nil {
		return Message{}, fmt.Errorf("store: missing database connection")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, sender, body, audio_path, created_at FROM messages WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	return msg, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(sc scanner) (Message, error) {
	var (
		msg     Message
		created int64
	)
	if err := sc.Scan(&msg.ID, &msg.Sender, &msg.Body, &msg.AudioPath, &created); err != nil {
		return Message{}, err
	}
	msg.CreatedAt = time.Unix(0, created)
	return msg, nil
}
