package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/user/celestialecho/internal/types"
)

// ErrEventNotFound is returned when an event ID has no row.
var ErrEventNotFound = errors.New("event not found")

// EventStore is a SQLite-backed implementation of types.EventStore.
type EventStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the event database at path and runs
// the schema migration.
func Open(path string) (*EventStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open event db: %w", err)
	}

	s := &EventStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *EventStore) Close() error {
	return s.db.Close()
}

func (s *EventStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS events (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id     INTEGER NOT NULL,
			session_key    TEXT NOT NULL,
			celestial_body TEXT NOT NULL,
			replied        INTEGER NOT NULL DEFAULT 0,
			deadline       TIMESTAMP NOT NULL,
			round_trip     REAL NOT NULL,
			created_at     TIMESTAMP NOT NULL,
			updated_at     TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_due ON events(replied, deadline);
		CREATE INDEX IF NOT EXISTS idx_events_message_id ON events(message_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate events schema: %w", err)
	}
	return nil
}

// Insert stores a new event and fills in its ID and timestamps.
func (s *EventStore) Insert(ctx context.Context, event *types.Event) error {
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (message_id, session_key, celestial_body, replied, deadline, round_trip, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.MessageID, string(event.SessionKey), event.CelestialBody, event.Replied,
		event.Deadline.UTC(), event.RoundTrip, event.CreatedAt.UTC(), event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("event insert id: %w", err)
	}
	event.ID = id
	return nil
}

// Get returns the event with the given ID.
func (s *EventStore) Get(ctx context.Context, id int64) (*types.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, message_id, session_key, celestial_body, replied, deadline, round_trip, created_at, updated_at
		 FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrEventNotFound, id)
	}
	return event, err
}

// List returns the most recent events, newest first.
func (s *EventStore) List(ctx context.Context, limit int) ([]*types.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, session_key, celestial_body, replied, deadline, round_trip, created_at, updated_at
		 FROM events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListDue returns unreplied events whose deadline has passed, oldest
// deadline first.
func (s *EventStore) ListDue(ctx context.Context, now time.Time) ([]*types.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, session_key, celestial_body, replied, deadline, round_trip, created_at, updated_at
		 FROM events WHERE replied = 0 AND deadline <= ? ORDER BY deadline`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list due events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// MarkReplied records that the reply for an event went out.
func (s *EventStore) MarkReplied(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET replied = 1, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark event replied: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark event replied: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrEventNotFound, id)
	}
	return nil
}

// MaxMessageID returns the highest inbound message ID on record, the
// resume point for mention polling. Zero means no events yet.
func (s *EventStore) MaxMessageID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(message_id) FROM events`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max message id: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*types.Event, error) {
	var (
		event      types.Event
		sessionKey string
	)
	err := row.Scan(&event.ID, &event.MessageID, &sessionKey, &event.CelestialBody,
		&event.Replied, &event.Deadline, &event.RoundTrip, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, err
	}
	event.SessionKey = types.SessionKey(sessionKey)
	return &event, nil
}

func collectEvents(rows *sql.Rows) ([]*types.Event, error) {
	var events []*types.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return events, nil
}
