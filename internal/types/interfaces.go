package types

import (
	"context"
	"time"
)

// EventStore is the record store for tracked echo events. The session core
// never touches it; the surrounding application decides when to invoke a
// lookup and records that a reply was sent.
type EventStore interface {
	Insert(ctx context.Context, event *Event) error
	Get(ctx context.Context, id int64) (*Event, error)
	List(ctx context.Context, limit int) ([]*Event, error)
	ListDue(ctx context.Context, now time.Time) ([]*Event, error)
	MarkReplied(ctx context.Context, id int64) error
	MaxMessageID(ctx context.Context) (int64, error)
}
