package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/aevon-lab/wmean/internal/api/v1"
)

// ErrDuplicate is returned when an event with the same (principal_id, id) already exists.
var ErrDuplicate = errors.New("event already exists")

// EventStore defines the interface for storing and retrieving events.
type EventStore interface {
	SaveEvent(ctx context.Context, event *v1.Event) error

	// RetrieveEventsAfterCursor fetches events after a cursor (ingest_seq) in strict total order.
	// This prevents batch boundary data loss during pagination.
	// cursor=0 means "from the beginning"
	RetrieveEventsAfterCursor(ctx context.Context, cursor int64, limit int) ([]*v1.Event, error)

	// RetrieveScopedEventsAfterCursor fetches one principal's events of one type whose
	// occurred_at falls in [startOccurredAt, endOccurredAt), in strict total order.
	// Used to re-read the complete row set of an aggregation group.
	RetrieveScopedEventsAfterCursor(
		ctx context.Context,
		cursor int64,
		principalID string,
		eventType string,
		startOccurredAt time.Time,
		endOccurredAt time.Time,
		limit int,
	) ([]*v1.Event, error)
}
