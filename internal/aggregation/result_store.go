package aggregation

import (
	"context"
	"time"

	"github.com/aevon-lab/wmean/internal/core/aggregation"
)

// ResultStore is the interface for durable weighted mean persistence.
//
// Contract: Flush and checkpoint write are atomically linked in a single
// database transaction. A crash can therefore never leave the cursor ahead of
// the stored results.
//
// Checkpoint Invariant: "Checkpoint cursor N means: every stored result was
// folded from all of its group's events up to ingest_seq N, and none after."
//
// Results are replaced, never combined: every flushed result was folded from
// the complete row set of its group.
type ResultStore interface {
	// Flush upserts all results and writes the bucket-scoped checkpoint atomically.
	Flush(
		ctx context.Context,
		results map[aggregation.AggregateKey]aggregation.AggregateResult,
		cursor int64,
		bucketSize string,
	) error

	// ReadCheckpoint returns the bucket-scoped checkpoint cursor.
	// Returns 0 if no checkpoint exists yet (meaning "replay from beginning").
	ReadCheckpoint(ctx context.Context, bucketSize string) (int64, error)

	// QueryRange fetches stored window results ordered by window_start ASC.
	QueryRange(
		ctx context.Context,
		principalID string,
		ruleName string,
		bucketSize string,
		startTime time.Time,
		endTime time.Time,
	) ([]aggregation.AggregateResult, error)
}
