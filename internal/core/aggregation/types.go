package aggregation

import (
	"time"

	"github.com/shopspring/decimal"
)

// AggregateKey identifies one aggregation group: every event of one principal that
// a rule selects within one window. Each key gets its own accumulator.
// Partition-scoped from day one: PartitionID is always present,
// even when running as a single instance.
type AggregateKey struct {
	PartitionID int
	PrincipalID string
	RuleName    string
	BucketSize  string    // e.g. "1m", "10m", "1h"
	WindowStart time.Time // truncated to bucket boundary
}

// AggregateResult is the finalized weighted mean of one group.
type AggregateResult struct {
	Aggregate       string          // registered aggregate name, e.g. weighted_mean
	Mean            decimal.Decimal // finalized result; zero for empty or zero-weight groups
	EventCount      int64           // rows folded into the accumulator
	SkippedCount    int64           // rows dropped because value or weight was missing
	LastEventID     string          // highest ingest_seq event folded into this result
	RuleFingerprint string          // SHA-256 of the rule definition; staleness detection at query time
	WindowStart     time.Time
	UpdatedAt       time.Time
}
