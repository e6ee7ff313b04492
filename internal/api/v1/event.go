package v1

import (
	"fmt"
	"time"
)

// Event is one input row for the aggregation pipeline.
// It separates the "Envelope" (System Attributes) from the "Letter" (Data).
// Rules pick the value and weight out of Data by field name.
type Event struct {
	// --- System Attributes (The Envelope) ---

	// ID is the unique immutable identifier. It MUST be unique per PrincipalID to enforce
	// idempotency. Generated on ingestion when the client omits it.
	ID string `json:"id"`

	// PrincipalID identifies the actor the event is attributed to.
	// Examples: "user:alice@example.com", "account:123", "desk:fx-spot"
	// Aggregation groups are scoped per principal.
	PrincipalID string `json:"principal_id"`

	// Metadata is a generic key-value store for context (e.g., source, trace_id, region).
	Metadata map[string]string `json:"metadata,omitempty"`

	// Type is the domain-specific event name (e.g., "trade.filled", "sensor.reading").
	// Rules select events by Type.
	Type string `json:"type"`

	// OccurredAt is when the event happened in the real world (client-side clock).
	// It decides which window the event belongs to.
	OccurredAt time.Time `json:"occurred_at"`

	// IngestedAt is when the service received the event. Set by ingestion, not the client.
	IngestedAt time.Time `json:"ingested_at"`

	// IngestSeq is a monotonic sequence number assigned on ingestion.
	// This provides strict total ordering for cursor pagination.
	// Set by database (BIGSERIAL), not exposed in public API.
	IngestSeq int64 `json:"-"`

	// --- User Payload (The Letter) ---

	// Data is the domain-specific payload. Numeric fields may be JSON numbers or
	// decimal strings; strings keep digits a float64 would lose.
	Data map[string]interface{} `json:"data"`
}

// Validate ensures the event has all required system attributes.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}

	if e.PrincipalID == "" {
		return fmt.Errorf("principal_id is required")
	}

	if e.Type == "" {
		return fmt.Errorf("type is required")
	}

	if e.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}

	return nil
}
