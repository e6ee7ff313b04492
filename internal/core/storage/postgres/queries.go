package postgres

// SQL queries for event storage operations with principal tracking

const (
	// querySaveEvent inserts an event with principal idempotency.
	// Uses composite key (principal_id, id) to prevent duplicate events.
	// RETURNING clause retrieves auto-generated ingest_seq for cursor tracking.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for duplicates.
	querySaveEvent = `
		INSERT INTO events (
			id, principal_id, type,
			occurred_at, ingested_at, metadata, data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (principal_id, id) DO NOTHING
		RETURNING ingest_seq
	`

	// queryRetrieveEventsAfterCursor fetches events after a cursor (ingest_seq).
	// Used by the batch job to read new events in strict total order.
	// Note: Fetches events for ALL principals (the batch job processes globally).
	queryRetrieveEventsAfterCursor = `
		SELECT
			id, principal_id, type,
			occurred_at, ingested_at, metadata, data, ingest_seq
		FROM events
		WHERE ingest_seq > $1
		ORDER BY ingest_seq ASC
		LIMIT $2
	`

	// queryRetrieveScopedEventsAfterCursor fetches the events of one aggregation group.
	// Used to refold a touched group and by the projection live path.
	queryRetrieveScopedEventsAfterCursor = `
		SELECT
			id, principal_id, type,
			occurred_at, ingested_at, metadata, data, ingest_seq
		FROM events
		WHERE ingest_seq > $1
		  AND principal_id = $2
		  AND type = $3
		  AND occurred_at >= $4
		  AND occurred_at < $5
		ORDER BY ingest_seq ASC
		LIMIT $6
	`
)
