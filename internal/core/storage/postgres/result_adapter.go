package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/wmean/internal/core/aggregation"
	"github.com/aevon-lab/wmean/internal/core/partition"
	"github.com/shopspring/decimal"
)

const (
	defaultBucketSize = "1m"

	querySelectCheckpointForUpdate = `
		SELECT checkpoint_cursor
		FROM sweep_checkpoints
		WHERE bucket_size = $1
		FOR UPDATE
	`

	queryInitCheckpointRow = `
		INSERT INTO sweep_checkpoints (bucket_size, checkpoint_cursor, updated_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (bucket_size) DO NOTHING
	`

	// Results are recomputed from the group's complete row set, so a flush replaces
	// the stored row instead of combining with it.
	queryUpsertResult = `
		INSERT INTO weighted_means (
			partition_id, principal_id, rule_name, rule_fingerprint, bucket_size, window_start,
			aggregate, mean, event_count, skipped_count, last_event_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (partition_id, principal_id, rule_name, bucket_size, window_start)
		DO UPDATE SET
			rule_fingerprint = EXCLUDED.rule_fingerprint,
			aggregate        = EXCLUDED.aggregate,
			mean             = EXCLUDED.mean,
			event_count      = EXCLUDED.event_count,
			skipped_count    = EXCLUDED.skipped_count,
			last_event_id    = EXCLUDED.last_event_id,
			updated_at       = EXCLUDED.updated_at
	`

	queryUpdateCheckpoint = `
		UPDATE sweep_checkpoints
		SET checkpoint_cursor = $1, updated_at = $2
		WHERE bucket_size = $3
	`

	queryReadCheckpoint = `SELECT checkpoint_cursor FROM sweep_checkpoints WHERE bucket_size = $1`

	queryRangeResults = `
		SELECT
			window_start,
			aggregate,
			mean,
			event_count,
			skipped_count,
			last_event_id,
			rule_fingerprint,
			updated_at
		FROM weighted_means
		WHERE partition_id = $1
		  AND principal_id = $2
		  AND rule_name = $3
		  AND bucket_size = $4
		  AND window_start >= $5
		  AND window_start < $6
		ORDER BY window_start ASC
	`
)

// ResultAdapter persists finalized weighted means using PostgreSQL.
// Result upserts and the checkpoint write share one transaction, so a crash
// never leaves the cursor ahead of the stored results.
type ResultAdapter struct {
	db *sql.DB
}

// NewResultAdapter creates a new ResultAdapter sharing the given connection.
func NewResultAdapter(db *sql.DB) *ResultAdapter {
	return &ResultAdapter{db: db}
}

// Flush upserts all results and writes the bucket-scoped checkpoint cursor in one transaction.
// cursor is the last ingest_seq included in these results.
func (a *ResultAdapter) Flush(
	ctx context.Context,
	results map[aggregation.AggregateKey]aggregation.AggregateResult,
	cursor int64,
	bucketSize string,
) error {
	if bucketSize == "" {
		bucketSize = defaultBucketSize
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("weighted_means flush: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Lock checkpoint row first and enforce monotonic checkpoint writes.
	// Stale, out-of-order flushes must not overwrite newer durable state.
	var durableCursor int64
	err = tx.QueryRowContext(ctx, querySelectCheckpointForUpdate, bucketSize).Scan(&durableCursor)
	if err == sql.ErrNoRows {
		_, err = tx.ExecContext(ctx, queryInitCheckpointRow, bucketSize, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("weighted_means flush: init checkpoint row: %w", err)
		}

		err = tx.QueryRowContext(ctx, querySelectCheckpointForUpdate, bucketSize).Scan(&durableCursor)
		if err != nil {
			return fmt.Errorf("weighted_means flush: read initialized checkpoint for update: %w", err)
		}
	}
	if err != nil {
		return fmt.Errorf("weighted_means flush: read checkpoint for update: %w", err)
	}

	if cursor <= durableCursor {
		slog.Warn("[ResultAdapter] Skipping stale/no-op flush",
			"cursor", cursor,
			"durable_cursor", durableCursor,
			"results", len(results))
		return nil
	}

	upsertStmt, err := tx.PrepareContext(ctx, queryUpsertResult)
	if err != nil {
		return fmt.Errorf("weighted_means flush: prepare upsert: %w", err)
	}
	defer upsertStmt.Close()

	for key, result := range results {
		keyBucketSize := key.BucketSize
		if keyBucketSize == "" {
			keyBucketSize = defaultBucketSize
		}
		if keyBucketSize != bucketSize {
			return fmt.Errorf(
				"weighted_means flush: result bucket mismatch: expected %s, got %s for key %v",
				bucketSize,
				keyBucketSize,
				key,
			)
		}
		if _, err := upsertStmt.ExecContext(ctx,
			key.PartitionID,
			key.PrincipalID,
			key.RuleName,
			result.RuleFingerprint,
			keyBucketSize,
			key.WindowStart,
			result.Aggregate,
			result.Mean,
			result.EventCount,
			result.SkippedCount,
			result.LastEventID,
			result.UpdatedAt,
		); err != nil {
			return fmt.Errorf("weighted_means flush: upsert %v: %w", key, err)
		}
	}

	res, err := tx.ExecContext(ctx, queryUpdateCheckpoint, cursor, time.Now().UTC(), bucketSize)
	if err != nil {
		return fmt.Errorf("weighted_means flush: write checkpoint: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("weighted_means flush: check checkpoint write: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("weighted_means flush: checkpoint row missing (bucket=%s)", bucketSize)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("weighted_means flush: commit: %w", err)
	}

	slog.Info("[ResultAdapter] Flushed",
		"results", len(results),
		"cursor", cursor,
		"bucket_size", bucketSize,
	)
	return nil
}

// ReadCheckpoint returns the bucket-scoped checkpoint cursor.
// Returns 0 if no checkpoint exists yet (meaning "replay from beginning").
func (a *ResultAdapter) ReadCheckpoint(ctx context.Context, bucketSize string) (int64, error) {
	if bucketSize == "" {
		bucketSize = defaultBucketSize
	}

	var cursor int64
	err := a.db.QueryRowContext(ctx, queryReadCheckpoint, bucketSize).Scan(&cursor)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}
	return cursor, nil
}

// QueryRange fetches stored window results for one principal and rule.
// Returns results ordered by window_start ASC.
func (a *ResultAdapter) QueryRange(
	ctx context.Context,
	principalID string,
	ruleName string,
	bucketSize string,
	startTime time.Time,
	endTime time.Time,
) ([]aggregation.AggregateResult, error) {
	if bucketSize == "" {
		bucketSize = defaultBucketSize
	}

	rows, err := a.db.QueryContext(ctx, queryRangeResults,
		partition.For(principalID), principalID, ruleName, bucketSize, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("query weighted_means: %w", err)
	}
	defer rows.Close()

	var results []aggregation.AggregateResult
	for rows.Next() {
		var result aggregation.AggregateResult
		var meanStr string

		if err := rows.Scan(
			&result.WindowStart,
			&result.Aggregate,
			&meanStr,
			&result.EventCount,
			&result.SkippedCount,
			&result.LastEventID,
			&result.RuleFingerprint,
			&result.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		mean, err := decimal.NewFromString(meanStr)
		if err != nil {
			return nil, fmt.Errorf("parse mean %q: %w", meanStr, err)
		}
		result.Mean = mean

		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return results, nil
}
