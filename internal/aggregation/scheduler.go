package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/wmean/internal/core/aggregation"
	"github.com/aevon-lab/wmean/internal/core/storage"
)

// defaultMaxConsecutiveBatches bounds one drain so a hot stream cannot starve shutdown.
const defaultMaxConsecutiveBatches = 100

// Scheduler runs batch aggregation jobs for one window size on a periodic interval.
// It is stateless: each tick independently fetches events since last checkpoint.
type Scheduler struct {
	interval    time.Duration
	eventStore  storage.EventStore
	resultStore ResultStore
	rules       []aggregation.AggregationRule
	opts        BatchJobParameter
	maxBatches  int
}

// NewScheduler creates a cron scheduler for one bucket_size stream.
// rules should all use the window size in opts.
func NewScheduler(
	interval time.Duration,
	eventStore storage.EventStore,
	resultStore ResultStore,
	rules []aggregation.AggregationRule,
	opts BatchJobParameter,
) *Scheduler {
	return &Scheduler{
		interval:    interval,
		eventStore:  eventStore,
		resultStore: resultStore,
		rules:       rules,
		opts:        opts.normalized(),
		maxBatches:  defaultMaxConsecutiveBatches,
	}
}

// DrainStats summarizes one backlog drain.
type DrainStats struct {
	Batches int
	Events  int
	// Paused is set when the drain stopped at the batch limit with events still pending.
	Paused bool
}

// Start begins periodic batch aggregation.
// Runs until context is cancelled, then performs one final drain.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting batch aggregation scheduler",
		"interval", s.interval,
		"bucket_size", s.opts.BucketLabel,
		"rules", len(s.rules),
		"batch_size", s.opts.BatchSize,
		"workers", s.opts.WorkerCount,
	)

	// Catch up with any backlog left by the previous process.
	s.logDrain(s.Drain(ctx))

	for {
		select {
		case <-ticker.C:
			s.logDrain(s.Drain(ctx))
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			slog.Info("[Scheduler] Context cancelled, running final drain", "bucket_size", s.opts.BucketLabel)
			s.logDrain(s.Drain(shutdownCtx))
			return nil
		}
	}
}

// Drain runs batches until the backlog is empty, a batch fails, ctx is done or
// the consecutive batch limit is hit. Results flushed before a failure stay flushed.
func (s *Scheduler) Drain(ctx context.Context) (DrainStats, error) {
	var stats DrainStats

	for stats.Batches < s.maxBatches {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		processed, err := RunBatchAggregationWithOptions(ctx, s.eventStore, s.resultStore, s.rules, s.opts)
		if err != nil {
			return stats, fmt.Errorf("batch %d: %w", stats.Batches+1, err)
		}
		stats.Batches++
		stats.Events += processed

		// A short batch means the cursor has caught up.
		if processed < s.opts.BatchSize {
			return stats, nil
		}
	}

	stats.Paused = true
	return stats, nil
}

func (s *Scheduler) logDrain(stats DrainStats, err error) {
	switch {
	case err != nil:
		slog.Error("[Scheduler] Drain stopped",
			"error", err,
			"bucket_size", s.opts.BucketLabel,
			"batches", stats.Batches,
			"events", stats.Events,
		)
	case stats.Paused:
		slog.Warn("[Scheduler] Max consecutive batches reached, resuming on next tick",
			"bucket_size", s.opts.BucketLabel,
			"max_batches", s.maxBatches,
			"events", stats.Events,
		)
	case stats.Batches > 1:
		slog.Info("[Scheduler] Backlog drained",
			"bucket_size", s.opts.BucketLabel,
			"batches", stats.Batches,
			"events", stats.Events,
		)
	}
}
