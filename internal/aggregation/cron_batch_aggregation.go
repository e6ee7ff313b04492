package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	v1 "github.com/aevon-lab/wmean/internal/api/v1"
	"github.com/aevon-lab/wmean/internal/core/aggregation"
	"github.com/aevon-lab/wmean/internal/core/partition"
	"github.com/aevon-lab/wmean/internal/core/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize   = 50000
	defaultWorkerCount = 10
)

// BatchJobParameter controls throughput and aggregation behavior for a batch run.
type BatchJobParameter struct {
	BatchSize   int
	WorkerCount int
	BucketSize  time.Duration
	BucketLabel string
	Observer    Observer
}

// DefaultBatchJobOptions returns safe defaults for cron-based processing.
func DefaultBatchJobOptions() BatchJobParameter {
	return BatchJobParameter{
		BatchSize:   defaultBatchSize,
		WorkerCount: defaultWorkerCount,
		BucketSize:  time.Minute,
		BucketLabel: "1m",
	}
}

func (o BatchJobParameter) normalized() BatchJobParameter {
	n := o
	if n.BatchSize <= 0 {
		n.BatchSize = defaultBatchSize
	}
	if n.WorkerCount <= 0 {
		n.WorkerCount = defaultWorkerCount
	}
	if n.BucketSize <= 0 {
		n.BucketSize = time.Minute
	}
	if n.BucketLabel == "" {
		n.BucketLabel = aggregation.WindowLabel(n.BucketSize)
	}
	if n.Observer == nil {
		n.Observer = nopObserver{}
	}
	return n
}

// groupJob is one touched group and the rule that selects its rows.
type groupJob struct {
	key  aggregation.AggregateKey
	rule aggregation.AggregationRule
}

// RunBatchAggregation processes events since last checkpoint and refreshes the results
// of every group they touch. Uses default options: 50K batch size, 10 workers, 1-minute buckets.
func RunBatchAggregation(
	ctx context.Context,
	eventStore storage.EventStore,
	resultStore ResultStore,
	rules []aggregation.AggregationRule,
) error {
	_, err := RunBatchAggregationWithOptions(ctx, eventStore, resultStore, rules, DefaultBatchJobOptions())
	return err
}

// RunBatchAggregationWithOptions processes one batch of events after the checkpoint and
// returns how many events it consumed. The scheduler uses the count to decide whether
// there is more backlog to drain.
//
// New events only identify which groups changed. Each touched group is then folded
// from its complete row set (up to the new cursor), so a stored result never has to
// be combined with a partial one.
func RunBatchAggregationWithOptions(
	ctx context.Context,
	eventStore storage.EventStore,
	resultStore ResultStore,
	rules []aggregation.AggregationRule,
	jobParameter BatchJobParameter,
) (int, error) {
	jobParameter = jobParameter.normalized()
	runID := uuid.NewString()

	cursor, err := resultStore.ReadCheckpoint(ctx, jobParameter.BucketLabel)
	if err != nil {
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}

	events, err := eventStore.RetrieveEventsAfterCursor(ctx, cursor, jobParameter.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("query events: %w", err)
	}

	if len(events) == 0 {
		slog.Debug("[BatchJob] No new events to process", "bucket_size", jobParameter.BucketLabel)
		return 0, nil
	}

	slog.Info("[BatchJob] Processing events",
		"run_id", runID,
		"count", len(events),
		"from_cursor", cursor,
		"bucket_size", jobParameter.BucketLabel,
		"workers", jobParameter.WorkerCount,
	)

	newCursor := events[len(events)-1].IngestSeq
	jobs := touchedGroups(events, toRuleMap(rules), jobParameter)

	results, err := foldGroupsConcurrently(ctx, eventStore, jobs, newCursor, jobParameter)
	if err != nil {
		return 0, fmt.Errorf("fold groups: %w", err)
	}

	if err := resultStore.Flush(ctx, results, newCursor, jobParameter.BucketLabel); err != nil {
		return 0, fmt.Errorf("flush results: %w", err)
	}

	slog.Info("[BatchJob] Batch complete",
		"run_id", runID,
		"events_processed", len(events),
		"groups_refolded", len(results),
		"cursor_advanced", fmt.Sprintf("%d -> %d", cursor, newCursor),
		"bucket_size", jobParameter.BucketLabel,
	)

	return len(events), nil
}

func toRuleMap(rules []aggregation.AggregationRule) map[string][]aggregation.AggregationRule {
	ruleMap := make(map[string][]aggregation.AggregationRule)
	for _, r := range rules {
		if _, err := r.Definition(); err != nil {
			slog.Warn("[BatchJob] Skip rule with unknown aggregate", "rule", r.Name, "aggregate", r.Aggregate)
			continue
		}
		ruleMap[r.SourceEvent] = append(ruleMap[r.SourceEvent], r)
	}
	return ruleMap
}

// touchedGroups returns one job per group key that at least one event falls into.
func touchedGroups(
	events []*v1.Event,
	ruleMap map[string][]aggregation.AggregationRule,
	jobParameter BatchJobParameter,
) []groupJob {
	seen := make(map[aggregation.AggregateKey]struct{})
	var jobs []groupJob
	for _, evt := range events {
		for _, rule := range ruleMap[evt.Type] {
			key := aggregation.AggregateKey{
				PartitionID: partition.For(evt.PrincipalID),
				PrincipalID: evt.PrincipalID,
				RuleName:    rule.Name,
				BucketSize:  jobParameter.BucketLabel,
				WindowStart: aggregation.BucketFor(evt.OccurredAt, jobParameter.BucketSize),
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			jobs = append(jobs, groupJob{key: key, rule: rule})
		}
	}
	return jobs
}

func foldGroupsConcurrently(
	ctx context.Context,
	eventStore storage.EventStore,
	jobs []groupJob,
	upTo int64,
	jobParameter BatchJobParameter,
) (map[aggregation.AggregateKey]aggregation.AggregateResult, error) {
	dispatcher := NewGroupDispatcher(jobParameter.Observer)
	now := time.Now().UTC()

	var mu sync.Mutex
	results := make(map[aggregation.AggregateKey]aggregation.AggregateResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobParameter.WorkerCount)
	for _, job := range jobs {
		g.Go(func() error {
			res, err := foldGroup(gctx, eventStore, dispatcher, job, upTo, jobParameter)
			if err != nil {
				return err
			}

			mu.Lock()
			results[job.key] = aggregation.AggregateResult{
				Aggregate:       job.rule.Aggregate,
				Mean:            res.Mean,
				EventCount:      res.EventCount,
				SkippedCount:    res.SkippedCount,
				LastEventID:     res.LastEventID,
				RuleFingerprint: job.rule.Fingerprint,
				WindowStart:     job.key.WindowStart,
				UpdatedAt:       now,
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// foldGroup re-reads the group's events page by page, in ingest order, and folds
// every event up to and including upTo.
func foldGroup(
	ctx context.Context,
	eventStore storage.EventStore,
	dispatcher *GroupDispatcher,
	job groupJob,
	upTo int64,
	jobParameter BatchJobParameter,
) (GroupResult, error) {
	fold, err := dispatcher.Open(job.rule)
	if err != nil {
		return GroupResult{}, err
	}
	defer fold.Abort()

	windowEnd := job.key.WindowStart.Add(jobParameter.BucketSize)
	var seq int64
	for {
		page, err := eventStore.RetrieveScopedEventsAfterCursor(
			ctx,
			seq,
			job.key.PrincipalID,
			job.rule.SourceEvent,
			job.key.WindowStart,
			windowEnd,
			jobParameter.BatchSize,
		)
		if err != nil {
			return GroupResult{}, fmt.Errorf("read group %s/%s@%s: %w",
				job.key.PrincipalID, job.rule.Name, job.key.WindowStart.Format(time.RFC3339), err)
		}

		for _, evt := range page {
			if evt.IngestSeq > upTo {
				return fold.Finish()
			}
			if err := fold.Add(evt); err != nil {
				return GroupResult{}, err
			}
			seq = evt.IngestSeq
		}

		if len(page) < jobParameter.BatchSize {
			return fold.Finish()
		}
	}
}
