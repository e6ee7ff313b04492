package projection

import (
	"context"
	"fmt"
	"time"

	aggstore "github.com/aevon-lab/wmean/internal/aggregation"
	v1 "github.com/aevon-lab/wmean/internal/api/v1"
	coreagg "github.com/aevon-lab/wmean/internal/core/aggregation"
)

// rollupBucket is one output interval of a live fold, clamped to the query range.
type rollupBucket struct {
	start time.Time
	end   time.Time
}

// maxRollupBuckets caps the output intervals of one live query.
const maxRollupBuckets = 10000

// rollupStep is the bucket width of granularity, or 0 for a single bucket over the range.
func rollupStep(granularity string) time.Duration {
	switch granularity {
	case GranularityHour:
		return time.Hour
	case GranularityDay:
		return 24 * time.Hour
	}
	return 0
}

// rollupBucketCount returns how many buckets rollupBuckets produces, without building them.
func rollupBucketCount(granularity string, start, end time.Time) int64 {
	step := rollupStep(granularity)
	if step == 0 {
		return 1
	}
	// Sub saturates on ranges wider than ~292 years, which still counts far above the cap.
	span := end.Sub(start.Truncate(step))
	n := int64(span / step)
	if span%step != 0 {
		n++
	}
	return n
}

// rollupBuckets lists the output intervals for granularity covering [start, end).
// Hour and day buckets are aligned to UTC boundaries; the first and last are clamped.
func rollupBuckets(granularity string, start, end time.Time) []rollupBucket {
	step := rollupStep(granularity)
	if step == 0 {
		return []rollupBucket{{start: start, end: end}}
	}

	var buckets []rollupBucket
	for current := start.Truncate(step); current.Before(end); current = current.Add(step) {
		buckets = append(buckets, rollupBucket{
			start: maxTime(current, start),
			end:   minTime(current.Add(step), end),
		})
	}
	return buckets
}

// bucketIndex returns the index of the bucket holding t. buckets must be ordered and contiguous.
func bucketIndex(buckets []rollupBucket, t time.Time) int {
	lo, hi := 0, len(buckets)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case t.Before(buckets[mid].start):
			hi = mid - 1
		case !t.Before(buckets[mid].end):
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

// foldLive folds every raw event in the range into one group per output bucket.
// Folds are opened only for buckets that receive an event; every bucket is still
// reported, and the empty ones carry the aggregate's zero.
func (s *Service) foldLive(
	ctx context.Context,
	req WeightedMeanQueryRequest,
	rule coreagg.AggregationRule,
) ([]WeightedMeanValue, error) {
	def, err := rule.Definition()
	if err != nil {
		return nil, err
	}
	buckets := rollupBuckets(req.Granularity, req.Start, req.End)

	folds := make(map[int]*aggstore.GroupFold)
	defer func() {
		for _, fold := range folds {
			fold.Abort()
		}
	}()

	err = s.scanScopedRawEvents(ctx, 0, req.PrincipalID, rule.SourceEvent, req.Start, req.End, s.maxLiveEvents,
		func(events []*v1.Event) error {
			for _, evt := range events {
				idx := bucketIndex(buckets, evt.OccurredAt)
				if idx < 0 {
					continue
				}
				fold, ok := folds[idx]
				if !ok {
					opened, openErr := s.dispatcher.Open(rule)
					if openErr != nil {
						return openErr
					}
					fold = opened
					folds[idx] = fold
				}
				if err := fold.Add(evt); err != nil {
					return err
				}
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("live fold: %w", err)
	}

	values := make([]WeightedMeanValue, 0, len(buckets))
	for i, bucket := range buckets {
		value := WeightedMeanValue{
			WindowStart: bucket.start,
			WindowEnd:   bucket.end,
			Mean:        def.Zero(),
			Source:      SourceLive,
		}
		if fold, ok := folds[i]; ok {
			res, err := fold.Finish()
			if err != nil {
				return nil, err
			}
			value.Mean = res.Mean
			value.EventCount = res.EventCount
			value.SkippedCount = res.SkippedCount
		}
		values = append(values, value)
	}
	return values, nil
}
