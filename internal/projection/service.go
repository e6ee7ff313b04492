package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	aggstore "github.com/aevon-lab/wmean/internal/aggregation"
	v1 "github.com/aevon-lab/wmean/internal/api/v1"
	coreagg "github.com/aevon-lab/wmean/internal/core/aggregation"
	"github.com/aevon-lab/wmean/internal/core/storage"
)

const (
	rawQueryBatchSize     = 5000
	maxRawQueryIterations = 20 // Limit to prevent timeout/OOM when checkpoint is far behind
	defaultMaxLiveEvents  = 100000
)

var (
	// ErrInvalidQuery marks request validation errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid weighted mean query")

	// ErrRuleNotFound is returned when the query names a rule that is not loaded.
	ErrRuleNotFound = errors.New("aggregation rule not found")

	// ErrTooManyEvents is returned when a live fold would read more raw events than allowed.
	ErrTooManyEvents = errors.New("range holds too many events for a live fold")
)

// Service implements the projection/query layer.
//
// Window queries serve stored results and refold, from their full row set, the
// windows that have events the batch job has not flushed yet. Coarser
// granularities are folded live from raw events: a weighted mean of window means
// is not the weighted mean of the range.
type Service struct {
	resultStore   aggstore.ResultStore
	eventStore    storage.EventStore
	rules         coreagg.RuleRepository
	dispatcher    *aggstore.GroupDispatcher
	maxLiveEvents int
	nowFn         func() time.Time
}

// NewService creates a new projection service.
func NewService(
	resultStore aggstore.ResultStore,
	eventStore storage.EventStore,
	rules coreagg.RuleRepository,
	dispatcher *aggstore.GroupDispatcher,
	maxLiveEvents int,
) *Service {
	if dispatcher == nil {
		dispatcher = aggstore.NewGroupDispatcher(nil)
	}
	if maxLiveEvents <= 0 {
		maxLiveEvents = defaultMaxLiveEvents
	}
	return &Service{
		resultStore:   resultStore,
		eventStore:    eventStore,
		rules:         rules,
		dispatcher:    dispatcher,
		maxLiveEvents: maxLiveEvents,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// QueryWeightedMean computes or fetches weighted means of one principal for a time range.
func (s *Service) QueryWeightedMean(ctx context.Context, req WeightedMeanQueryRequest) (*WeightedMeanQueryResponse, error) {
	req, err := s.normalizeAndValidate(req)
	if err != nil {
		return nil, err
	}

	rule, err := s.rules.Get(ctx, req.Rule)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, req.Rule)
	}

	var values []WeightedMeanValue
	switch req.Granularity {
	case GranularityWindow:
		values, err = s.queryWindows(ctx, req, *rule)
	default:
		values, err = s.foldLive(ctx, req, *rule)
	}
	if err != nil {
		return nil, err
	}

	// Compute accurate data_through based on actual data
	dataThrough := computeDataThrough(req.End, values)

	// Cap at current time - can't have data from the future
	dataThrough = minTime(dataThrough, s.nowFn())

	staleness := int(s.nowFn().Sub(dataThrough).Seconds())
	if staleness < 0 {
		staleness = 0
	}

	return &WeightedMeanQueryResponse{
		PrincipalID:      req.PrincipalID,
		Rule:             rule.Name,
		Aggregate:        rule.Aggregate,
		ValueField:       rule.ValueField,
		WeightField:      rule.WeightField,
		Start:            req.Start,
		End:              req.End,
		Granularity:      req.Granularity,
		DataThrough:      dataThrough,
		StalenessSeconds: staleness,
		Values:           values,
	}, nil
}

func (s *Service) normalizeAndValidate(req WeightedMeanQueryRequest) (WeightedMeanQueryRequest, error) {
	if req.Granularity == "" {
		req.Granularity = GranularityWindow
	}

	if req.PrincipalID == "" {
		return req, invalidQueryf("principal_id is required")
	}
	if req.Rule == "" {
		return req, invalidQueryf("rule is required")
	}
	if !req.End.After(req.Start) {
		return req, invalidQueryf("end time must be after start time")
	}

	switch req.Granularity {
	case GranularityWindow, GranularityTotal, GranularityHour, GranularityDay:
	default:
		return req, invalidQueryf("invalid granularity: %s (must be window, total, 1h, or 1d)", req.Granularity)
	}

	req.Start = req.Start.UTC()
	req.End = req.End.UTC()

	if n := rollupBucketCount(req.Granularity, req.Start, req.End); n > maxRollupBuckets {
		return req, invalidQueryf("range spans %d %s buckets (max %d); narrow the range or use a coarser granularity",
			n, req.Granularity, maxRollupBuckets)
	}
	return req, nil
}

// queryWindows serves stored window results, replacing every window that has
// unflushed events with a live refold of that window.
func (s *Service) queryWindows(
	ctx context.Context,
	req WeightedMeanQueryRequest,
	rule coreagg.AggregationRule,
) ([]WeightedMeanValue, error) {
	alignedStart := coreagg.BucketFor(req.Start, rule.WindowSize)

	stored, err := s.resultStore.QueryRange(ctx, req.PrincipalID, rule.Name, rule.WindowLabel, alignedStart, req.End)
	if err != nil {
		return nil, fmt.Errorf("query stored results: %w", err)
	}

	checkpoint, err := s.resultStore.ReadCheckpoint(ctx, rule.WindowLabel)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	byWindow := make(map[time.Time]WeightedMeanValue, len(stored))
	for _, res := range stored {
		byWindow[res.WindowStart.UTC()] = WeightedMeanValue{
			WindowStart:  res.WindowStart.UTC(),
			WindowEnd:    res.WindowStart.UTC().Add(rule.WindowSize),
			Mean:         res.Mean,
			EventCount:   res.EventCount,
			SkippedCount: res.SkippedCount,
			Source:       SourceStored,
			RuleChanged:  res.RuleFingerprint != "" && res.RuleFingerprint != rule.Fingerprint,
		}
	}

	touched := make(map[time.Time]struct{})
	err = s.scanScopedRawEvents(ctx, checkpoint, req.PrincipalID, rule.SourceEvent, alignedStart, req.End,
		maxRawQueryIterations*rawQueryBatchSize,
		func(events []*v1.Event) error {
			for _, evt := range events {
				touched[coreagg.BucketFor(evt.OccurredAt, rule.WindowSize).UTC()] = struct{}{}
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("query raw event tail: %w", err)
	}

	for windowStart := range touched {
		value, err := s.refoldWindow(ctx, req.PrincipalID, rule, windowStart)
		if err != nil {
			return nil, err
		}
		byWindow[windowStart] = value
	}

	values := make([]WeightedMeanValue, 0, len(byWindow))
	for _, value := range byWindow {
		values = append(values, value)
	}
	sortValues(values)
	return values, nil
}

// refoldWindow folds one window of one principal from all of its events.
func (s *Service) refoldWindow(
	ctx context.Context,
	principalID string,
	rule coreagg.AggregationRule,
	windowStart time.Time,
) (WeightedMeanValue, error) {
	windowEnd := windowStart.Add(rule.WindowSize)

	fold, err := s.dispatcher.Open(rule)
	if err != nil {
		return WeightedMeanValue{}, err
	}
	defer fold.Abort()

	err = s.scanScopedRawEvents(ctx, 0, principalID, rule.SourceEvent, windowStart, windowEnd, s.maxLiveEvents,
		func(events []*v1.Event) error {
			for _, evt := range events {
				if err := fold.Add(evt); err != nil {
					return err
				}
			}
			return nil
		})
	if err != nil {
		return WeightedMeanValue{}, fmt.Errorf("refold window %s: %w", windowStart.Format(time.RFC3339), err)
	}

	res, err := fold.Finish()
	if err != nil {
		return WeightedMeanValue{}, err
	}
	return WeightedMeanValue{
		WindowStart:  windowStart,
		WindowEnd:    windowEnd,
		Mean:         res.Mean,
		EventCount:   res.EventCount,
		SkippedCount: res.SkippedCount,
		Source:       SourceLive,
	}, nil
}

// scanScopedRawEvents pages through one principal's events of one type in
// [start, end) after cursor, handing each page to consume. It fails with
// ErrTooManyEvents once more than maxEvents have been read.
func (s *Service) scanScopedRawEvents(
	ctx context.Context,
	cursor int64,
	principalID string,
	eventType string,
	start, end time.Time,
	maxEvents int,
	consume func(events []*v1.Event) error,
) error {
	totalEvents := 0

	for {
		events, err := s.eventStore.RetrieveScopedEventsAfterCursor(
			ctx,
			cursor,
			principalID,
			eventType,
			start,
			end,
			rawQueryBatchSize,
		)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		totalEvents += len(events)
		if totalEvents > maxEvents {
			slog.Warn("[Projection] Raw event scan reached limit",
				"principal", principalID,
				"event_type", eventType,
				"events_scanned", totalEvents,
				"max_events", maxEvents,
			)
			return fmt.Errorf("%w: more than %d events", ErrTooManyEvents, maxEvents)
		}

		if err := consume(events); err != nil {
			return err
		}

		cursor = events[len(events)-1].IngestSeq
		if len(events) < rawQueryBatchSize {
			return nil
		}
	}
}

func computeDataThrough(end time.Time, values []WeightedMeanValue) time.Time {
	if len(values) == 0 {
		// Empty result still means query is complete up to requested end.
		return end
	}

	var dataThrough time.Time
	for _, value := range values {
		if value.WindowEnd.After(dataThrough) {
			dataThrough = value.WindowEnd
		}
	}
	return minTime(dataThrough, end)
}

func sortValues(values []WeightedMeanValue) {
	sort.Slice(values, func(i, j int) bool {
		return values[i].WindowStart.Before(values[j].WindowStart)
	})
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
