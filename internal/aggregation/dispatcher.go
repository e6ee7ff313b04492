package aggregation

import (
	"fmt"
	"log/slog"

	v1 "github.com/aevon-lab/wmean/internal/api/v1"
	"github.com/aevon-lab/wmean/internal/core/aggregation"
	"github.com/aevon-lab/wmean/internal/core/weightedmean"
	"github.com/shopspring/decimal"
)

const groupScopeName = "AggregateGroup"

// Observer receives scope lifecycle and row dispatch notifications.
type Observer interface {
	weightedmean.ScopeObserver

	// RowDispatched reports whether a row was folded (accepted) or skipped.
	RowDispatched(rule string, accepted bool)
}

type nopObserver struct{}

func (nopObserver) ScopeCreated(string)        {}
func (nopObserver) ScopeReleased(string)       {}
func (nopObserver) RowDispatched(string, bool) {}

// GroupResult is what one group fold produces.
type GroupResult struct {
	Mean         decimal.Decimal
	EventCount   int64
	SkippedCount int64
	LastEventID  string
	LastSeq      int64
}

// GroupDispatcher drives the weighted mean aggregate for one group at a time.
// A dispatcher is safe for concurrent use; each GroupFold it opens is not.
type GroupDispatcher struct {
	observer Observer
}

// NewGroupDispatcher creates a dispatcher. observer may be nil.
func NewGroupDispatcher(observer Observer) *GroupDispatcher {
	if observer == nil {
		observer = nopObserver{}
	}
	return &GroupDispatcher{observer: observer}
}

// GroupFold threads one group's accumulator through its transition calls.
// Every fold must end with Finish or Abort so the group scope is released.
type GroupFold struct {
	rule     aggregation.AggregationRule
	def      weightedmean.Definition
	observer Observer
	scope    *weightedmean.Scope
	ctx      *weightedmean.AggContext
	acc      *weightedmean.Accumulator
	result   GroupResult
	done     bool
}

// Open starts a fold for one group selected by rule.
func (d *GroupDispatcher) Open(rule aggregation.AggregationRule) (*GroupFold, error) {
	def, err := rule.Definition()
	if err != nil {
		return nil, err
	}
	scope := weightedmean.NewScope(groupScopeName, d.observer)
	return &GroupFold{
		rule:     rule,
		def:      def,
		observer: d.observer,
		scope:    scope,
		ctx:      weightedmean.NewAggContext(scope),
	}, nil
}

// Add folds one event. Events missing the value or weight field are counted as
// skipped and never reach the accumulator.
func (f *GroupFold) Add(evt *v1.Event) error {
	if f.done {
		return fmt.Errorf("rule %q: add after finish: %w", f.rule.Name, weightedmean.ErrAccumulatorReleased)
	}

	value, okValue := aggregation.ExtractDecimal(evt.Data, f.rule.ValueField)
	weight, okWeight := aggregation.ExtractDecimal(evt.Data, f.rule.WeightField)
	if !okValue || !okWeight {
		f.result.SkippedCount++
		f.observer.RowDispatched(f.rule.Name, false)
		slog.Debug("[Dispatcher] Skipping row without value or weight",
			"rule", f.rule.Name,
			"event_id", evt.ID,
			"has_value", okValue,
			"has_weight", okWeight,
		)
		return nil
	}

	acc, err := f.def.Transition(f.ctx, f.acc, value, weight)
	if err != nil {
		return fmt.Errorf("rule %q: transition event %s: %w", f.rule.Name, evt.ID, err)
	}
	f.acc = acc
	f.result.EventCount++
	f.observer.RowDispatched(f.rule.Name, true)
	if evt.IngestSeq >= f.result.LastSeq {
		f.result.LastSeq = evt.IngestSeq
		f.result.LastEventID = evt.ID
	}
	return nil
}

// Finish finalizes the group and releases its scope.
func (f *GroupFold) Finish() (GroupResult, error) {
	if f.done {
		return GroupResult{}, fmt.Errorf("rule %q: finish twice: %w", f.rule.Name, weightedmean.ErrAccumulatorReleased)
	}
	f.done = true

	mean, err := f.def.Final(f.acc)
	if releaseErr := f.scope.Release(); err == nil && releaseErr != nil {
		err = releaseErr
	}
	if err != nil {
		return GroupResult{}, fmt.Errorf("rule %q: finalize: %w", f.rule.Name, err)
	}
	f.acc = nil
	f.result.Mean = mean
	return f.result, nil
}

// Abort releases the group scope without producing a result.
// It is a no-op after Finish.
func (f *GroupFold) Abort() {
	if f.done {
		return
	}
	f.done = true
	f.acc = nil
	_ = f.scope.Release()
}

// Fold runs a complete group over events and returns its result.
func (d *GroupDispatcher) Fold(rule aggregation.AggregationRule, events []*v1.Event) (GroupResult, error) {
	fold, err := d.Open(rule)
	if err != nil {
		return GroupResult{}, err
	}
	defer fold.Abort()

	for _, evt := range events {
		if err := fold.Add(evt); err != nil {
			return GroupResult{}, err
		}
	}
	return fold.Finish()
}
