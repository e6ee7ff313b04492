package weightedmean

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// stateScopeName names the scope that owns one accumulator.
const stateScopeName = "WeightedMeanState"

var (
	// ErrNotAggregateContext is returned when Transition runs without a per-group dispatch context.
	ErrNotAggregateContext = errors.New("weighted mean transition called in non-aggregate context")

	// ErrAccumulatorReleased is returned when an accumulator is used after Finalize.
	ErrAccumulatorReleased = errors.New("weighted mean accumulator already released")
)

// Accumulator is the running state of one group: Σ(value×weight) and Σ(weight).
// A nil *Accumulator is the absent state, meaning no row has been seen for the group.
// The host treats it as an opaque handle.
type Accumulator struct {
	runningSum    decimal.Decimal
	runningWeight decimal.Decimal
	scope         *Scope
}

// create opens the accumulator's own scope under the group scope and zeroes both sums.
func create(groupScope *Scope) (*Accumulator, error) {
	scope, err := groupScope.NewChild(stateScopeName)
	if err != nil {
		return nil, fmt.Errorf("create accumulator: %w", err)
	}
	return &Accumulator{
		runningSum:    Zero(),
		runningWeight: Zero(),
		scope:         scope,
	}, nil
}

// release frees the accumulator's scope. Called once, by the finalizer.
func (a *Accumulator) release() error {
	if err := a.scope.Release(); err != nil {
		return ErrAccumulatorReleased
	}
	return nil
}

// RunningSum returns Σ(value×weight) over the rows folded so far.
func (a *Accumulator) RunningSum() decimal.Decimal {
	return a.runningSum
}

// RunningWeight returns Σ(weight) over the rows folded so far.
func (a *Accumulator) RunningWeight() decimal.Decimal {
	return a.runningWeight
}

// Scope returns the scope owning the accumulator.
func (a *Accumulator) Scope() *Scope {
	return a.scope
}

// Zero returns an exact decimal zero.
func Zero() decimal.Decimal {
	return decimal.NewFromInt(0)
}

// isZero compares exactly; there is no epsilon for decimal values.
func isZero(d decimal.Decimal) bool {
	return d.Equal(Zero())
}
