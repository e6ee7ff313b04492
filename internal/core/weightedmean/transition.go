package weightedmean

import "github.com/shopspring/decimal"

// Transition folds one (value, weight) row into acc and returns the handle to
// thread into the next call for the same group.
//
// A nil acc creates the accumulator. The arithmetic runs with the accumulator's
// scope active on ctx; the previously active scope is restored on return.
// Both value and weight must be non-null; the host filters null rows before dispatch.
func Transition(ctx *AggContext, acc *Accumulator, value, weight decimal.Decimal) (*Accumulator, error) {
	groupScope, err := checkCallContext(ctx)
	if err != nil {
		return nil, err
	}

	if acc == nil {
		acc, err = create(groupScope)
		if err != nil {
			return nil, err
		}
	} else if acc.scope.Released() {
		return nil, ErrAccumulatorReleased
	}

	prev := ctx.switchTo(acc.scope)
	defer ctx.switchTo(prev)

	contribution := value.Mul(weight)
	acc.runningSum = acc.runningSum.Add(contribution)
	acc.runningWeight = acc.runningWeight.Add(weight)

	return acc, nil
}
