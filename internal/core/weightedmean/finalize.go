package weightedmean

import "github.com/shopspring/decimal"

const (
	// minSignificantDigits is the number of significant digits every non-terminating
	// quotient carries, whatever its magnitude.
	minSignificantDigits = 16

	// maxResultScale bounds the fractional digits of a result.
	maxResultScale = 1000
)

// Finalize is FinalizeWithPrecision with a minimum of decimal.DivisionPrecision fractional digits.
func Finalize(acc *Accumulator) (decimal.Decimal, error) {
	return FinalizeWithPrecision(acc, int32(decimal.DivisionPrecision))
}

// FinalizeWithPrecision computes running_sum ÷ running_weight and releases acc.
//
// An absent accumulator (no rows) yields zero. A zero running weight also yields
// zero instead of dividing. places is a lower bound on the fractional digits of the
// result: the scale is raised to keep every digit of the inputs and at least
// minSignificantDigits significant digits, and only quotients that do not terminate
// at that scale are rounded half-up. acc must not be used after this call.
func FinalizeWithPrecision(acc *Accumulator, places int32) (decimal.Decimal, error) {
	if acc == nil {
		return Zero(), nil
	}
	if acc.scope.Released() {
		return Zero(), ErrAccumulatorReleased
	}

	var total decimal.Decimal
	if isZero(acc.runningWeight) {
		total = Zero()
	} else {
		scale := divisionScale(acc.runningSum, acc.runningWeight, places)
		total = acc.runningSum.DivRound(acc.runningWeight, scale)
	}

	// decimal.Decimal is a value; total does not reference scope-owned state.
	if err := acc.release(); err != nil {
		return Zero(), err
	}
	return total, nil
}

// divisionScale picks the fractional digits of sum ÷ weight: the largest of places,
// the input scales, and the scale giving minSignificantDigits significant digits
// for the estimated quotient magnitude.
func divisionScale(sum, weight decimal.Decimal, places int32) int32 {
	scale := places

	// A weight with a positive exponent (e.g. 3E1) drops that many digits of the
	// value's scale from the product, so they are added back.
	inputScale := fractionalDigits(sum)
	if exp := weight.Exponent(); exp > 0 {
		inputScale += exp
	}
	scale = max(scale, inputScale, fractionalDigits(weight))

	if !sum.IsZero() {
		quotientMagnitude := magnitude(sum) - magnitude(weight)
		scale = max(scale, minSignificantDigits-quotientMagnitude)
	}

	return min(scale, maxResultScale)
}

// fractionalDigits is the number of digits after the decimal point in d's representation.
func fractionalDigits(d decimal.Decimal) int32 {
	return max(-d.Exponent(), 0)
}

// magnitude is the power of ten of d's most significant digit.
func magnitude(d decimal.Decimal) int32 {
	return int32(d.NumDigits()) + d.Exponent() - 1
}
