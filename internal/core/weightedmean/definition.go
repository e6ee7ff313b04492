package weightedmean

import "github.com/shopspring/decimal"

// DefinitionName is the registered name of the weighted mean aggregate.
const DefinitionName = "weighted_mean"

// Aggregate is the set of entry points a host binds as one aggregate.
type Aggregate interface {
	// Transition folds one row into the group state.
	Transition(ctx *AggContext, acc *Accumulator, value, weight decimal.Decimal) (*Accumulator, error)

	// Final produces the group result and releases the state.
	Final(acc *Accumulator) (decimal.Decimal, error)

	// Zero is the result for a group that never saw a row.
	Zero() decimal.Decimal
}

// Definition binds the weighted mean entry points with a division precision.
type Definition struct {
	Name string

	// Precision is the minimum number of fractional digits of a result.
	Precision int32
}

// Transition folds one row; see Transition.
func (d Definition) Transition(ctx *AggContext, acc *Accumulator, value, weight decimal.Decimal) (*Accumulator, error) {
	return Transition(ctx, acc, value, weight)
}

// Final finalizes acc with at least d.Precision fractional digits; see FinalizeWithPrecision.
func (d Definition) Final(acc *Accumulator) (decimal.Decimal, error) {
	return FinalizeWithPrecision(acc, d.Precision)
}

// Zero returns the result of an empty group.
func (d Definition) Zero() decimal.Decimal {
	return Zero()
}

// WithPrecision returns a copy of d whose results keep at least places fractional digits.
func (d Definition) WithPrecision(places int32) Definition {
	d.Precision = places
	return d
}

// Definitions is the registry of aggregates a rule may name.
var Definitions = map[string]Definition{
	DefinitionName: {Name: DefinitionName, Precision: int32(decimal.DivisionPrecision)},
}

// Lookup returns the registered definition for name.
func Lookup(name string) (Definition, bool) {
	d, ok := Definitions[name]
	return d, ok
}

// Register adds d to the registry, replacing any definition with the same name.
// Not safe for concurrent use; register during startup.
func Register(d Definition) {
	Definitions[d.Name] = d
}
