package weightedmean

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	value  string
	weight string
}

// countingObserver records every scope lifecycle event by name.
type countingObserver struct {
	created  map[string]int
	released map[string]int
	events   []string
}

func newCountingObserver() *countingObserver {
	return &countingObserver{created: map[string]int{}, released: map[string]int{}}
}

func (o *countingObserver) ScopeCreated(name string) {
	o.created[name]++
	o.events = append(o.events, "create:"+name)
}

func (o *countingObserver) ScopeReleased(name string) {
	o.released[name]++
	o.events = append(o.events, "release:"+name)
}

func foldRows(t *testing.T, ctx *AggContext, rows []row) *Accumulator {
	t.Helper()
	var acc *Accumulator
	for _, r := range rows {
		var err error
		acc, err = Transition(ctx, acc, decimal.RequireFromString(r.value), decimal.RequireFromString(r.weight))
		require.NoError(t, err)
	}
	return acc
}

func newGroup() *AggContext {
	return NewAggContext(NewScope("group", nil))
}

func TestFinalize_AbsentIsZero(t *testing.T) {
	got, err := Finalize(nil)
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.Zero), "got %s", got)
}

func TestWeightedMean_Results(t *testing.T) {
	tests := []struct {
		name string
		rows []row
		want string
	}{
		{
			name: "single row returns its value",
			rows: []row{{"42.5", "7"}},
			want: "42.5",
		},
		{
			name: "weighted",
			rows: []row{{"10", "1"}, {"20", "3"}},
			want: "17.5",
		},
		{
			name: "cancellation",
			rows: []row{{"5", "2"}, {"-5", "3"}},
			want: "-1",
		},
		{
			name: "all weights zero",
			rows: []row{{"3", "0"}, {"-8.25", "0"}, {"1000", "0"}},
			want: "0",
		},
		{
			name: "weights cancel to zero",
			rows: []row{{"3", "2"}, {"4", "-2"}},
			want: "0",
		},
		{
			name: "precision preserved",
			rows: []row{{"1.0000000001", "3"}},
			want: "1.0000000001",
		},
		{
			name: "binary-unfriendly fractions",
			rows: []row{{"0.1", "1"}, {"0.2", "1"}},
			want: "0.15",
		},
		{
			name: "single row beyond sixteen fractional digits",
			rows: []row{{"1.00000000000000000001", "1"}},
			want: "1.00000000000000000001",
		},
		{
			name: "single row with long fraction and integer weight",
			rows: []row{{"123.456789012345678901", "3"}},
			want: "123.456789012345678901",
		},
		{
			name: "tiny magnitude single row",
			rows: []row{{"0.00000000000000000001", "1"}},
			want: "0.00000000000000000001",
		},
		{
			name: "single row with fractional weight",
			rows: []row{{"-7.125", "0.0003"}},
			want: "-7.125",
		},
		{
			name: "single row with exponent weight",
			rows: []row{{"1.5", "3E2"}},
			want: "1.5",
		},
		{
			name: "tiny magnitude keeps significant digits",
			rows: []row{{"0.00000000000000000001", "1"}, {"0", "2"}},
			want: "0.000000000000000000003333333333333333",
		},
		{
			name: "large magnitude keeps significant digits",
			rows: []row{{"10000000000000000000", "1"}, {"0", "2"}},
			want: "3333333333333333333.3333333333333333",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			acc := foldRows(t, newGroup(), tc.rows)
			got, err := Finalize(acc)
			require.NoError(t, err)
			want := decimal.RequireFromString(tc.want)
			require.True(t, want.Equal(got), "want=%s got=%s", want, got)
		})
	}
}

func TestTransition_RunningSums(t *testing.T) {
	ctx := newGroup()
	acc := foldRows(t, ctx, []row{{"5", "2"}, {"-5", "3"}})

	assert.Equal(t, "-5", acc.RunningSum().String())
	assert.Equal(t, "5", acc.RunningWeight().String())
}

func TestTransition_CreatesZeroedAccumulator(t *testing.T) {
	acc, err := Transition(newGroup(), nil, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.True(t, acc.RunningSum().IsZero())
	assert.True(t, acc.RunningWeight().IsZero())

	// zero-weight present state is distinct from absent
	got, err := Finalize(acc)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestTransition_ReturnsSameHandle(t *testing.T) {
	ctx := newGroup()
	first, err := Transition(ctx, nil, decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)
	second, err := Transition(ctx, first, decimal.NewFromInt(2), decimal.NewFromInt(1))
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestTransition_OrderIndependent(t *testing.T) {
	rows := []row{
		{"10.125", "3"},
		{"-4.5", "0.75"},
		{"99.0001", "12"},
		{"0", "5"},
		{"3.333333", "1.5"},
		{"-17", "2.25"},
	}

	baseline, err := Finalize(foldRows(t, newGroup(), rows))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := append([]row(nil), rows...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Finalize(foldRows(t, newGroup(), shuffled))
		require.NoError(t, err)
		require.True(t, baseline.Equal(got), "permutation %d: want=%s got=%s", i, baseline, got)
	}
}

func TestTransition_RequiresAggregateContext(t *testing.T) {
	_, err := Transition(nil, nil, decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrNotAggregateContext)

	_, err = Transition(&AggContext{}, nil, decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrNotAggregateContext)

	scope := NewScope("group", nil)
	ctx := NewAggContext(scope)
	require.NoError(t, scope.Release())
	_, err = Transition(ctx, nil, decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrNotAggregateContext)
}

func TestTransition_RestoresActiveScope(t *testing.T) {
	ctx := newGroup()
	acc, err := Transition(ctx, nil, decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)

	require.Same(t, ctx.GroupScope(), ctx.Current())
	require.NotSame(t, ctx.GroupScope(), acc.Scope())
	require.Equal(t, stateScopeName, acc.Scope().Name())
}

func TestFinalize_ReleasesScopeExactlyOnce(t *testing.T) {
	obs := newCountingObserver()
	group := NewScope("group", obs)
	ctx := NewAggContext(group)

	var acc *Accumulator
	var err error
	for i := 1; i <= 3; i++ {
		acc, err = Transition(ctx, acc, decimal.NewFromInt(int64(i)), decimal.NewFromInt(1))
		require.NoError(t, err)
		require.Zero(t, obs.released[stateScopeName], "state released before last transition")
	}

	got, err := Finalize(acc)
	require.NoError(t, err)
	require.Equal(t, "2", got.String())
	require.Equal(t, 1, obs.created[stateScopeName])
	require.Equal(t, 1, obs.released[stateScopeName])

	// Tearing down the group must not release the state a second time.
	require.NoError(t, group.Release())
	require.Equal(t, 1, obs.released[stateScopeName])
	require.Equal(t, 1, obs.released["group"])
	require.Equal(t, []string{
		"create:group",
		"create:" + stateScopeName,
		"release:" + stateScopeName,
		"release:group",
	}, obs.events)
}

func TestFinalize_UseAfterRelease(t *testing.T) {
	ctx := newGroup()
	acc := foldRows(t, ctx, []row{{"1", "1"}})

	_, err := Finalize(acc)
	require.NoError(t, err)

	_, err = Finalize(acc)
	require.ErrorIs(t, err, ErrAccumulatorReleased)

	_, err = Transition(ctx, acc, decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrAccumulatorReleased)
}

func TestFinalizeWithPrecision_Rounds(t *testing.T) {
	tests := []struct {
		name   string
		rows   []row
		places int32
		want   string
	}{
		{
			name:   "places above the significant digit floor",
			rows:   []row{{"1", "1"}, {"0", "2"}},
			places: 20,
			want:   "0.33333333333333333333",
		},
		{
			name:   "places below the floor keep sixteen significant digits",
			rows:   []row{{"2", "1"}, {"0", "2"}},
			places: 2,
			want:   "0.6666666666666667",
		},
		{
			name:   "zero places never drop input digits",
			rows:   []row{{"0.0000000000000000000123", "4"}},
			places: 0,
			want:   "0.0000000000000000000123",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			acc := foldRows(t, newGroup(), tc.rows)
			got, err := FinalizeWithPrecision(acc, tc.places)
			require.NoError(t, err)
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestDivisionScale(t *testing.T) {
	d := decimal.RequireFromString
	assert.Equal(t, int32(16), divisionScale(d("1"), d("3"), 16))
	assert.Equal(t, int32(15), divisionScale(d("10"), d("3"), 0))
	assert.Equal(t, int32(20), divisionScale(d("3.00000000000000000003"), d("3"), 16))
	assert.Equal(t, int32(36), divisionScale(d("0.00000000000000000001"), d("1"), 16))
	assert.Equal(t, int32(16), divisionScale(d("45E1"), d("3E2"), 0))
	assert.Equal(t, int32(maxResultScale), divisionScale(d("1E-2000"), d("1"), 0))
}

func TestScope_ReleaseCascadesToLiveChildren(t *testing.T) {
	obs := newCountingObserver()
	group := NewScope("group", obs)
	ctx := NewAggContext(group)
	acc := foldRows(t, ctx, []row{{"1", "1"}})

	require.NoError(t, group.Release())
	require.True(t, acc.Scope().Released())
	require.Equal(t, 1, obs.released[stateScopeName])

	err := group.Release()
	require.ErrorIs(t, err, ErrScopeReleased)

	_, err = group.NewChild("late")
	require.ErrorIs(t, err, ErrScopeReleased)
}

func TestDefinition_Registry(t *testing.T) {
	def, ok := Lookup(DefinitionName)
	require.True(t, ok)
	require.Equal(t, DefinitionName, def.Name)
	require.Equal(t, int32(decimal.DivisionPrecision), def.Precision)

	_, ok = Lookup("avg")
	require.False(t, ok)

	var agg Aggregate = def.WithPrecision(2)
	ctx := newGroup()
	acc, err := agg.Transition(ctx, nil, decimal.NewFromInt(2), decimal.NewFromInt(3))
	require.NoError(t, err)
	acc, err = agg.Transition(ctx, acc, decimal.NewFromInt(1), decimal.NewFromInt(0))
	require.NoError(t, err)
	acc, err = agg.Transition(ctx, acc, decimal.NewFromInt(0), decimal.NewFromInt(6))
	require.NoError(t, err)

	got, err := agg.Final(acc)
	require.NoError(t, err)
	require.Equal(t, "0.6666666666666667", got.String())
	require.True(t, agg.Zero().IsZero())

	// WithPrecision must not mutate the registry entry.
	again, _ := Lookup(DefinitionName)
	require.Equal(t, int32(decimal.DivisionPrecision), again.Precision)
}

func TestDefinition_Register(t *testing.T) {
	Register(Definition{Name: "weighted_mean_cents", Precision: 2})
	t.Cleanup(func() { delete(Definitions, "weighted_mean_cents") })

	def, ok := Lookup("weighted_mean_cents")
	require.True(t, ok)
	require.Equal(t, int32(2), def.Precision)

	ctx := newGroup()
	acc, err := def.Transition(ctx, nil, decimal.NewFromInt(1), decimal.NewFromInt(3))
	require.NoError(t, err)
	got, err := def.Final(acc)
	require.NoError(t, err)
	require.Equal(t, "1", got.String())
}
