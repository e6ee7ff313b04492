package metrics

import (
	"testing"

	"github.com/aevon-lab/wmean/internal/core/weightedmean"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatheredValue returns the value of the sample of family name whose labels match.
func gatheredValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, m := range family.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestCollector_ScopeLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	group := weightedmean.NewScope("AggregateGroup", c)
	ctx := weightedmean.NewAggContext(group)
	acc, err := weightedmean.Transition(ctx, nil, decimal.NewFromInt(10), decimal.NewFromInt(1))
	require.NoError(t, err)

	assert.Equal(t, float64(2), gatheredValue(t, reg, "wmean_scopes_live", nil))

	_, err = weightedmean.Finalize(acc)
	require.NoError(t, err)
	require.NoError(t, group.Release())

	assert.Equal(t, float64(0), gatheredValue(t, reg, "wmean_scopes_live", nil))
	assert.Equal(t, float64(1), gatheredValue(t, reg, "wmean_scopes_created_total",
		map[string]string{"scope": "WeightedMeanState"}))
	assert.Equal(t, float64(1), gatheredValue(t, reg, "wmean_scopes_released_total",
		map[string]string{"scope": "AggregateGroup"}))
}

func TestCollector_RowsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RowDispatched("vwap", true)
	c.RowDispatched("vwap", true)
	c.RowDispatched("vwap", false)

	assert.Equal(t, float64(2), gatheredValue(t, reg, "wmean_rows_total",
		map[string]string{"rule": "vwap", "outcome": OutcomeAccepted}))
	assert.Equal(t, float64(1), gatheredValue(t, reg, "wmean_rows_total",
		map[string]string{"rule": "vwap", "outcome": OutcomeSkipped}))
}

func TestCollector_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	assert.Panics(t, func() { NewCollector(reg) })
}
