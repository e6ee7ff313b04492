// Package metrics exposes aggregation scope and row counters to Prometheus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "wmean"

// Row outcomes reported on wmean_rows_total.
const (
	OutcomeAccepted = "accepted"
	OutcomeSkipped  = "skipped"
)

// Collector records scope lifecycle and row dispatch counts.
// It satisfies the aggregation observer interface.
type Collector struct {
	scopesCreated  *prometheus.CounterVec
	scopesReleased *prometheus.CounterVec
	scopesLive     prometheus.Gauge
	rows           *prometheus.CounterVec
}

// NewCollector creates the collectors and registers them on reg.
// Panics if any of them is already registered, like prometheus.MustRegister.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		scopesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scopes_created_total",
				Help:      "Aggregation scopes opened, by scope name.",
			},
			[]string{"scope"},
		),
		scopesReleased: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scopes_released_total",
				Help:      "Aggregation scopes released, by scope name.",
			},
			[]string{"scope"},
		),
		scopesLive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scopes_live",
				Help:      "Aggregation scopes opened and not yet released.",
			},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Rows dispatched to an aggregate, by rule and outcome.",
			},
			[]string{"rule", "outcome"},
		),
	}

	reg.MustRegister(c.scopesCreated, c.scopesReleased, c.scopesLive, c.rows)
	return c
}

func (c *Collector) ScopeCreated(name string) {
	c.scopesCreated.WithLabelValues(name).Inc()
	c.scopesLive.Inc()
}

func (c *Collector) ScopeReleased(name string) {
	c.scopesReleased.WithLabelValues(name).Inc()
	c.scopesLive.Dec()
}

func (c *Collector) RowDispatched(rule string, accepted bool) {
	outcome := OutcomeSkipped
	if accepted {
		outcome = OutcomeAccepted
	}
	c.rows.WithLabelValues(rule, outcome).Inc()
}
