package projection

import (
	"time"

	"github.com/shopspring/decimal"
)

// Granularities accepted by the query API.
const (
	GranularityWindow = "window" // stored per-window results of the rule
	GranularityTotal  = "total"  // one mean over the whole range
	GranularityHour   = "1h"
	GranularityDay    = "1d"
)

// Value sources reported per data point.
const (
	SourceStored = "stored"
	SourceLive   = "live"
)

// WeightedMeanQueryRequest represents the query parameters for fetching weighted means.
type WeightedMeanQueryRequest struct {
	PrincipalID string    `uri:"principal_id" binding:"required"`
	Rule        string    `form:"rule" binding:"required"`
	Start       time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End         time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Granularity string    `form:"granularity"` // default: "window"
}

// WeightedMeanValue is one data point of the response.
type WeightedMeanValue struct {
	WindowStart  time.Time       `json:"window_start"`
	WindowEnd    time.Time       `json:"window_end"`
	Mean         decimal.Decimal `json:"mean"`
	EventCount   int64           `json:"event_count"`
	SkippedCount int64           `json:"skipped_count"`
	Source       string          `json:"source"`

	// RuleChanged is set when a stored result was computed under a different rule file.
	RuleChanged bool `json:"rule_changed,omitempty"`
}

// WeightedMeanQueryResponse represents the response for a weighted mean query.
type WeightedMeanQueryResponse struct {
	PrincipalID      string              `json:"principal_id"`
	Rule             string              `json:"rule"`
	Aggregate        string              `json:"aggregate"`
	ValueField       string              `json:"value_field"`
	WeightField      string              `json:"weight_field"`
	Start            time.Time           `json:"start"`
	End              time.Time           `json:"end"`
	Granularity      string              `json:"granularity"`
	DataThrough      time.Time           `json:"data_through"`
	StalenessSeconds int                 `json:"staleness_seconds"`
	Values           []WeightedMeanValue `json:"values"`
}
