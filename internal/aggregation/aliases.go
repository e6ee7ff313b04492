package aggregation

import core "github.com/aevon-lab/wmean/internal/core/aggregation"

// Re-export core aggregation types for package-level compatibility.
type AggregateKey = core.AggregateKey
type AggregateResult = core.AggregateResult
type AggregationRule = core.AggregationRule
type WindowSpec = core.WindowSpec
type RuleRepository = core.RuleRepository

var (
	BucketFor                   = core.BucketFor
	ParseWindowSize             = core.ParseWindowSize
	WindowLabel                 = core.WindowLabel
	RulesByWindow               = core.RulesByWindow
	NewFileSystemRuleRepository = core.NewFileSystemRuleRepository
)
