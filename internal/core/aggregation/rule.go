package aggregation

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aevon-lab/wmean/internal/core/weightedmean"
	"gopkg.in/yaml.v3"
)

const (
	defaultWindowSize = "1m"
	maxDivisionPrec   = 64
)

// AggregationRule binds a registered aggregate to an event type: which data fields
// carry the value and the weight, and how wide each group's time window is.
// Rules are loaded at startup from YAML files and fingerprinted for staleness detection.
type AggregationRule struct {
	Name              string
	SourceEvent       string
	Aggregate         string // registered aggregate name; weighted_mean
	ValueField        string
	WeightField       string
	WindowSize        time.Duration
	WindowLabel       string // canonical label of WindowSize, e.g. "1m"
	DivisionPrecision *int32 // minimum fractional digits of the result; nil uses the aggregate's default
	Fingerprint       string // SHA-256 of the raw YAML file; computed at load time
}

// Definition returns the aggregate entry points configured for this rule.
// A rule without DivisionPrecision keeps the registered definition's precision.
func (r AggregationRule) Definition() (weightedmean.Definition, error) {
	def, ok := weightedmean.Lookup(r.Aggregate)
	if !ok {
		return weightedmean.Definition{}, fmt.Errorf("rule %q: unknown aggregate %q", r.Name, r.Aggregate)
	}
	if r.DivisionPrecision == nil {
		return def, nil
	}
	return def.WithPrecision(*r.DivisionPrecision), nil
}

// rawRule is the on-disk YAML shape.
type rawRule struct {
	Name              string `yaml:"name"`
	SourceEvent       string `yaml:"source_event"`
	Aggregate         string `yaml:"aggregate"`          // optional; defaults to weighted_mean
	ValueField        string `yaml:"value_field"`        // event data field holding the value
	WeightField       string `yaml:"weight_field"`       // event data field holding the weight
	WindowSize        string `yaml:"window_size"`        // optional; defaults to 1m
	DivisionPrecision *int32 `yaml:"division_precision"` // optional; minimum fractional digits of a result
}

// RuleRepository defines the interface for loading aggregation rules.
type RuleRepository interface {
	// Get returns the rule with the given name, or an error if not found.
	Get(ctx context.Context, name string) (*AggregationRule, error)

	// List returns all loaded rules, optionally filtered by source event type.
	List(ctx context.Context, sourceEvent string) ([]AggregationRule, error)

	// GetRules returns all rules as a slice (for batch processing).
	GetRules() []AggregationRule
}

// FileSystemRuleRepository loads aggregation rules from *.yaml files in a directory.
// Each file contains exactly one rule at the top level. Rules are loaded once at
// startup and cached in memory.
type FileSystemRuleRepository struct {
	dir   string
	rules map[string]AggregationRule // keyed by Name
}

// NewFileSystemRuleRepository creates a new repository and eagerly loads all rules
// from dir. Returns an error if any rule file is malformed or invalid.
func NewFileSystemRuleRepository(dir string) (*FileSystemRuleRepository, error) {
	repo := &FileSystemRuleRepository{
		dir:   dir,
		rules: make(map[string]AggregationRule),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemRuleRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil // no rules directory, zero rules configured
	}
	if err != nil {
		return fmt.Errorf("aggregation rule dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("aggregation rule path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading aggregation rule dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading rule file %s: %w", path, err)
		}

		var raw rawRule
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing rule file %s: %w", path, err)
		}
		if raw.Name == "" {
			continue // skip empty / comment-only files
		}

		rule, err := compileRule(raw)
		if err != nil {
			return err
		}
		rule.Fingerprint = fmt.Sprintf("%x", sha256.Sum256(data))

		if _, exists := r.rules[rule.Name]; exists {
			return fmt.Errorf("rule %q: duplicate rule name (check multiple YAML files)", rule.Name)
		}
		r.rules[rule.Name] = rule
	}
	return nil
}

func compileRule(raw rawRule) (AggregationRule, error) {
	if raw.SourceEvent == "" {
		return AggregationRule{}, fmt.Errorf("rule %q: source_event must not be empty", raw.Name)
	}
	if raw.ValueField == "" {
		return AggregationRule{}, fmt.Errorf("rule %q: value_field must not be empty", raw.Name)
	}
	if raw.WeightField == "" {
		return AggregationRule{}, fmt.Errorf("rule %q: weight_field must not be empty", raw.Name)
	}

	aggregate := raw.Aggregate
	if aggregate == "" {
		aggregate = weightedmean.DefinitionName
	}
	def, ok := weightedmean.Lookup(aggregate)
	if !ok {
		return AggregationRule{}, fmt.Errorf("rule %q: unsupported aggregate %q", raw.Name, aggregate)
	}

	windowSize := raw.WindowSize
	if windowSize == "" {
		windowSize = defaultWindowSize
	}
	window, err := ParseWindowSize(windowSize)
	if err != nil {
		return AggregationRule{}, fmt.Errorf("rule %q: %w", raw.Name, err)
	}

	precision := def.Precision
	if raw.DivisionPrecision != nil {
		precision = *raw.DivisionPrecision
	}
	if precision < 0 || precision > maxDivisionPrec {
		return AggregationRule{}, fmt.Errorf("rule %q: division_precision must be between 0 and %d, got %d",
			raw.Name, maxDivisionPrec, precision)
	}

	return AggregationRule{
		Name:              raw.Name,
		SourceEvent:       raw.SourceEvent,
		Aggregate:         aggregate,
		ValueField:        raw.ValueField,
		WeightField:       raw.WeightField,
		WindowSize:        window.Size,
		WindowLabel:       WindowLabel(window.Size),
		DivisionPrecision: &precision,
	}, nil
}

// Get returns the rule with the given name, or an error if not found.
func (r *FileSystemRuleRepository) Get(_ context.Context, name string) (*AggregationRule, error) {
	rule, ok := r.rules[name]
	if !ok {
		return nil, fmt.Errorf("aggregation rule %q not found", name)
	}
	return &rule, nil
}

// List returns all loaded rules, optionally filtered by source event type.
func (r *FileSystemRuleRepository) List(_ context.Context, sourceEvent string) ([]AggregationRule, error) {
	var out []AggregationRule
	for _, rule := range r.rules {
		if sourceEvent != "" && rule.SourceEvent != sourceEvent {
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

// GetRules returns all rules as a slice (for batch processing).
func (r *FileSystemRuleRepository) GetRules() []AggregationRule {
	rules := make([]AggregationRule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	return rules
}

// RulesByWindow groups rules by window label. Each label is aggregated by its own
// scheduler with its own checkpoint. Labels are returned sorted.
func RulesByWindow(rules []AggregationRule) ([]string, map[string][]AggregationRule) {
	byWindow := make(map[string][]AggregationRule)
	for _, rule := range rules {
		label := rule.WindowLabel
		if label == "" {
			label = WindowLabel(rule.WindowSize)
		}
		byWindow[label] = append(byWindow[label], rule)
	}

	labels := make([]string, 0, len(byWindow))
	for label := range byWindow {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, byWindow
}
