// Package allocation holds the category allocation model: target weights,
// benchmarks and member tickers for each investment category.
package allocation

import (
	"fmt"
	"math"
	"strconv"

	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/models"
)

// targetSumTolerance is the slack allowed when checking targets sum to 100.
const targetSumTolerance = 0.01

// Model is an immutable category configuration. Build it once with NewModel
// and share the same pointer with every consumer.
type Model struct {
	categories       []models.Category
	byName           map[string]int
	byTicker         map[string]string
	defaultBenchmark string
}

// Option configures model construction
type Option func(*options)

type options struct {
	allowPartial     bool
	defaultBenchmark string
	logger           *common.Logger
}

// WithAllowPartialTargets downgrades a target sum other than 100 to a warning.
func WithAllowPartialTargets(allow bool) Option {
	return func(o *options) {
		o.allowPartial = allow
	}
}

// WithDefaultBenchmark sets the benchmark used for tickers outside every category.
func WithDefaultBenchmark(ticker string) Option {
	return func(o *options) {
		o.defaultBenchmark = models.NormalizeTicker(ticker)
	}
}

// WithLogger sets the logger used for startup warnings.
func WithLogger(logger *common.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewModel validates categories and builds the lookup tables. Any problem is
// returned as a *common.ValidationError.
func NewModel(categories []models.Category, opts ...Option) (*Model, error) {
	o := &options{
		defaultBenchmark: "SPY",
		logger:           common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := common.ValidateTicker(o.defaultBenchmark); err != nil {
		return nil, err
	}

	m := &Model{
		categories:       make([]models.Category, 0, len(categories)),
		byName:           make(map[string]int, len(categories)),
		byTicker:         make(map[string]string),
		defaultBenchmark: o.defaultBenchmark,
	}

	total := 0.0
	for i, c := range categories {
		c = normalize(c)
		if err := common.ValidateStruct(c); err != nil {
			return nil, fmt.Errorf("category %d (%s): %w", i, c.Name, err)
		}
		if c.Name == models.OtherCategory {
			return nil, &common.ValidationError{Field: "category.name", Value: c.Name, Reason: "name is reserved for unmapped tickers"}
		}
		if _, dup := m.byName[c.Name]; dup {
			return nil, &common.ValidationError{Field: "category.name", Value: c.Name, Reason: "duplicate category"}
		}
		for _, t := range c.Members {
			if owner, taken := m.byTicker[t]; taken {
				return nil, &common.ValidationError{
					Field:  "category.members",
					Value:  t,
					Reason: fmt.Sprintf("ticker already belongs to %q", owner),
				}
			}
			m.byTicker[t] = c.Name
		}
		m.byName[c.Name] = len(m.categories)
		m.categories = append(m.categories, c)
		total += c.TargetAllocationPct
	}

	if math.Abs(total-100) > targetSumTolerance {
		if !o.allowPartial {
			return nil, &common.ValidationError{
				Field:  "allocation.categories",
				Value:  strconv.FormatFloat(total, 'f', 2, 64),
				Reason: "target allocations must sum to 100",
			}
		}
		o.logger.Warn().
			Str("total_target_pct", strconv.FormatFloat(total, 'f', 2, 64)).
			Int("categories", len(m.categories)).
			Msg("Category target allocations do not sum to 100")
	}

	return m, nil
}

func normalize(c models.Category) models.Category {
	out := models.Category{
		Name:                c.Name,
		TargetAllocationPct: c.TargetAllocationPct,
		Benchmark:           models.NormalizeTicker(c.Benchmark),
		Members:             make([]string, 0, len(c.Members)),
	}
	seen := make(map[string]bool, len(c.Members))
	for _, t := range c.Members {
		t = models.NormalizeTicker(t)
		if seen[t] {
			continue
		}
		seen[t] = true
		out.Members = append(out.Members, t)
	}
	return out
}

// CategoryOf returns the category name for ticker, or "Other".
func (m *Model) CategoryOf(ticker string) string {
	if name, ok := m.byTicker[models.NormalizeTicker(ticker)]; ok {
		return name
	}
	return models.OtherCategory
}

// Categories returns a copy of every configured category in config order.
func (m *Model) Categories() []models.Category {
	out := make([]models.Category, len(m.categories))
	for i, c := range m.categories {
		out[i] = c
		out[i].Members = append([]string(nil), c.Members...)
	}
	return out
}

// Category looks up one category by name.
func (m *Model) Category(name string) (models.Category, bool) {
	idx, ok := m.byName[name]
	if !ok {
		return models.Category{}, false
	}
	c := m.categories[idx]
	c.Members = append([]string(nil), c.Members...)
	return c, true
}

// TargetFor returns the target allocation for a category; "Other" and
// unknown names target 0.
func (m *Model) TargetFor(name string) float64 {
	if idx, ok := m.byName[name]; ok {
		return m.categories[idx].TargetAllocationPct
	}
	return 0
}

// BenchmarkFor returns the benchmark of the ticker's category, or the
// default benchmark for unmapped tickers.
func (m *Model) BenchmarkFor(ticker string) string {
	if name, ok := m.byTicker[models.NormalizeTicker(ticker)]; ok {
		return m.categories[m.byName[name]].Benchmark
	}
	return m.defaultBenchmark
}

// TotalTargetPct sums the target allocations of every category.
func (m *Model) TotalTargetPct() float64 {
	total := 0.0
	for _, c := range m.categories {
		total += c.TargetAllocationPct
	}
	return total
}

// Len returns the number of configured categories.
func (m *Model) Len() int {
	return len(m.categories)
}
