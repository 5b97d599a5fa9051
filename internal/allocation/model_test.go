package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/models"
)

func testCategories() []models.Category {
	return []models.Category{
		{Name: "Large-Cap Anchors", TargetAllocationPct: 20, Benchmark: "SPY", Members: []string{"AAPL", "MSFT", "NVDA"}},
		{Name: "Growth", TargetAllocationPct: 45, Benchmark: "QQQ", Members: []string{"GOOGL", "amzn"}},
		{Name: "Emerging Markets", TargetAllocationPct: 35, Benchmark: "EEM", Members: []string{"TSM"}},
	}
}

func TestNewModel_Valid(t *testing.T) {
	m, err := NewModel(testCategories())
	require.NoError(t, err)

	assert.Equal(t, 3, m.Len())
	assert.InDelta(t, 100.0, m.TotalTargetPct(), 1e-9)
	assert.Equal(t, "Large-Cap Anchors", m.CategoryOf("AAPL"))
	assert.Equal(t, "Growth", m.CategoryOf("amzn"))
	assert.Equal(t, models.OtherCategory, m.CategoryOf("XOM"))
	assert.Equal(t, 45.0, m.TargetFor("Growth"))
	assert.Equal(t, 0.0, m.TargetFor(models.OtherCategory))
}

func TestNewModel_PreservesConfigOrder(t *testing.T) {
	m, err := NewModel(testCategories())
	require.NoError(t, err)

	var names []string
	for _, c := range m.Categories() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Large-Cap Anchors", "Growth", "Emerging Markets"}, names)
}

func TestModel_CategoriesReturnsCopy(t *testing.T) {
	m, err := NewModel(testCategories())
	require.NoError(t, err)

	cats := m.Categories()
	cats[0].Members[0] = "ZZZ"
	cats[0].TargetAllocationPct = 99

	again, ok := m.Category("Large-Cap Anchors")
	require.True(t, ok)
	assert.Equal(t, "AAPL", again.Members[0])
	assert.Equal(t, 20.0, again.TargetAllocationPct)
}

func TestModel_BenchmarkFor(t *testing.T) {
	m, err := NewModel(testCategories(), WithDefaultBenchmark("vt"))
	require.NoError(t, err)

	assert.Equal(t, "SPY", m.BenchmarkFor("MSFT"))
	assert.Equal(t, "QQQ", m.BenchmarkFor("GOOGL"))
	assert.Equal(t, "VT", m.BenchmarkFor("XOM"))
}

func TestNewModel_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]models.Category) []models.Category
		field  string
	}{
		{
			name: "negative target",
			mutate: func(c []models.Category) []models.Category {
				c[0].TargetAllocationPct = -5
				return c
			},
			field: "TargetAllocationPct",
		},
		{
			name: "target above 100",
			mutate: func(c []models.Category) []models.Category {
				c[0].TargetAllocationPct = 120
				return c
			},
			field: "TargetAllocationPct",
		},
		{
			name: "ticker in two categories",
			mutate: func(c []models.Category) []models.Category {
				c[1].Members = append(c[1].Members, "AAPL")
				return c
			},
			field: "category.members",
		},
		{
			name: "duplicate category name",
			mutate: func(c []models.Category) []models.Category {
				c[2].Name = "Growth"
				return c
			},
			field: "category.name",
		},
		{
			name: "reserved name",
			mutate: func(c []models.Category) []models.Category {
				c[2].Name = models.OtherCategory
				return c
			},
			field: "category.name",
		},
		{
			name: "malformed member",
			mutate: func(c []models.Category) []models.Category {
				c[2].Members = []string{"BAD TICKER"}
				return c
			},
			field: "Members",
		},
		{
			name: "targets do not sum to 100",
			mutate: func(c []models.Category) []models.Category {
				c[2].TargetAllocationPct = 27
				return c
			},
			field: "allocation.categories",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModel(tt.mutate(testCategories()))
			require.Error(t, err)
			assert.True(t, common.IsValidation(err), "expected ValidationError, got %T", err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestNewModel_AllowPartialTargets(t *testing.T) {
	cats := testCategories()
	cats[2].TargetAllocationPct = 27 // sums to 92

	m, err := NewModel(cats, WithAllowPartialTargets(true))
	require.NoError(t, err)
	assert.InDelta(t, 92.0, m.TotalTargetPct(), 1e-9)
}

func TestNewModel_DuplicateMemberWithinCategoryCollapses(t *testing.T) {
	cats := testCategories()
	cats[0].Members = []string{"AAPL", "aapl", "MSFT"}

	m, err := NewModel(cats)
	require.NoError(t, err)
	c, ok := m.Category("Large-Cap Anchors")
	require.True(t, ok)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Members)
}
