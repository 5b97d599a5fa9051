package portfolio

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/momentum/internal/models"
)

// RenderAllocationChart renders a PNG bar chart of current allocation per
// category. Under-allocated categories are amber, the rest blue; each label
// carries the current and target percentages. Returns raw PNG bytes.
func RenderAllocationChart(categories []models.CategoryAllocation) ([]byte, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("need at least 1 category, got 0")
	}

	bars := make([]chart.Value, 0, len(categories))
	top := 10.0
	for _, c := range categories {
		fill := drawing.ColorFromHex("2563eb") // blue-600
		if c.UnderAllocated() {
			fill = drawing.ColorFromHex("f59e0b") // amber-500
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s %.1f/%.0f", c.Category, c.CurrentAllocationPct, c.TargetAllocationPct),
			Value: c.CurrentAllocationPct,
			Style: chart.Style{
				FillColor:   fill,
				StrokeColor: fill,
				StrokeWidth: 1,
			},
		})
		if c.CurrentAllocationPct > top {
			top = c.CurrentAllocationPct
		}
		if c.TargetAllocationPct > top {
			top = c.TargetAllocationPct
		}
	}

	graph := chart.BarChart{
		Title:    "Category Allocation (current/target %)",
		Width:    160*len(bars) + 120,
		Height:   420,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
