package report

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

var (
	gainColor = drawing.ColorFromHex("16a34a") // green-600
	lossColor = drawing.ColorFromHex("dc2626") // red-600
)

// RenderReturnsChart renders a PNG bar chart of IRR per period for one scope.
// Periods without sufficient data are left out. Returns raw PNG bytes.
func RenderReturnsChart(title string, scope *models.ScopeReturns) ([]byte, error) {
	if scope == nil {
		return nil, fmt.Errorf("no returns to chart")
	}

	var bars []chart.Value
	lo, hi := 0.0, 0.0
	for _, p := range scope.Periods {
		if !p.HasSufficientData || p.IRR == nil {
			continue
		}
		pct := *p.IRR * 100
		color := gainColor
		if pct < 0 {
			color = lossColor
		}
		bars = append(bars, chart.Value{
			Label: string(p.Period),
			Value: pct,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
		lo, hi = math.Min(lo, pct), math.Max(hi, pct)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no period has sufficient data to chart")
	}
	if lo == hi {
		hi = lo + 1
	}

	graph := chart.BarChart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth:     60,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.1f%%", f)
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
