package cmd

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/vaultstats/chart"
)

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁▄█", sparkline([]float64{0, 0.5, 1}))
	assert.Equal(t, "▁ █", sparkline([]float64{1, math.NaN(), 2}))
	assert.Equal(t, "▅▅", sparkline([]float64{3, 3}))
	assert.Equal(t, "   ", sparkline([]float64{math.NaN(), math.NaN(), math.NaN()}))
}

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{12, "12"},
		{0.25, "0.25"},
		{1500, "2k"},
		{2_500_000, "2.5M"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCompact(tt.in), "formatCompact(%v)", tt.in)
	}
}

func TestTermBarsStacked(t *testing.T) {
	s := chart.Spec{
		ID:          "stack",
		Title:       "Stacked",
		Kind:        chart.Bar,
		Orientation: chart.Horizontal,
		BarMode:     chart.Stack,
		X:           chart.Axis{TickFormat: ".0%", Range: &chart.Range{Min: 0, Max: 1}},
		Series: []chart.Series{
			{Name: "kept", Points: []chart.Point{{Category: "short", Value: 0.5, Text: "50.0%"}}},
			{Name: "early", Points: []chart.Point{{Category: "short", Value: 0.5, Text: "50.0%"}}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, termChart(&buf, s, 60))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Stacked\n"))
	assert.Contains(t, out, "short")
	assert.Contains(t, out, "50.0% / 50.0%")
	assert.Contains(t, out, "█ kept   ▒ early")
	// 60 columns leave a 36 cell bar, split evenly.
	assert.Contains(t, out, strings.Repeat("█", 18)+strings.Repeat("▒", 18)+" ")
}

func TestTermBarsScaleToLargest(t *testing.T) {
	s := chart.Spec{
		Title:       "Shares",
		Kind:        chart.Bar,
		Orientation: chart.Horizontal,
		X:           chart.Axis{TickFormat: ".0%"},
		Series: []chart.Series{{Name: "share", Points: []chart.Point{
			{Category: "a", Value: 0.8},
			{Category: "b", Value: 0.2},
		}}},
	}
	var buf bytes.Buffer
	require.NoError(t, termChart(&buf, s, 34))
	lines := strings.Split(buf.String(), "\n")

	assert.Contains(t, lines[2], strings.Repeat("█", 10)+" 80%")
	assert.Contains(t, lines[3], strings.Repeat("█", 3)+" 20%")
	assert.NotContains(t, buf.String(), "share", "single series has no legend")
}

func TestTermSparklinesAlignsTimes(t *testing.T) {
	may := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	jun := may.AddDate(0, 1, 0)
	s := chart.Spec{
		Title: "Trend",
		Kind:  chart.Line,
		X:     chart.Axis{Kind: chart.Time, TimeFormat: "2006-01"},
		Y:     chart.Axis{TickFormat: ".0%"},
		Series: []chart.Series{
			{Name: "A", Points: []chart.Point{{Time: jun, Value: 0.4}, {Time: may, Value: 0.2}}},
			{Name: "B", Points: []chart.Point{{Time: may, Value: 0.1}}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, termChart(&buf, s, 80))
	out := buf.String()

	assert.Contains(t, out, "Trend: 2025-05 to 2025-06 (2 points)")
	assert.Regexp(t, `A\s+40%\s+▁█`, out)
	assert.Regexp(t, `B\s+10%\s+▅ `, out)
}

func TestTermLine(t *testing.T) {
	s := chart.Spec{
		Title: "Cumulative",
		Kind:  chart.Line,
		X:     chart.Axis{Kind: chart.Linear},
		Y:     chart.Axis{TickFormat: ".0%", Range: &chart.Range{Min: 0, Max: 1}},
		Series: []chart.Series{{Name: "cum", Points: []chart.Point{
			{X: 10, Value: 0.2}, {X: 9, Value: 0.1}, {X: 17, Value: 1},
		}}},
	}
	var buf bytes.Buffer
	require.NoError(t, termChart(&buf, s, 80))
	out := buf.String()

	assert.Equal(t, 3, strings.Count(out, "●"))
	assert.Contains(t, out, "100% │")
	assert.Contains(t, out, "0% │")
	assert.Regexp(t, `9\s+10\s+17`, out)
}

func TestTermChartRejectsEmptySpec(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, termChart(&buf, chart.Spec{Kind: chart.Bar}, 80))
}

func TestTerminalWidthOverride(t *testing.T) {
	assert.Equal(t, 42, terminalWidth(42))
	assert.Positive(t, terminalWidth(0))
}
