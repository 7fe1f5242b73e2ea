package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/zalepa/vaultstats/chart"
	"github.com/zalepa/vaultstats/narrative"
)

const (
	defaultTermWidth = 80
	maxTermWidth     = 120
	lineChartHeight  = 12
)

// barGlyphs fill the bars of successive series.
var barGlyphs = []string{"█", "▒", "░", "▓"}

// terminalWidth returns override when set, else the width of stdout, else a
// conservative default.
func terminalWidth(override int) int {
	if override > 0 {
		return override
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultTermWidth
	}
	if w > maxTermWidth {
		return maxTermWidth
	}
	return w
}

// termChart writes a block-character rendition of s, at most width columns
// wide.
func termChart(w io.Writer, s chart.Spec, width int) error {
	if err := s.Validate(); err != nil {
		return err
	}
	switch {
	case s.Kind == chart.Bar:
		return termBars(w, s, width)
	case len(s.Series) == 1:
		return termLine(w, s, width)
	default:
		return termSparklines(w, s)
	}
}

// valueText is the label printed after a bar.
func valueText(a chart.Axis, p chart.Point) string {
	if p.Text != "" {
		return p.Text
	}
	return formatValue(a, p.Value)
}

func formatValue(a chart.Axis, v float64) string {
	if math.IsNaN(v) {
		return "- -"
	}
	if d, ok := a.PercentDecimals(); ok {
		return narrative.Percent(v, d)
	}
	return formatCompact(v)
}

func termBars(w io.Writer, s chart.Spec, width int) error {
	axis := s.ValueAxis()
	cats := s.CategoryLabels()
	stacked := s.BarMode == chart.Stack

	byCat := make([]map[string]chart.Point, len(s.Series))
	for i, sr := range s.Series {
		byCat[i] = make(map[string]chart.Point, len(sr.Points))
		for _, p := range sr.Points {
			byCat[i][p.Category] = p
		}
	}

	top := 0.0
	if axis.Range != nil {
		top = axis.Range.Max
	} else {
		for _, c := range cats {
			sum := 0.0
			for i := range s.Series {
				v := byCat[i][c].Value
				if stacked {
					sum += v
				} else if v > top {
					top = v
				}
			}
			if sum > top {
				top = sum
			}
		}
	}
	if top <= 0 {
		top = 1
	}

	labelW := 10
	for _, c := range cats {
		if n := len([]rune(c)); n > labelW {
			labelW = n
		}
	}
	barW := width - labelW - 14
	if barW < 10 {
		barW = 10
	}
	cells := func(v float64) int {
		if v <= 0 || math.IsNaN(v) {
			return 0
		}
		return int(math.Round(v / top * float64(barW)))
	}

	fmt.Fprintln(w, s.Title)
	fmt.Fprintln(w)
	for _, c := range cats {
		if stacked {
			var bar strings.Builder
			var texts []string
			for i := range s.Series {
				p, ok := byCat[i][c]
				if !ok {
					continue
				}
				bar.WriteString(strings.Repeat(barGlyphs[i%len(barGlyphs)], cells(p.Value)))
				texts = append(texts, valueText(axis, p))
			}
			fmt.Fprintf(w, "%-*s │%s %s\n", labelW, c, bar.String(), strings.Join(texts, " / "))
			continue
		}
		for i := range s.Series {
			p, ok := byCat[i][c]
			if !ok {
				continue
			}
			label := c
			if i > 0 {
				label = ""
			}
			bar := strings.Repeat(barGlyphs[i%len(barGlyphs)], cells(p.Value))
			fmt.Fprintf(w, "%-*s │%s %s\n", labelW, label, bar, valueText(axis, p))
		}
	}
	fmt.Fprintf(w, "%-*s └%s\n", labelW, "", strings.Repeat("─", barW))
	if len(s.Series) > 1 {
		termLegend(w, s, labelW+2)
	}
	return nil
}

func termLegend(w io.Writer, s chart.Spec, indent int) {
	var parts []string
	for i, sr := range s.Series {
		parts = append(parts, barGlyphs[i%len(barGlyphs)]+" "+sr.Name)
	}
	if s.LegendReversed {
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
	}
	fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", indent), strings.Join(parts, "   "))
}

// xPosition is one distinct position on a line chart's X axis.
type xPosition struct {
	key   float64
	label string
}

func xOf(s chart.Spec, p chart.Point) xPosition {
	switch s.X.Kind {
	case chart.Time:
		layout := s.X.TimeFormat
		if layout == "" {
			layout = "2006-01-02"
		}
		return xPosition{key: float64(p.Time.Unix()), label: p.Time.Format(layout)}
	case chart.Category:
		return xPosition{label: p.Category}
	}
	return xPosition{key: p.X, label: strconv.FormatFloat(p.X, 'f', -1, 64)}
}

// xPositions returns the distinct X positions across all series, sorted.
// Category axes keep first-appearance order.
func xPositions(s chart.Spec) []xPosition {
	seen := make(map[string]bool)
	var out []xPosition
	for _, sr := range s.Series {
		for _, p := range sr.Points {
			x := xOf(s, p)
			if seen[x.label] {
				continue
			}
			seen[x.label] = true
			out = append(out, x)
		}
	}
	if s.X.Kind != chart.Category {
		sort.SliceStable(out, func(i, j int) bool { return out[i].key < out[j].key })
	}
	return out
}

// alignValues maps a series onto xs, filling gaps with NaN.
func alignValues(s chart.Spec, sr chart.Series, xs []xPosition) []float64 {
	lookup := make(map[string]float64, len(sr.Points))
	for _, p := range sr.Points {
		lookup[xOf(s, p).label] = p.Value
	}
	vals := make([]float64, len(xs))
	for i, x := range xs {
		if v, ok := lookup[x.label]; ok {
			vals[i] = v
		} else {
			vals[i] = math.NaN()
		}
	}
	return vals
}

func lastNonNaN(vals []float64) float64 {
	for i := len(vals) - 1; i >= 0; i-- {
		if !math.IsNaN(vals[i]) {
			return vals[i]
		}
	}
	return math.NaN()
}

// termSparklines writes one row per series: its latest value and a
// sparkline over the shared X positions.
func termSparklines(w io.Writer, s chart.Spec) error {
	xs := xPositions(s)

	nameW := 10
	for _, sr := range s.Series {
		if n := len([]rune(sr.Name)); n > nameW {
			nameW = n
		}
	}

	fmt.Fprintln(w, s.Title)
	if n := len(xs); n > 0 {
		fmt.Fprintf(w, "Trend: %s to %s (%d points)\n", xs[0].label, xs[n-1].label, n)
	}
	fmt.Fprintln(w)

	rowFmt := fmt.Sprintf("%%-%ds  %%10s   %%s\n", nameW)
	fmt.Fprintf(w, rowFmt, "Series", "Latest", "Trend")
	fmt.Fprintln(w, strings.Repeat("─", nameW+2+10+3+len(xs)))
	for _, sr := range s.Series {
		vals := alignValues(s, sr, xs)
		fmt.Fprintf(w, rowFmt, sr.Name, formatValue(s.Y, lastNonNaN(vals)), sparkline(vals))
	}
	return nil
}

func sparkline(values []float64) string {
	blocks := []rune("▁▂▃▄▅▆▇█")
	n := len(blocks)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return strings.Repeat(" ", len(values))
	}

	spread := hi - lo
	var sb strings.Builder
	for _, v := range values {
		if math.IsNaN(v) {
			sb.WriteRune(' ')
			continue
		}
		idx := n / 2
		if spread > 0 {
			idx = min(int((v-lo)/spread*float64(n-1)), n-1)
		}
		sb.WriteRune(blocks[idx])
	}
	return sb.String()
}

// termLine draws a single-series line chart with dots joining the points.
func termLine(w io.Writer, s chart.Spec, width int) error {
	xs := xPositions(s)
	vals := alignValues(s, s.Series[0], xs)

	var labels []string
	var points []float64
	for i, v := range vals {
		if !math.IsNaN(v) {
			labels = append(labels, xs[i].label)
			points = append(points, v)
		}
	}

	fmt.Fprintln(w, s.Title)
	fmt.Fprintln(w)
	if len(points) == 0 {
		fmt.Fprintln(w, "(no data)")
		return nil
	}

	const labelWidth = 10
	nPoints := len(points)
	colWidth := max(min((width-labelWidth)/nPoints, 8), 3)

	minVal, maxVal := points[0], points[0]
	for _, v := range points {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if r := s.Y.Range; r != nil {
		minVal, maxVal = r.Min, r.Max
	}
	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1
		minVal -= 0.5
		maxVal += 0.5
	}

	height := lineChartHeight
	clampRow := func(r int) int { return max(0, min(r, height-1)) }
	rows := make([]int, nPoints)
	for i, v := range points {
		rows[i] = clampRow(int(math.Round((v - minVal) / valRange * float64(height-1))))
	}

	totalWidth := nPoints * colWidth
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", totalWidth))
	}
	for i := 0; i < nPoints; i++ {
		col := i*colWidth + colWidth/2
		grid[rows[i]][col] = '●'
		if i == nPoints-1 {
			continue
		}
		endCol := (i+1)*colWidth + colWidth/2
		for c := col + 1; c < endCol; c++ {
			t := float64(c-col) / float64(endCol-col)
			r := clampRow(int(math.Round(float64(rows[i]) + t*float64(rows[i+1]-rows[i]))))
			if grid[r][c] == ' ' {
				grid[r][c] = '·'
			}
		}
	}

	yLabels := make(map[int]string)
	for i := 0; i < 5; i++ {
		row := int(math.Round(float64(i) / 4 * float64(height-1)))
		yLabels[row] = formatValue(s.Y, minVal+float64(row)/float64(height-1)*valRange)
	}
	for r := height - 1; r >= 0; r-- {
		fmt.Fprintf(w, "%8s │%s\n", yLabels[r], string(grid[r]))
	}
	fmt.Fprintf(w, "%8s └%s\n", "", strings.Repeat("─", totalWidth))

	labelEvery := 1
	longest := 0
	for _, l := range labels {
		longest = max(longest, len(l))
	}
	if longest+1 > colWidth {
		labelEvery = (longest + colWidth) / colWidth
	}
	xLine := []rune(strings.Repeat(" ", totalWidth))
	for i := 0; i < nPoints; i += labelEvery {
		label := []rune(labels[i])
		pos := max(i*colWidth+colWidth/2-len(label)/2, 0)
		for j := 0; j < len(label) && pos+j < totalWidth; j++ {
			xLine[pos+j] = label[j]
		}
	}
	fmt.Fprintf(w, "%8s  %s\n", "", string(xLine))
	return nil
}

func formatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 0, 64) + "k"
	case abs < 10 && v != math.Trunc(v):
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}
