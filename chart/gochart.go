package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/zalepa/vaultstats/narrative"
)

// GoChartRenderer renders specs with go-chart. It writes PNG and SVG; bars
// are always drawn vertically.
type GoChartRenderer struct {
	Width  int
	Height int
}

// Render writes s to w in format f.
func (r GoChartRenderer) Render(w io.Writer, s Spec, f Format) error {
	if err := s.Validate(); err != nil {
		return err
	}
	var rp gochart.RendererProvider
	switch f {
	case PNG:
		rp = gochart.PNG
	case SVG:
		rp = gochart.SVG
	default:
		return fmt.Errorf("chart %q: go-chart cannot write %s", s.ID, f)
	}

	var err error
	switch {
	case s.Kind == Line:
		err = r.line(s).Render(rp, w)
	case s.BarMode == Stack && len(s.Series) > 1:
		err = r.stacked(s).Render(rp, w)
	case len(s.Series) == 1:
		err = r.bars(s).Render(rp, w)
	default:
		err = fmt.Errorf("grouped bars are not supported")
	}
	if err != nil {
		return fmt.Errorf("chart %q: %w", s.ID, err)
	}
	return nil
}

func toDrawing(c color.RGBA) drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// pointStyle draws a series line with dots on every point.
func pointStyle(col drawing.Color, markers bool) gochart.Style {
	st := gochart.Style{
		StrokeWidth: 2,
		StrokeColor: col,
	}
	if markers {
		st.DotWidth = 4
		st.DotColor = col
	}
	return st
}

func valueFormatter(a Axis) gochart.ValueFormatter {
	d, ok := a.PercentDecimals()
	return func(v interface{}) string {
		f, isFloat := v.(float64)
		if !isFloat {
			return fmt.Sprint(v)
		}
		if ok {
			return narrative.Percent(f, d)
		}
		return fmt.Sprintf("%g", f)
	}
}

// valueTicks returns evenly spaced ticks across rg.
func valueTicks(rg Range, a Axis, n int) []gochart.Tick {
	format := valueFormatter(a)
	ticks := make([]gochart.Tick, 0, n+1)
	for i := 0; i <= n; i++ {
		v := rg.Min + (rg.Max-rg.Min)*float64(i)/float64(n)
		ticks = append(ticks, gochart.Tick{Value: v, Label: format(v)})
	}
	return ticks
}

func (r GoChartRenderer) valueRange(s Spec, top float64) Range {
	if rg := s.ValueAxis().Range; rg != nil {
		return *rg
	}
	if top <= 0 {
		top = 1
	}
	return Range{Min: 0, Max: top * 1.1}
}

func (r GoChartRenderer) line(s Spec) gochart.Chart {
	var (
		series []gochart.Series
		times  = make(map[float64]time.Time)
		xs     []float64
		top    float64
	)
	for k, sr := range s.Series {
		xv := make([]float64, len(sr.Points))
		yv := make([]float64, len(sr.Points))
		for i, pt := range sr.Points {
			x := pt.X
			if s.X.Kind == Time {
				x = gochart.TimeToFloat64(pt.Time)
			}
			xv[i], yv[i] = x, pt.Value
			top = math.Max(top, pt.Value)
			if _, seen := times[x]; !seen {
				times[x] = pt.Time
				xs = append(xs, x)
			}
		}
		// A single point has no x range; repeat it so the series still draws.
		if len(xv) == 1 {
			xv = append(xv, xv[0])
			yv = append(yv, yv[0])
		}
		series = append(series, gochart.ContinuousSeries{
			Name:    sr.Name,
			XValues: xv,
			YValues: yv,
			Style:   pointStyle(toDrawing(s.SeriesColor(k)), s.Markers),
		})
	}
	sort.Float64s(xs)

	xMin, xMax := xs[0], xs[len(xs)-1]
	if xMax <= xMin {
		xMax = xMin + 1
	}
	xAxis := gochart.XAxis{
		Name:  s.X.Title,
		Range: &gochart.ContinuousRange{Min: xMin, Max: xMax},
	}
	if s.X.Kind == Time {
		layout := s.X.TimeFormat
		if layout == "" {
			layout = "2006-01"
		}
		for _, x := range xs {
			xAxis.Ticks = append(xAxis.Ticks, gochart.Tick{Value: x, Label: times[x].UTC().Format(layout)})
		}
	}

	yr := r.valueRange(s, top)
	ch := gochart.Chart{
		Title:      s.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 28}},
		XAxis:      xAxis,
		YAxis: gochart.YAxis{
			Name:  s.Y.Title,
			Range: &gochart.ContinuousRange{Min: yr.Min, Max: yr.Max},
			Ticks: valueTicks(yr, s.Y, 5),
		},
		Series: series,
	}
	if len(series) > 1 {
		ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	}
	return ch
}

func (r GoChartRenderer) bars(s Spec) gochart.BarChart {
	byCat := make(map[string]float64)
	for _, pt := range s.Series[0].Points {
		byCat[pt.Category] = pt.Value
	}
	clr := toDrawing(s.SeriesColor(0))

	var (
		bars []gochart.Value
		top  float64
	)
	for _, c := range s.CategoryLabels() {
		v := byCat[c]
		top = math.Max(top, v)
		bars = append(bars, gochart.Value{
			Label: c,
			Value: v,
			Style: gochart.Style{FillColor: clr, StrokeColor: clr},
		})
	}
	yr := r.valueRange(s, top)
	return gochart.BarChart{
		Title:      s.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40}},
		BarWidth:   barWidth(r.Width, len(bars)),
		YAxis: gochart.YAxis{
			Range:          &gochart.ContinuousRange{Min: yr.Min, Max: yr.Max},
			ValueFormatter: valueFormatter(s.ValueAxis()),
		},
		Bars: bars,
	}
}

func (r GoChartRenderer) stacked(s Spec) gochart.StackedBarChart {
	cats := s.CategoryLabels()
	stacks := make([]gochart.StackedBar, len(cats))
	pos := make(map[string]int, len(cats))
	for i, c := range cats {
		pos[c] = i
		stacks[i] = gochart.StackedBar{Name: c}
	}
	for k, sr := range s.Series {
		clr := toDrawing(s.SeriesColor(k))
		for _, pt := range sr.Points {
			i, ok := pos[pt.Category]
			if !ok {
				continue
			}
			stacks[i].Values = append(stacks[i].Values, gochart.Value{
				Label: pt.Text,
				Value: pt.Value,
				Style: gochart.Style{FillColor: clr, StrokeColor: clr},
			})
		}
	}
	return gochart.StackedBarChart{
		Title:      s.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40}},
		Bars:       stacks,
	}
}

func barWidth(width, n int) int {
	if n == 0 {
		return 0
	}
	w := width / (2 * n)
	if w < 4 {
		w = 4
	}
	return w
}
