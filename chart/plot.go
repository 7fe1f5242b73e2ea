package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/zalepa/vaultstats/narrative"
)

// PlotRenderer renders specs with gonum/plot.
type PlotRenderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewPlotRenderer returns a renderer whose raster output is width x height
// pixels at the default 96 DPI.
func NewPlotRenderer(width, height int) PlotRenderer {
	return PlotRenderer{
		Width:  vg.Length(width) * vg.Inch / 96,
		Height: vg.Length(height) * vg.Inch / 96,
	}
}

// Render writes s to w in format f.
func (r PlotRenderer) Render(w io.Writer, s Spec, f Format) error {
	p, err := r.plot(s, r.Width, r.Height)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(r.Width, r.Height, string(f))
	if err != nil {
		return fmt.Errorf("chart %q: %w", s.ID, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Draw draws s onto an existing canvas, such as a PDF page.
func (r PlotRenderer) Draw(c draw.Canvas, s Spec) error {
	p, err := r.plot(s, c.Max.X-c.Min.X, c.Max.Y-c.Min.Y)
	if err != nil {
		return err
	}
	p.Draw(c)
	return nil
}

// Plot builds the gonum plot for s.
func (r PlotRenderer) Plot(s Spec) (*plot.Plot, error) {
	return r.plot(s, r.Width, r.Height)
}

type legendEntry struct {
	name   string
	thumbs []plot.Thumbnailer
}

func (r PlotRenderer) plot(s Spec, width, height vg.Length) (*plot.Plot, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = s.Title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.BackgroundColor = color.White
	p.X.Label.Text = s.X.Title
	p.Y.Label.Text = s.Y.Title
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	var (
		entries []legendEntry
		err     error
	)
	switch s.Kind {
	case Bar:
		entries, err = addBars(p, s, width, height)
	case Line:
		entries, err = addLines(p, s)
	}
	if err != nil {
		return nil, fmt.Errorf("chart %q: %w", s.ID, err)
	}

	if len(entries) > 1 {
		if s.LegendReversed {
			for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
		for _, e := range entries {
			p.Legend.Add(e.name, e.thumbs...)
		}
	}

	valueAxis := &p.Y
	if s.Horizontal() {
		valueAxis = &p.X
	}
	if d, ok := s.ValueAxis().PercentDecimals(); ok {
		valueAxis.Tick.Marker = percentTicks{decimals: d}
	}
	if rg := s.ValueAxis().Range; rg != nil {
		valueAxis.Min = rg.Min
		valueAxis.Max = rg.Max
	}
	return p, nil
}

func addBars(p *plot.Plot, s Spec, width, height vg.Length) ([]legendEntry, error) {
	cats := s.CategoryLabels()
	n := len(cats)
	if n == 0 {
		return nil, fmt.Errorf("no categories")
	}
	horizontal := s.Horizontal()

	// Horizontal charts list the first category at the top.
	slot := make(map[string]int, n)
	names := make([]string, n)
	for i, c := range cats {
		j := i
		if horizontal {
			j = n - 1 - i
		}
		slot[c] = j
		names[j] = c
	}

	stacked := s.BarMode == Stack
	groups := 1
	if !stacked {
		groups = len(s.Series)
	}
	extent := width
	if horizontal {
		extent = height
	}
	barWidth := extent * 0.5 / vg.Length(n*groups)
	if barWidth < vg.Points(2) {
		barWidth = vg.Points(2)
	}

	base := make([]float64, n)
	var (
		prev    *plotter.BarChart
		entries []legendEntry
		maxEnd  float64
	)
	for k, sr := range s.Series {
		vals := make(plotter.Values, n)
		var (
			xys   plotter.XYs
			texts []string
		)
		for _, pt := range sr.Points {
			j, ok := slot[pt.Category]
			if !ok {
				continue
			}
			vals[j] = pt.Value
			if pt.Text == "" {
				continue
			}
			v := pt.Value
			if stacked {
				v = base[j] + pt.Value/2
			}
			if horizontal {
				xys = append(xys, plotter.XY{X: v, Y: float64(j)})
			} else {
				xys = append(xys, plotter.XY{X: float64(j), Y: v})
			}
			texts = append(texts, pt.Text)
		}

		bar, err := plotter.NewBarChart(vals, barWidth)
		if err != nil {
			return nil, err
		}
		bar.Horizontal = horizontal
		bar.Color = s.SeriesColor(k)
		bar.LineStyle.Width = 0
		if stacked && prev != nil {
			bar.StackOn(prev)
		} else if !stacked && groups > 1 {
			bar.Offset = (vg.Length(k) - vg.Length(groups-1)/2) * barWidth
		}
		p.Add(bar)
		prev = bar
		entries = append(entries, legendEntry{name: sr.Name, thumbs: []plot.Thumbnailer{bar}})

		if len(texts) > 0 {
			labels, err := barLabels(xys, texts, horizontal, stacked)
			if err != nil {
				return nil, err
			}
			p.Add(labels)
		}
		for j, v := range vals {
			if stacked {
				base[j] += v
				v = base[j]
			}
			maxEnd = math.Max(maxEnd, v)
		}
	}

	if horizontal {
		p.NominalY(names...)
	} else {
		p.NominalX(names...)
	}
	// Leave room for labels drawn past the bar ends.
	if maxEnd > 0 && !stacked {
		if horizontal {
			p.X.Max = maxEnd * 1.15
		} else {
			p.Y.Max = maxEnd * 1.15
		}
	}
	return entries, nil
}

func barLabels(xys plotter.XYs, texts []string, horizontal, inside bool) (*plotter.Labels, error) {
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Font.Size = vg.Points(8)
		switch {
		case inside:
			labels.TextStyle[i].XAlign = text.XCenter
			labels.TextStyle[i].YAlign = text.YCenter
		case horizontal:
			labels.TextStyle[i].YAlign = text.YCenter
		default:
			labels.TextStyle[i].XAlign = text.XCenter
		}
	}
	if !inside {
		if horizontal {
			labels.Offset = vg.Point{X: vg.Points(3)}
		} else {
			labels.Offset = vg.Point{Y: vg.Points(3)}
		}
	}
	return labels, nil
}

func addLines(p *plot.Plot, s Spec) ([]legendEntry, error) {
	var (
		entries []legendEntry
		xsSeen  = make(map[float64]bool)
		xs      []float64
	)
	for k, sr := range s.Series {
		xys := make(plotter.XYs, len(sr.Points))
		var texts []string
		for i, pt := range sr.Points {
			x := pt.X
			if s.X.Kind == Time {
				x = float64(pt.Time.Unix())
			}
			xys[i] = plotter.XY{X: x, Y: pt.Value}
			texts = append(texts, pt.Text)
			if !xsSeen[x] {
				xsSeen[x] = true
				xs = append(xs, x)
			}
		}

		clr := s.SeriesColor(k)
		var thumbs []plot.Thumbnailer
		if s.Markers {
			line, points, err := plotter.NewLinePoints(xys)
			if err != nil {
				return nil, err
			}
			line.Color = clr
			line.Width = vg.Points(2)
			points.Color = clr
			points.Radius = vg.Points(3)
			points.Shape = draw.CircleGlyph{}
			p.Add(line, points)
			thumbs = []plot.Thumbnailer{line, points}
		} else {
			line, err := plotter.NewLine(xys)
			if err != nil {
				return nil, err
			}
			line.Color = clr
			line.Width = vg.Points(2)
			p.Add(line)
			thumbs = []plot.Thumbnailer{line}
		}
		entries = append(entries, legendEntry{name: sr.Name, thumbs: thumbs})

		if hasText(texts) {
			labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
			if err != nil {
				return nil, err
			}
			for i := range labels.TextStyle {
				labels.TextStyle[i].Font.Size = vg.Points(7)
				labels.TextStyle[i].XAlign = text.XCenter
			}
			labels.Offset = vg.Point{Y: vg.Points(5)}
			p.Add(labels)
		}
	}

	if s.X.Kind == Time {
		sort.Float64s(xs)
		layout := s.X.TimeFormat
		if layout == "" {
			layout = "2006-01"
		}
		p.X.Tick.Marker = newTimeTicks(xs, layout)
		pad := minGap(xs) / 2
		if pad == 0 {
			pad = 86400 * 15
		}
		p.X.Min = xs[0] - pad
		p.X.Max = xs[len(xs)-1] + pad
	}
	return entries, nil
}

func hasText(texts []string) bool {
	for _, t := range texts {
		if t != "" {
			return true
		}
	}
	return false
}

func minGap(xs []float64) float64 {
	gap := 0.0
	for i := 1; i < len(xs); i++ {
		d := xs[i] - xs[i-1]
		if gap == 0 || d < gap {
			gap = d
		}
	}
	return gap
}

// timeTicks places one tick per observed instant, labelling at most twelve.
type timeTicks struct {
	values []float64
	labels []string
}

func newTimeTicks(xs []float64, layout string) timeTicks {
	tt := timeTicks{values: xs, labels: make([]string, len(xs))}
	for i, x := range xs {
		tt.labels[i] = unixTime(x).Format(layout)
	}
	return tt
}

func (tt timeTicks) Ticks(min, max float64) []plot.Tick {
	n := len(tt.values)
	step := 1
	if n > 12 {
		step = (n + 11) / 12
	}
	ticks := make([]plot.Tick, 0, n)
	for i := 0; i < n; i++ {
		t := plot.Tick{Value: tt.values[i]}
		if i%step == 0 {
			t.Label = tt.labels[i]
		}
		ticks = append(ticks, t)
	}
	return ticks
}

func unixTime(x float64) time.Time {
	return time.Unix(int64(x), 0).UTC()
}

type percentTicks struct {
	decimals int
}

func (pt percentTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = narrative.Percent(ticks[i].Value, pt.decimals)
		}
	}
	return ticks
}
