// Package chart describes charts declaratively and renders them. A Spec maps
// a derived table onto visual channels; renderers turn a Spec into an image
// or draw it onto a canvas.
package chart

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Kind is the chart type.
type Kind string

const (
	Bar  Kind = "bar"
	Line Kind = "line"
)

// Orientation of a bar chart. Horizontal bars put categories on the Y axis.
type Orientation string

const (
	Vertical   Orientation = "v"
	Horizontal Orientation = "h"
)

// BarMode controls how several bar series share a category.
type BarMode string

const (
	Group BarMode = "group"
	Stack BarMode = "stack"
)

// AxisKind is the scale of an axis.
type AxisKind string

const (
	Category AxisKind = "category"
	Linear   AxisKind = "linear"
	Time     AxisKind = "time"
)

// Format is an output image format.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
	PDF Format = "pdf"
)

// Range fixes the bounds of an axis.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Axis configures one axis. Field names the derived-table column mapped to
// the axis. TickFormat ".N%" renders tick labels as percentages with N
// decimals; empty means plain numbers. TimeFormat is a Go layout for time
// axes.
type Axis struct {
	Title      string   `json:"title"`
	Field      string   `json:"field"`
	Kind       AxisKind `json:"kind"`
	TickFormat string   `json:"tickFormat,omitempty"`
	TimeFormat string   `json:"timeFormat,omitempty"`
	Range      *Range   `json:"range,omitempty"`
}

// PercentDecimals reports whether the axis ticks are percentages and with
// how many decimals.
func (a Axis) PercentDecimals() (int, bool) {
	f := a.TickFormat
	if !strings.HasPrefix(f, ".") || !strings.HasSuffix(f, "%") {
		return 0, false
	}
	n, err := strconv.Atoi(f[1 : len(f)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Point is one mark. Bar charts position marks by Category and size them by
// Value. Line charts position marks by X on linear axes or Time on time axes
// and plot Value on the Y axis. Text is the mark's label.
type Point struct {
	Category string    `json:"category,omitempty"`
	X        float64   `json:"x,omitempty"`
	Time     time.Time `json:"time,omitempty"`
	Value    float64   `json:"value"`
	Text     string    `json:"text,omitempty"`
}

// Series is a named group of points, drawn in one colour.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Spec is a complete declarative chart.
type Spec struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Kind        Kind        `json:"kind"`
	Orientation Orientation `json:"orientation,omitempty"`
	BarMode     BarMode     `json:"barMode,omitempty"`
	X           Axis        `json:"x"`
	Y           Axis        `json:"y"`
	// Color names the derived-table column that splits rows into series.
	Color string `json:"color,omitempty"`
	// Categories fixes the order of the category axis.
	Categories []string `json:"categories,omitempty"`
	// ColorMap assigns "#rrggbb" colours to series by name.
	ColorMap       map[string]string `json:"colorMap,omitempty"`
	Series         []Series          `json:"series"`
	Markers        bool              `json:"markers,omitempty"`
	LegendReversed bool              `json:"legendReversed,omitempty"`
}

// Horizontal reports whether the spec is a horizontal bar chart.
func (s Spec) Horizontal() bool {
	return s.Kind == Bar && s.Orientation == Horizontal
}

// ValueAxis returns the axis that carries bar lengths or line values.
func (s Spec) ValueAxis() Axis {
	if s.Horizontal() {
		return s.X
	}
	return s.Y
}

// CategoryLabels returns the category order: Categories when set, otherwise
// the order in which categories first appear across series.
func (s Spec) CategoryLabels() []string {
	if len(s.Categories) > 0 {
		return s.Categories
	}
	seen := make(map[string]bool)
	var out []string
	for _, sr := range s.Series {
		for _, p := range sr.Points {
			if !seen[p.Category] {
				seen[p.Category] = true
				out = append(out, p.Category)
			}
		}
	}
	return out
}

// Validate checks that the spec can be rendered.
func (s Spec) Validate() error {
	switch s.Kind {
	case Bar, Line:
	default:
		return fmt.Errorf("chart %q: unknown kind %q", s.ID, s.Kind)
	}
	if len(s.Series) == 0 {
		return fmt.Errorf("chart %q: no series", s.ID)
	}
	for _, sr := range s.Series {
		if len(sr.Points) == 0 {
			return fmt.Errorf("chart %q: series %q has no points", s.ID, sr.Name)
		}
	}
	return nil
}

// MapText returns a copy of s with fn applied to every user-visible string.
func (s Spec) MapText(fn func(string) string) Spec {
	out := s
	out.Title = fn(s.Title)
	out.X.Title = fn(s.X.Title)
	out.Y.Title = fn(s.Y.Title)
	out.Categories = nil
	for _, c := range s.Categories {
		out.Categories = append(out.Categories, fn(c))
	}
	if s.ColorMap != nil {
		out.ColorMap = make(map[string]string, len(s.ColorMap))
		for k, v := range s.ColorMap {
			out.ColorMap[fn(k)] = v
		}
	}
	out.Series = make([]Series, len(s.Series))
	for i, sr := range s.Series {
		pts := make([]Point, len(sr.Points))
		for j, p := range sr.Points {
			p.Category = fn(p.Category)
			p.Text = fn(p.Text)
			pts[j] = p
		}
		out.Series[i] = Series{Name: fn(sr.Name), Points: pts}
	}
	return out
}

// Renderer draws a Spec in an image format.
type Renderer interface {
	Render(w io.Writer, s Spec, f Format) error
}

// Backend names accepted by NewRenderer.
const (
	BackendPlot    = "plot"
	BackendGoChart = "gochart"
)

// NewRenderer returns the renderer for backend, sized in pixels.
func NewRenderer(backend string, width, height int) (Renderer, error) {
	switch backend {
	case "", BackendPlot:
		return NewPlotRenderer(width, height), nil
	case BackendGoChart:
		return GoChartRenderer{Width: width, Height: height}, nil
	}
	return nil, fmt.Errorf("unknown chart backend %q", backend)
}

// ParseFormat maps a file extension or format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case PNG, SVG, PDF:
		return f, nil
	}
	return "", fmt.Errorf("unsupported chart format %q", s)
}
