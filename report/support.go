package report

import (
	"fmt"
	"strconv"

	"github.com/zalepa/vaultstats/chart"
	"github.com/zalepa/vaultstats/narrative"
	"github.com/zalepa/vaultstats/table"
	"github.com/zalepa/vaultstats/transform"
)

// Window is a half-open range of hours of the day, [Start, End).
type Window struct {
	Start int
	End   int
}

// DefaultWindow is the live-support window quoted in the narrative.
var DefaultWindow = Window{Start: 10, End: 18}

// Validate checks that the window lies within one day and is not empty.
func (w Window) Validate() error {
	if w.Start < 0 || w.End > 24 || w.Start >= w.End {
		return fmt.Errorf("invalid hour window [%d, %d)", w.Start, w.End)
	}
	return nil
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:00–%02d:00", w.Start, w.End)
}

// SupportHours builds the cumulative share of support-initiated unlocks by
// hour of day from a table with hour_of_day and support_unlocks columns, and
// reports the share falling inside win.
func SupportHours(t *table.Table, win Window) (*Section, error) {
	if err := win.Validate(); err != nil {
		return nil, err
	}
	sec := &Section{ID: SupportHoursID, Title: SupportHoursTitle}

	hours, err := t.Ints("hour_of_day")
	if err != nil {
		return nil, err
	}
	for i, h := range hours {
		if h < 0 || h > 23 {
			return nil, &table.SchemaError{Table: t.Name, Column: "hour_of_day", Line: i + 2, Msg: fmt.Sprintf("hour %d out of range 0-23", h)}
		}
	}
	counts, err := t.Floats("support_unlocks")
	if err != nil {
		return nil, err
	}

	hours, counts = transform.SortByKey(hours, counts)
	cum, err := transform.Cumulative(counts)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", "support_unlocks", err)
	}
	coverage, err := transform.Coverage(hours, counts, win.Start, win.End)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", "support_unlocks", err)
	}

	sec.Data = table.MustNew(sec.ID, "hour_of_day", "support_unlocks", "cum_frac")
	series := chart.Series{Name: "cum_frac"}
	for i, h := range hours {
		mustAppend(sec.Data, strconv.Itoa(h), formatFloat(counts[i]), formatFloat(cum[i]))
		series.Points = append(series.Points, chart.Point{X: float64(h), Value: cum[i]})
	}
	sec.Chart = chart.Spec{
		ID:      sec.ID,
		Title:   sec.Title,
		Kind:    chart.Line,
		X:       chart.Axis{Title: "Hour of day", Field: "hour_of_day", Kind: chart.Linear},
		Y:       chart.Axis{Title: "Cumulative share", Field: "cum_frac", Kind: chart.Linear, TickFormat: ".0%", Range: &chart.Range{Min: 0, Max: 1}},
		Markers: true,
		Series:  []chart.Series{series},
	}

	sec.Summary = fmt.Sprintf("**Summary:** Support-initiated unlocks are concentrated in daytime hours. "+
		"The %s window accounts for %s of all support unlocks.",
		narrative.Bold(win.String()), narrative.Bold(narrative.Percent(coverage, 0)))
	sec.Action = fmt.Sprintf("**Action:** Limit live support for vault unlocks to %s and route off-hours requests "+
		"to self-serve (Chatbot/IVR) with an emergency fallback.", narrative.Bold(win.String()))
	return sec, nil
}
