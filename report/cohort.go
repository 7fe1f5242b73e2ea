package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/zalepa/vaultstats/chart"
	"github.com/zalepa/vaultstats/narrative"
	"github.com/zalepa/vaultstats/table"
	"github.com/zalepa/vaultstats/transform"
)

// DefaultCohort names the single cohort of a table without a cohort column.
const DefaultCohort = "All"

// repeatFractions returns, per row, the fraction of customers who unlocked
// early again. It reads the first rate column present: a 0-1 fraction, a
// percentage (values above 1 are divided by 100), or a count pair.
func repeatFractions(t *table.Table) ([]float64, error) {
	switch {
	case t.Has("pct_early_after_frac"):
		return t.FloatsOrNaN("pct_early_after_frac")
	case t.Has("pct_early_after"):
		vals, err := t.FloatsOrNaN("pct_early_after")
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			if v > 1 {
				vals[i] = v / 100
			}
		}
		return vals, nil
	case t.Has("early_unlocks_after") && t.Has("total_subsequent_sessions"):
		num, err := t.FloatsOrNaN("early_unlocks_after")
		if err != nil {
			return nil, err
		}
		den, err := t.FloatsOrNaN("total_subsequent_sessions")
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(num))
		for i := range num {
			if den[i] == 0 {
				out[i] = math.NaN()
				continue
			}
			out[i] = num[i] / den[i]
		}
		return out, nil
	}
	return nil, &table.SchemaError{
		Table:  t.Name,
		Column: "pct_early_after_frac",
		Msg:    "no rate column; need pct_early_after_frac, pct_early_after or early_unlocks_after with total_subsequent_sessions",
	}
}

type cohortKey struct {
	cohort string
	period time.Time
}

// RepeatEarly builds the monthly likelihood that a customer who unlocked
// early does so again, per cohort.
func RepeatEarly(t *table.Table) (*Section, error) {
	sec := &Section{ID: RepeatEarlyID, Title: RepeatEarlyTitle}

	periods, err := t.Strings("period")
	if err != nil {
		return nil, err
	}
	cohorts := make([]string, len(periods))
	if t.Has("cohort") {
		if cohorts, err = t.Strings("cohort"); err != nil {
			return nil, err
		}
	} else {
		for i := range cohorts {
			cohorts[i] = DefaultCohort
		}
	}
	fracs, err := repeatFractions(t)
	if err != nil {
		return nil, err
	}

	var obs []transform.Observation
	seen := make(map[cohortKey]bool)
	for i := range periods {
		p, err := parsePeriod(periods[i])
		if err != nil {
			sec.warnf("line %d: %v; row skipped", i+2, err)
			continue
		}
		f := fracs[i]
		if math.IsNaN(f) {
			sec.warnf("line %d: rate is not a number; row skipped", i+2)
			continue
		}
		if f < 0 || f > 1 {
			return nil, &table.SchemaError{Table: t.Name, Column: "pct_frac", Line: i + 2, Msg: fmt.Sprintf("rate %v outside [0, 1]", f)}
		}
		k := cohortKey{cohorts[i], p}
		if seen[k] {
			sec.warnf("line %d: duplicate period %s for cohort %q; row skipped", i+2, monthLabel(p), cohorts[i])
			continue
		}
		seen[k] = true
		obs = append(obs, transform.Observation{Period: p, Category: cohorts[i], Value: f})
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("no usable rows: %w", transform.ErrNoPeriods)
	}
	sort.SliceStable(obs, func(a, b int) bool {
		if obs[a].Category != obs[b].Category {
			return obs[a].Category < obs[b].Category
		}
		return obs[a].Period.Before(obs[b].Period)
	})

	sec.Data = table.MustNew(sec.ID, "period", "cohort", "pct_frac", "label")
	var (
		series []chart.Series
		groups = make(map[string][]transform.Observation)
		names  []string
	)
	for _, o := range obs {
		label := transform.PctLabel(o.Value)
		mustAppend(sec.Data, o.Period.Format("2006-01-02"), o.Category, formatFloat(o.Value), label)
		if _, ok := groups[o.Category]; !ok {
			names = append(names, o.Category)
			series = append(series, chart.Series{Name: o.Category})
		}
		groups[o.Category] = append(groups[o.Category], o)
		k := len(series) - 1
		series[k].Points = append(series[k].Points, chart.Point{Time: o.Period, Value: o.Value, Text: label})
	}
	sec.Chart = chart.Spec{
		ID:      sec.ID,
		Title:   sec.Title,
		Kind:    chart.Line,
		X:       chart.Axis{Title: "Month", Field: "period", Kind: chart.Time, TimeFormat: "2006-01"},
		Y:       chart.Axis{Title: "Percent unlocking early next time", Field: "pct_frac", Kind: chart.Linear, TickFormat: ".0%", Range: &chart.Range{Min: 0, Max: 1}},
		Color:   "cohort",
		Markers: true,
		Series:  series,
	}

	var (
		items []string
		top   string
		topV  = -1.0
	)
	for _, name := range names {
		snap, err := transform.Latest(groups[name])
		if err != nil {
			return nil, err
		}
		item := fmt.Sprintf("%s (%s): %s", narrative.Bold(name), monthLabel(snap.Latest), narrative.Bold(narrative.Percent(snap.Value, 1)))
		if d, ok := snap.Delta(); ok {
			item += fmt.Sprintf(" (%s MoM)", narrative.SignedPercent(d, 1))
		}
		items = append(items, item)
		if snap.Value > topV {
			top, topV = name, snap.Value
		}
	}
	sec.Summary = "**Summary:** Latest likelihood that a customer who unlocked early does so again:\n\n" + narrative.List(items...)
	sec.Action = fmt.Sprintf("**Action:** Prioritise the %s cohort (%s latest) for reminders and partial-withdrawal offers "+
		"before their next timed unlock.", narrative.Bold(top), narrative.Bold(narrative.Percent(topV, 1)))
	return sec, nil
}
