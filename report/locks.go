package report

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zalepa/vaultstats/chart"
	"github.com/zalepa/vaultstats/narrative"
	"github.com/zalepa/vaultstats/table"
	"github.com/zalepa/vaultstats/transform"
)

// shareRows loads a (bucket, count) table and computes each row's share of
// the total.
func shareRows(t *table.Table, countCol string) (buckets []string, counts, shares []float64, err error) {
	if buckets, err = t.Strings("bucket"); err != nil {
		return nil, nil, nil, err
	}
	if err = uniqueLabels(t, "bucket", buckets); err != nil {
		return nil, nil, nil, err
	}
	if counts, err = t.Floats(countCol); err != nil {
		return nil, nil, nil, err
	}
	if shares, err = transform.Shares(counts); err != nil {
		return nil, nil, nil, fmt.Errorf("column %q: %w", countCol, err)
	}
	return buckets, counts, shares, nil
}

// shareSection builds the chart and data shared by the two bucket-share
// sections.
func shareSection(sec *Section, t *table.Table, countCol string, order []string, xTitle string) ([]string, []float64, error) {
	buckets, counts, shares, err := shareRows(t, countCol)
	if err != nil {
		return nil, nil, err
	}
	charted, all := ordered(sec, "bucket", buckets, order)

	sec.Data = table.MustNew(sec.ID, "bucket", countCol, "share")
	for _, i := range all {
		mustAppend(sec.Data, buckets[i], formatFloat(counts[i]), formatFloat(shares[i]))
	}

	series := chart.Series{Name: "share"}
	var cats []string
	for _, i := range charted {
		cats = append(cats, buckets[i])
		series.Points = append(series.Points, chart.Point{
			Category: buckets[i],
			Value:    shares[i],
			Text:     narrative.Percent(shares[i], 1),
		})
	}
	sec.Chart = chart.Spec{
		ID:          sec.ID,
		Title:       sec.Title,
		Kind:        chart.Bar,
		Orientation: chart.Horizontal,
		X:           chart.Axis{Title: xTitle, Field: "share", Kind: chart.Linear, TickFormat: ".0%"},
		Y:           chart.Axis{Title: "Buckets", Field: "bucket", Kind: chart.Category},
		Categories:  cats,
		Series:      []chart.Series{series},
	}
	return buckets, shares, nil
}

// LockDurations builds the lock duration distribution from a table with
// bucket and locks columns.
func LockDurations(t *table.Table) (*Section, error) {
	sec := &Section{ID: LockDurationsID, Title: LockDurationsTitle}
	buckets, shares, err := shareSection(sec, t, "locks", LockOrder, "Share of locks")
	if err != nil {
		return nil, err
	}
	sec.Summary = topBuckets(buckets, shares)
	return sec, nil
}

// topBuckets names up to the three largest shares, largest first. Ties keep
// input order.
func topBuckets(buckets []string, shares []float64) string {
	idx := make([]int, len(buckets))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return shares[idx[a]] > shares[idx[b]] })
	if len(idx) > 3 {
		idx = idx[:3]
	}
	if len(idx) == 0 {
		return ""
	}

	pct := func(i int) string { return narrative.Bold(narrative.Percent(shares[i], 0)) }
	s := fmt.Sprintf("Most popular lock duration is %s at %s", narrative.Bold(buckets[idx[0]]), pct(idx[0]))
	var rest []string
	for _, i := range idx[1:] {
		rest = append(rest, fmt.Sprintf("%s (%s)", narrative.Bold(buckets[i]), pct(i)))
	}
	if len(rest) > 0 {
		s += ", followed by " + narrative.Join(rest)
	}
	return s + "."
}

// EarlyUnlocks builds the distribution of how many days before the due date
// early unlocks happen, from a table with bucket and unlocks columns.
func EarlyUnlocks(t *table.Table) (*Section, error) {
	sec := &Section{ID: EarlyUnlocksID, Title: EarlyUnlocksTitle}
	buckets, shares, err := shareSection(sec, t, "unlocks", EarlyOrder, "Share of early unlocks")
	if err != nil {
		return nil, err
	}

	share := make(map[string]float64)
	for i, b := range buckets {
		share[b] += shares[i]
	}
	p := func(v float64) string { return narrative.Bold(narrative.Percent(v, 0)) }

	d1to6, d7to13, d14to29 := share["1–6 days early"], share["7–13 days early"], share["14–29 days early"]
	finalMonth := d1to6 + d7to13 + d14to29
	d30to59 := share["30–59 days early"]
	d60to89, d90 := share["60–89 days early"], share["≥90 days early"]
	veryEarly := d60to89 + d90
	lastDay := share["<1 day early"]

	lead := fmt.Sprintf("Most early unlocks happen in the **final month before the scheduled unlock date**, about %s occur", p(finalMonth))
	if finalMonth < 0.5 {
		lead = fmt.Sprintf("About %s of early unlocks happen in the **final month before the scheduled unlock date**, that is", p(finalMonth))
	}
	sec.Summary = fmt.Sprintf(
		"**Summary:** %s **1–29 days before due date** (1–6 days ~%s, 7–13 days ~%s, 14–29 days ~%s). "+
			"Roughly %s occur **30–59 days** before. **Very-early** unlocks (≥60 days before) make up about %s "+
			"(≥90 days ~%s, 60–89 days ~%s). Unlocks **<1 day** before due are %s.",
		lead, p(d1to6), p(d7to13), p(d14to29),
		p(d30to59), p(veryEarly), p(d90), p(d60to89),
		narrative.Bold(narrative.Percent(lastDay, 1)),
	)
	sec.Action = "**Action:** Have a **partial withdraw allowance** in the last **30 days** before the timed unlock " +
		"so users can access a small portion without fully unlocking."
	return sec, nil
}

var shortBuckets = map[string]bool{"<1 day": true, "1–6 days": true, "7–13 days": true}

// EarlyRate builds the per-bucket split of locks into those unlocked early
// and those that ran to term, from a table with bucket, locks and
// early_unlocks columns.
func EarlyRate(t *table.Table) (*Section, error) {
	sec := &Section{ID: EarlyRateID, Title: EarlyRateTitle}

	buckets, err := t.Strings("bucket")
	if err != nil {
		return nil, err
	}
	if err := uniqueLabels(t, "bucket", buckets); err != nil {
		return nil, err
	}
	locks, err := t.Floats("locks")
	if err != nil {
		return nil, err
	}
	early, err := t.Floats("early_unlocks")
	if err != nil {
		return nil, err
	}

	rows, err := transform.Stack(buckets, locks, early)
	if errors.Is(err, transform.ErrExceedsTotal) {
		return nil, &table.SchemaError{Table: t.Name, Column: "early_unlocks", Msg: err.Error()}
	}
	if err != nil {
		return nil, err
	}
	rates, overall, err := transform.Rates(buckets, early, locks)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", "locks", err)
	}

	// Stack emits one row per bucket and status, so the order indexes over
	// the row buckets keep statuses grouped as Stack returned them.
	rowBuckets := make([]string, len(rows))
	for i, r := range rows {
		rowBuckets[i] = r.Bucket
	}
	charted, all := ordered(sec, "bucket", rowBuckets, BucketOrder)

	sec.Data = table.MustNew(sec.ID, "bucket", "status", "count", "total", "pct", "pct_label")
	for _, i := range all {
		r := rows[i]
		mustAppend(sec.Data, r.Bucket, r.Status, formatFloat(r.Count), formatFloat(r.Total), formatFloat(r.Pct), r.Label)
	}

	series := make([]chart.Series, len(transform.Statuses))
	pos := make(map[string]int, len(transform.Statuses))
	for i, st := range transform.Statuses {
		series[i].Name = st
		pos[st] = i
	}
	var cats []string
	seen := make(map[string]bool)
	for _, i := range charted {
		r := rows[i]
		if !seen[r.Bucket] {
			seen[r.Bucket] = true
			cats = append(cats, r.Bucket)
		}
		k := pos[r.Status]
		series[k].Points = append(series[k].Points, chart.Point{Category: r.Bucket, Value: r.Pct, Text: r.Label})
	}
	sec.Chart = chart.Spec{
		ID:          sec.ID,
		Title:       sec.Title,
		Kind:        chart.Bar,
		Orientation: chart.Horizontal,
		BarMode:     chart.Stack,
		X:           chart.Axis{Title: "Share of locks", Field: "pct", Kind: chart.Linear, TickFormat: ".0%", Range: &chart.Range{Min: 0, Max: 1}},
		Y:           chart.Axis{Field: "bucket", Kind: chart.Category},
		Color:       "status",
		Categories:  cats,
		ColorMap: map[string]string{
			transform.StatusNotEarly: "#1f77b4",
			transform.StatusEarly:    "#FFD23F",
		},
		LegendReversed: true,
		Series:         series,
	}

	var short, long []string
	for _, b := range BucketOrder {
		r, ok := transform.RateOf(rates, b)
		if !ok {
			continue
		}
		item := narrative.Bold(b + " " + narrative.Percent(r, 1))
		if shortBuckets[b] {
			short = append(short, item)
		} else {
			long = append(long, item)
		}
	}
	summary := fmt.Sprintf("**Summary:** Overall, %s of locks are unlocked early.", narrative.Bold(narrative.Percent(overall, 0)))
	switch {
	case len(short) > 0 && len(long) > 0:
		summary += fmt.Sprintf(" Shorter locks: %s. Longer durations: %s.", narrative.Join(short), narrative.Join(long))
	case len(short) > 0:
		summary += fmt.Sprintf(" Shorter locks: %s.", narrative.Join(short))
	case len(long) > 0:
		summary += fmt.Sprintf(" Longer durations: %s.", narrative.Join(long))
	}
	sec.Summary = summary
	sec.Action = "**Actions:**\n" + narrative.List(
		"Allow **partial withdrawals** with a fee if it is **before 14 days**.",
		"Send **auto reminders** to customers with **more than a 2-week window** about alternatives to early unlocking.",
		"**Incentivise** customers with a **period 14 days or longer** to keep funds in the vault via promotion campaigns.",
	)
	return sec, nil
}
