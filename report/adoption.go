package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/zalepa/vaultstats/chart"
	"github.com/zalepa/vaultstats/narrative"
	"github.com/zalepa/vaultstats/table"
	"github.com/zalepa/vaultstats/transform"
)

// Initiators named in the adoption narrative.
const (
	InitiatorChatbot  = "CHATBOT"
	InitiatorIVR      = "IVR"
	InitiatorSupport  = "SUPPORT"
	InitiatorCustomer = "CUSTOMER"
)

var adoptionAliases = map[string]string{
	"LOCK_UNLOCK_INITIATOR": "initiator",
	"STATE":                 "state",
	"num_of_unlocks":        "count",
}

var initiatorAliases = map[string]string{
	"INTERACTIVE_VOICE_RESPONSE": InitiatorIVR,
}

type adoptionRow struct {
	obs   transform.Observation
	count float64
}

// Adoption builds the unlock share per initiator over time from a table with
// period, initiator, state and pct columns and an optional count column.
// Only UNLOCKED rows are used.
func Adoption(t *table.Table) (*Section, error) {
	sec := &Section{ID: AdoptionID, Title: AdoptionTitle}

	t, err := t.Rename(adoptionAliases)
	if err != nil {
		return nil, err
	}
	periods, err := t.Strings("period")
	if err != nil {
		return nil, err
	}
	initiators, err := t.Strings("initiator")
	if err != nil {
		return nil, err
	}
	states, err := t.Strings("state")
	if err != nil {
		return nil, err
	}
	pcts, err := t.FloatsOrNaN("pct")
	if err != nil {
		return nil, err
	}
	var counts []float64
	if t.Has("count") {
		if counts, err = t.FloatsOrNaN("count"); err != nil {
			return nil, err
		}
	}

	var rows []adoptionRow
	for i := range periods {
		if !strings.EqualFold(states[i], "UNLOCKED") {
			continue
		}
		p, err := parsePeriod(periods[i])
		if err != nil {
			sec.warnf("line %d: %v; row skipped", i+2, err)
			continue
		}
		if math.IsNaN(pcts[i]) {
			sec.warnf("line %d: pct is not a number; row skipped", i+2)
			continue
		}
		who := strings.TrimSpace(initiators[i])
		if alias, ok := initiatorAliases[strings.ToUpper(who)]; ok {
			who = alias
		}
		r := adoptionRow{obs: transform.Observation{Period: p, Category: who, Value: pcts[i]}}
		if counts != nil {
			r.count = counts[i]
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no UNLOCKED rows: %w", transform.ErrNoPeriods)
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].obs.Period.Before(rows[b].obs.Period) })

	obs := make([]transform.Observation, len(rows))
	sec.Data = table.MustNew(sec.ID, "period", "initiator", "pct", "label")
	var series []chart.Series
	pos := make(map[string]int)
	for i, r := range rows {
		obs[i] = r.obs
		label := transform.PctLabel(r.obs.Value)
		mustAppend(sec.Data, r.obs.Period.Format("2006-01-02"), r.obs.Category, formatFloat(r.obs.Value), label)

		k, ok := pos[r.obs.Category]
		if !ok {
			k = len(series)
			pos[r.obs.Category] = k
			series = append(series, chart.Series{Name: r.obs.Category})
		}
		series[k].Points = append(series[k].Points, chart.Point{Time: r.obs.Period, Value: r.obs.Value, Text: label})
	}
	sec.Chart = chart.Spec{
		ID:      sec.ID,
		Title:   sec.Title,
		Kind:    chart.Line,
		X:       chart.Axis{Title: "Period", Field: "period", Kind: chart.Time, TimeFormat: "2006-01"},
		Y:       chart.Axis{Title: "Share of Unlocks", Field: "pct", Kind: chart.Linear, TickFormat: ".0%", Range: &chart.Range{Min: 0, Max: 1}},
		Color:   "initiator",
		Markers: true,
		Series:  series,
	}

	selfServe, err := transform.Latest(obs, InitiatorChatbot, InitiatorIVR)
	if err != nil {
		return nil, err
	}
	support, _ := transform.Latest(obs, InitiatorSupport)
	customer, _ := transform.Latest(obs, InitiatorCustomer)

	mom := func(s transform.Snapshot) string {
		if d, ok := s.Delta(); ok {
			return fmt.Sprintf(" (%s MoM)", narrative.SignedPercent(d, 1))
		}
		return ""
	}
	summary := fmt.Sprintf("**Summary (%s):** Self-serve (Chatbot + IVR) %s%s, Support %s%s, Customer %s.",
		monthLabel(selfServe.Latest),
		narrative.Bold(narrative.Percent(selfServe.Value, 0)), mom(selfServe),
		narrative.Bold(narrative.Percent(support.Value, 0)), mom(support),
		narrative.Bold(narrative.Percent(customer.Value, 0)),
	)
	if counts != nil {
		var total float64
		for _, r := range rows {
			if r.obs.Period.Equal(selfServe.Latest) && !math.IsNaN(r.count) {
				total += r.count
			}
		}
		summary += fmt.Sprintf(" Total unlocks %s.", narrative.Bold(narrative.Thousands(int64(total))))
	}
	sec.Summary = summary
	sec.Action = "**Action:** Make self-serve the default **Unlock** CTA—route users to Chatbot/IVR first and keep Support as fallback. " +
		"Set a short-term target of **≥75% self-serve share** and monitor completion rate and CSAT to ensure quality."
	return sec, nil
}
