// Package report builds the Vault Analytics report: one section per source
// table, each with a chart spec, a markdown narrative and the derived data
// behind the chart.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/zalepa/vaultstats/chart"
	"github.com/zalepa/vaultstats/table"
	"github.com/zalepa/vaultstats/transform"
)

// Title is the report heading.
const Title = "Vault Analytics"

// Section ids in report order.
const (
	LockDurationsID = "lock-durations"
	EarlyUnlocksID  = "early-unlocks"
	EarlyRateID     = "early-rate"
	AdoptionID      = "adoption"
	SupportHoursID  = "support-hours"
	RepeatEarlyID   = "repeat-early"
)

// Section titles, used as chart titles.
const (
	LockDurationsTitle = "Distribution of Lock Durations"
	EarlyUnlocksTitle  = "How Often Customers Unlock Before the Due Date"
	EarlyRateTitle     = "Percentage Unlocked Early per Bucket"
	AdoptionTitle      = "Adoption Share by Initiator"
	SupportHoursTitle  = "Cumulative share of Support-initiated unlocks by hour"
	RepeatEarlyTitle   = "Likelihood of Next Early Unlock — by Cohort (Monthly)"
)

// Fixed category orders. Labels use an en dash.
var (
	LockOrder = []string{
		">101 days", "90–101 days", "60–89 days", "30–59 days",
		"14–29 days", "7–13 days", "1–6 days", "<1 day",
	}
	EarlyOrder = []string{
		"<1 day early", "1–6 days early", "7–13 days early",
		"14–29 days early", "30–59 days early", "60–89 days early", "≥90 days early",
	}
	BucketOrder = []string{
		"<1 day", "1–6 days", "7–13 days", "14–29 days",
		"30–59 days", "60–89 days", "90–101 days", ">101 days",
	}
)

// Section is one chart with its narrative. A section that could not be built
// carries only its id, title and Err.
type Section struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Chart    chart.Spec `json:"chart"`
	Summary  string     `json:"summary"`
	Action   string     `json:"action,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`

	// Data is the derived table the chart is drawn from.
	Data *table.Table `json:"-"`
	Err  error        `json:"-"`
}

// Failed reports whether the section could not be built.
func (s *Section) Failed() bool { return s.Err != nil }

func (s *Section) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Report is the full page.
type Report struct {
	Title     string
	Generated time.Time
	Sections  []*Section
}

// Section returns the section with the given id.
func (r *Report) Section(id string) (*Section, bool) {
	for _, s := range r.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Failed returns the sections that could not be built.
func (r *Report) Failed() []*Section {
	var out []*Section
	for _, s := range r.Sections {
		if s.Failed() {
			out = append(out, s)
		}
	}
	return out
}

// SectionError is a failure to build one section.
type SectionError struct {
	ID    string
	Title string
	Err   error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %s failed: %v", e.Title, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// mustAppend adds a row to a derived table built with MustNew. Callers pass
// exactly one cell per header column.
func mustAppend(t *table.Table, cells ...string) {
	if err := t.Append(cells...); err != nil {
		panic(err)
	}
}

// uniqueLabels rejects a table that repeats a label in column. Bucket tables
// hold one row per bucket.
func uniqueLabels(t *table.Table, column string, labels []string) error {
	first := make(map[string]int, len(labels))
	for i, l := range labels {
		if j, ok := first[l]; ok {
			return &table.SchemaError{
				Table:  t.Name,
				Column: column,
				Line:   i + 2,
				Msg:    fmt.Sprintf("duplicate %s %q, first seen on line %d", column, l, j+2),
			}
		}
		first[l] = i
	}
	return nil
}

// ordered returns the indexes of labels in the fixed order followed by the
// indexes of labels outside it, and records a warning per unknown label.
func ordered(sec *Section, column string, labels, order []string) (charted, all []int) {
	idx, dropped := transform.Order(labels, order)
	for _, d := range dropped {
		sec.warnf("%s %q is not a known category and is not charted", column, d)
	}
	in := make(map[int]bool, len(idx))
	for _, i := range idx {
		in[i] = true
	}
	all = append(all, idx...)
	for i := range labels {
		if !in[i] {
			all = append(all, i)
		}
	}
	return idx, all
}
