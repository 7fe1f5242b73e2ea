package transform

import (
	"errors"
	"sort"
	"time"
)

// ErrNoPeriods is returned when a snapshot is requested over no observations.
var ErrNoPeriods = errors.New("no periods")

// Observation is one value of a category in a period.
type Observation struct {
	Period   time.Time
	Category string
	Value    float64
}

// Periods returns the distinct periods of obs in ascending order.
func Periods(obs []Observation) []time.Time {
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, o := range obs {
		p := o.Period.UTC()
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// SumAt adds the values of the given categories in period. Duplicate rows are
// summed. With no categories every row of the period counts.
func SumAt(obs []Observation, period time.Time, categories ...string) float64 {
	want := make(map[string]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}
	var s float64
	for _, o := range obs {
		if !o.Period.Equal(period) {
			continue
		}
		if len(want) > 0 && !want[o.Category] {
			continue
		}
		s += o.Value
	}
	return s
}

// Snapshot is an aggregate at the latest period, with the same aggregate at
// the period before it when one exists.
type Snapshot struct {
	Latest        time.Time
	Value         float64
	Previous      time.Time
	PreviousValue float64
	HasPrevious   bool
}

// Delta returns Value - PreviousValue, or false when there is no previous
// period.
func (s Snapshot) Delta() (float64, bool) {
	if !s.HasPrevious {
		return 0, false
	}
	return s.Value - s.PreviousValue, true
}

// Latest sums the given categories at the latest period and at the previous
// distinct period. Latest and previous are the maximum and the maximum of the
// remainder of the distinct periods, so row order and duplicates do not
// matter.
func Latest(obs []Observation, categories ...string) (Snapshot, error) {
	periods := Periods(obs)
	if len(periods) == 0 {
		return Snapshot{}, ErrNoPeriods
	}
	latest := periods[len(periods)-1]
	s := Snapshot{
		Latest: latest,
		Value:  SumAt(obs, latest, categories...),
	}
	if len(periods) > 1 {
		prev := periods[len(periods)-2]
		s.Previous = prev
		s.PreviousValue = SumAt(obs, prev, categories...)
		s.HasPrevious = true
	}
	return s, nil
}
