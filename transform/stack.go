package transform

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Status values of a stacked row.
const (
	StatusNotEarly = "Not unlocked early"
	StatusEarly    = "Unlocked early"
)

// Statuses lists the stack statuses in drawing order.
var Statuses = []string{StatusNotEarly, StatusEarly}

// ErrExceedsTotal is returned when a sub-count is larger than its total.
var ErrExceedsTotal = errors.New("sub-count exceeds total")

// StackedRow is one (bucket, status) segment of a stacked bar.
type StackedRow struct {
	Bucket string
	Status string
	Count  float64
	Total  float64
	Pct    float64
	Label  string
}

// Stack reshapes one row per bucket with a total and an early sub-count into
// two rows per bucket: the part not unlocked early and the part unlocked
// early. All not-early rows come first, then all early rows, each group in
// input order. Pct is the segment's share of its bucket total.
func Stack(buckets []string, locks, early []float64) ([]StackedRow, error) {
	if len(locks) != len(buckets) || len(early) != len(buckets) {
		return nil, fmt.Errorf("stack: %d buckets, %d totals, %d sub-counts", len(buckets), len(locks), len(early))
	}

	notEarly := make([]float64, len(buckets))
	for i, b := range buckets {
		if locks[i] < 0 || early[i] < 0 {
			return nil, fmt.Errorf("bucket %q: %w", b, ErrNegative)
		}
		if early[i] > locks[i] {
			return nil, fmt.Errorf("bucket %q: %v of %v: %w", b, early[i], locks[i], ErrExceedsTotal)
		}
		notEarly[i] = locks[i] - early[i]
	}

	// Totals are taken over the long form so repeated bucket labels combine.
	totals := make(map[string]float64, len(buckets))
	for i, b := range buckets {
		totals[b] += notEarly[i] + early[i]
	}
	for _, b := range buckets {
		if totals[b] == 0 {
			return nil, fmt.Errorf("bucket %q: %w", b, ErrZeroTotal)
		}
	}

	rows := make([]StackedRow, 0, 2*len(buckets))
	for _, part := range []struct {
		status string
		counts []float64
	}{
		{StatusNotEarly, notEarly},
		{StatusEarly, early},
	} {
		for i, b := range buckets {
			pct := part.counts[i] / totals[b]
			rows = append(rows, StackedRow{
				Bucket: b,
				Status: part.status,
				Count:  part.counts[i],
				Total:  totals[b],
				Pct:    pct,
				Label:  PctLabel(pct),
			})
		}
	}
	return rows, nil
}

// PctLabel formats a fraction as a percentage rounded to one decimal, half to
// even, e.g. 0.125 -> "12.5%".
func PctLabel(frac float64) string {
	v := math.RoundToEven(frac*1000) / 10
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}
