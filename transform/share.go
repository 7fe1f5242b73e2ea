// Package transform holds the small deterministic computations applied to
// loaded tables before they are charted: shares, fixed category orders,
// wide-to-long reshapes, weighted rates, period snapshots and cumulative
// shares.
package transform

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrZeroTotal is returned when a divisor sums to zero, including the
	// empty-input case.
	ErrZeroTotal = errors.New("total is zero")

	// ErrNegative is returned when a count is negative.
	ErrNegative = errors.New("negative count")
)

// Sum adds vals. The empty sum is zero.
func Sum(vals []float64) float64 {
	return floats.Sum(vals)
}

// Shares divides each count by the total of all counts.
func Shares(counts []float64) ([]float64, error) {
	if err := checkCounts(counts); err != nil {
		return nil, err
	}
	total := Sum(counts)
	if total == 0 {
		return nil, ErrZeroTotal
	}
	out := make([]float64, len(counts))
	for i, c := range counts {
		out[i] = c / total
	}
	return out, nil
}

func checkCounts(counts []float64) error {
	for i, c := range counts {
		if c < 0 {
			return fmt.Errorf("row %d: %v: %w", i+1, c, ErrNegative)
		}
	}
	return nil
}
