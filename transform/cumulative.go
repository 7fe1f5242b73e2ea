package transform

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SortByKey returns copies of keys and counts ordered by ascending key.
func SortByKey(keys []int, counts []float64) ([]int, []float64) {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })

	sk := make([]int, len(keys))
	sc := make([]float64, len(counts))
	for i, j := range idx {
		sk[i] = keys[j]
		sc[i] = counts[j]
	}
	return sk, sc
}

// Cumulative returns the running sum of counts divided by their total. For
// non-negative counts the result is non-decreasing and its last element is
// exactly 1.
func Cumulative(counts []float64) ([]float64, error) {
	if err := checkCounts(counts); err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, ErrZeroTotal
	}
	out := floats.CumSum(make([]float64, len(counts)), counts)
	// The last running sum is the divisor so the final share is exactly 1.
	total := out[len(out)-1]
	if total == 0 {
		return nil, ErrZeroTotal
	}
	for i := range out {
		out[i] /= total
	}
	return out, nil
}

// Coverage returns the share of the total count whose key k satisfies
// lo <= k < hi.
func Coverage(keys []int, counts []float64, lo, hi int) (float64, error) {
	if err := checkCounts(counts); err != nil {
		return 0, err
	}
	total := Sum(counts)
	if total == 0 {
		return 0, ErrZeroTotal
	}
	var in float64
	for i, k := range keys {
		if k >= lo && k < hi {
			in += counts[i]
		}
	}
	return in / total, nil
}
