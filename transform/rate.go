package transform

import "fmt"

// Rate is the ratio of a numerator to a denominator for one group.
type Rate struct {
	Group string
	Num   float64
	Den   float64
	Rate  float64
}

// Rates computes num/den per group and the overall rate Σnum/Σden. The
// overall rate is weighted by group size; it is not the mean of the group
// rates.
func Rates(groups []string, num, den []float64) ([]Rate, float64, error) {
	if len(num) != len(groups) || len(den) != len(groups) {
		return nil, 0, fmt.Errorf("rates: %d groups, %d numerators, %d denominators", len(groups), len(num), len(den))
	}
	if err := checkCounts(num); err != nil {
		return nil, 0, err
	}
	if err := checkCounts(den); err != nil {
		return nil, 0, err
	}

	totalDen := Sum(den)
	if totalDen == 0 {
		return nil, 0, ErrZeroTotal
	}

	rates := make([]Rate, len(groups))
	for i, g := range groups {
		if den[i] == 0 {
			return nil, 0, fmt.Errorf("group %q: %w", g, ErrZeroTotal)
		}
		rates[i] = Rate{Group: g, Num: num[i], Den: den[i], Rate: num[i] / den[i]}
	}
	return rates, Sum(num) / totalDen, nil
}

// RateOf returns the rate for group and whether the group was present.
func RateOf(rates []Rate, group string) (float64, bool) {
	for _, r := range rates {
		if r.Group == group {
			return r.Rate, true
		}
	}
	return 0, false
}
