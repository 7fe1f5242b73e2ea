package transform

import "sort"

// Order returns the indexes of labels arranged by each label's position in
// order. Rows sharing a label keep their input order. Labels that do not
// appear in order are left out of idx and reported once each in dropped, in
// the order they are first seen.
func Order(labels, order []string) (idx []int, dropped []string) {
	rank := make(map[string]int, len(order))
	for i, o := range order {
		if _, ok := rank[o]; !ok {
			rank[o] = i
		}
	}

	seen := make(map[string]bool)
	for i, l := range labels {
		if _, ok := rank[l]; ok {
			idx = append(idx, i)
			continue
		}
		if !seen[l] {
			seen[l] = true
			dropped = append(dropped, l)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return rank[labels[idx[a]]] < rank[labels[idx[b]]]
	})
	return idx, dropped
}
