package rfm

import "sort"

// Buckets is the number of quantile buckets a full score range uses.
const Buckets = 5

// QuantileEdges returns the q+1 bucket edges of sorted at probabilities
// 0, 1/q, ..., 1 using linear interpolation between closest ranks
// (Hyndman-Fan type 7, the numpy/pandas default). The position of edge i is
// (n-1)*i/q, computed in integers so the fractional part is exact.
func QuantileEdges(sorted []float64, q int) []float64 {
	n := len(sorted)
	if n == 0 || q <= 0 {
		return nil
	}
	edges := make([]float64, q+1)
	for i := 0; i <= q; i++ {
		num := (n - 1) * i
		lo, rem := num/q, num%q
		v := sorted[lo]
		if rem > 0 {
			v += (sorted[lo+1] - sorted[lo]) * float64(rem) / float64(q)
		}
		edges[i] = v
	}
	return edges
}

// dedupe drops repeated edges from an ascending slice.
func dedupe(edges []float64) []float64 {
	out := edges[:0:0]
	for i, e := range edges {
		if i == 0 || e != out[len(out)-1] {
			out = append(out, e)
		}
	}
	return out
}

// Score bins values into up to q quantile buckets computed over the whole
// slice and returns one label per value. Buckets are right-closed with the
// lowest edge included. Duplicate edges are dropped, so a population with
// too few distinct values yields k < q buckets instead of failing; labels
// then run 1..k (ascending) or k..1 (descending, smaller value = higher label).
func Score(values []float64, q int, descending bool) []int {
	scores := make([]int, len(values))
	if len(values) == 0 {
		return scores
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	edges := dedupe(QuantileEdges(sorted, q))

	k := len(edges) - 1
	for i, v := range values {
		bucket := 1
		if k > 0 {
			bucket = sort.SearchFloat64s(edges[1:], v) + 1
		}
		if descending {
			scores[i] = max(k, 1) + 1 - bucket
		} else {
			scores[i] = bucket
		}
	}
	return scores
}

// RankFirst returns the 1-based ascending rank of n items ordered by less.
// Equal items are ranked in input order, so every item gets a distinct rank.
func RankFirst(n int, less func(i, j int) bool) []float64 {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return less(order[a], order[b]) })
	ranks := make([]float64, n)
	for pos, idx := range order {
		ranks[idx] = float64(pos + 1)
	}
	return ranks
}
