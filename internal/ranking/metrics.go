// Package ranking scores ranked id lists against relevance labels: exact
// precision, AP and MAP at k, plus a graded variant that credits partial
// textual matches.
package ranking

// GoldSet builds the lookup set for a list of relevant ids.
func GoldSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func prefix(retrieved []string, k int) []string {
	if k <= 0 {
		return nil
	}
	if k < len(retrieved) {
		return retrieved[:k]
	}
	return retrieved
}

// PrecisionAtK is the fraction of the first k retrieved ids found in gold.
// The denominator is min(k, len(retrieved)), at least 1.
func PrecisionAtK(retrieved []string, gold map[string]struct{}, k int) float64 {
	top := prefix(retrieved, k)
	hits := 0
	for _, id := range top {
		if _, ok := gold[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(max(1, len(top)))
}

// AveragePrecisionAtK averages precision@i over the hit positions i within
// the first k. No hits gives 0.
func AveragePrecisionAtK(retrieved []string, gold map[string]struct{}, k int) float64 {
	var hits int
	var sum float64
	for i, id := range prefix(retrieved, k) {
		if _, ok := gold[id]; ok {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	if hits == 0 {
		return 0
	}
	return sum / float64(hits)
}

// MAPAtK is the mean AveragePrecisionAtK over paired queries. Extra entries
// on either side are ignored; no pairs gives 0.
func MAPAtK(allRetrieved [][]string, allGold [][]string, k int) float64 {
	n := min(len(allRetrieved), len(allGold))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += AveragePrecisionAtK(allRetrieved[i], GoldSet(allGold[i]), k)
	}
	return sum / float64(n)
}
