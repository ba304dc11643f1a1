package ranking

import (
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/textproc"
)

// DefaultGainThreshold is the smallest non-exact gain that counts.
const DefaultGainThreshold = 0.2

const (
	tokenShare = 0.6
	charShare  = 0.4
)

var overlapSizes = [...]int{3, 4, 5}

// TokenJaccard is the intersection over union of the token sets of a and b,
// 0 when either side has no tokens.
func TokenJaccard(a, b string) float64 {
	return jaccard(toSet(textproc.Tokenize(a)), toSet(textproc.Tokenize(b)))
}

// CharOverlap is the intersection over union of the combined 3, 4 and
// 5-character n-gram sets of a and b.
func CharOverlap(a, b string) float64 {
	return jaccard(charGramSet(a), charGramSet(b))
}

func charGramSet(s string) map[string]struct{} {
	joined := textproc.JoinedText(s)
	set := make(map[string]struct{})
	for _, n := range overlapSizes {
		for _, g := range textproc.CharNGramsOf(joined, n) {
			set[g] = struct{}{}
		}
	}
	return set
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Gain computes graded relevance with a configurable cutoff.
type Gain struct {
	Threshold float64
}

// DefaultGain uses DefaultGainThreshold.
func DefaultGain() Gain {
	return Gain{Threshold: DefaultGainThreshold}
}

// Of returns 1 for exact matches. Otherwise it blends token Jaccard and
// character overlap 0.6/0.4 and returns the blend only when it reaches the
// threshold.
func (g Gain) Of(query, candidate string, exact bool) float64 {
	if exact {
		return 1
	}
	v := tokenShare*TokenJaccard(query, candidate) + charShare*CharOverlap(query, candidate)
	if v >= g.Threshold {
		return v
	}
	return 0
}

// AveragePrecisionAtK averages gain(i) * nonzero(1..i)/i over every
// position i within the first k whose gain is nonzero. texts maps an id to
// the text compared against query; unknown ids compare as "".
func (g Gain) AveragePrecisionAtK(retrieved []string, gold map[string]struct{}, k int, query string, texts map[string]string) float64 {
	var relevant int
	var sum float64
	for i, id := range prefix(retrieved, k) {
		_, exact := gold[id]
		gain := g.Of(query, texts[id], exact)
		if gain <= 0 {
			continue
		}
		relevant++
		sum += gain * float64(relevant) / float64(i+1)
	}
	if relevant == 0 {
		return 0
	}
	return sum / float64(relevant)
}

// MAPAtK averages graded AP over the zipped (retrieved, gold, query)
// triples.
func (g Gain) MAPAtK(allRetrieved [][]string, allGold [][]string, queries []string, texts map[string]string, k int) float64 {
	n := min(len(allRetrieved), len(allGold), len(queries))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += g.AveragePrecisionAtK(allRetrieved[i], GoldSet(allGold[i]), k, queries[i], texts)
	}
	return sum / float64(n)
}

// GradedGain is DefaultGain().Of.
func GradedGain(query, candidate string, exact bool) float64 {
	return DefaultGain().Of(query, candidate, exact)
}

func GradedAveragePrecisionAtK(retrieved []string, gold map[string]struct{}, k int, query string, texts map[string]string) float64 {
	return DefaultGain().AveragePrecisionAtK(retrieved, gold, k, query, texts)
}

func GradedMAPAtK(allRetrieved [][]string, allGold [][]string, queries []string, texts map[string]string, k int) float64 {
	return DefaultGain().MAPAtK(allRetrieved, allGold, queries, texts, k)
}
