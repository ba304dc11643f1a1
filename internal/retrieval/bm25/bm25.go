// Package bm25 implements an Okapi BM25 index over the whitespace tokens of
// title and description.
package bm25

import (
	"errors"
	"math"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval/topk"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/textproc"
)

const epsilon = 1e-8

var (
	ErrAlreadyFitted = errors.New("bm25: index already fitted")
	ErrNotFitted     = errors.New("bm25: search before fit")
	ErrInvalidK      = topk.ErrInvalidK
)

type Config struct {
	K1 float64 // term frequency saturation
	B  float64 // length normalisation, 0 disables it
}

func DefaultConfig() Config {
	return Config{K1: 1.5, B: 0.75}
}

type posting struct {
	doc int
	tf  int
}

type Index struct {
	cfg      Config
	postings map[string][]posting
	idf      map[string]float64
	docLens  []int
	avgDL    float64
	fitted   bool
}

func New(cfg Config) *Index {
	return &Index{cfg: cfg}
}

func (x *Index) Len() int { return len(x.docLens) }

// AvgDocLength returns the mean token count of the fitted documents.
func (x *Index) AvgDocLength() float64 { return x.avgDL }

// Fit tokenizes each item and records document frequencies, Okapi IDF and
// length statistics.
func (x *Index) Fit(items []catalog.Item) error {
	if x.fitted {
		return ErrAlreadyFitted
	}
	x.postings = make(map[string][]posting)
	x.docLens = make([]int, len(items))
	var total int
	for d, it := range items {
		tokens := textproc.Tokenize(it.Title + " " + it.Description)
		x.docLens[d] = len(tokens)
		total += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term, c := range tf {
			x.postings[term] = append(x.postings[term], posting{doc: d, tf: c})
		}
	}
	if len(items) > 0 {
		x.avgDL = float64(total) / float64(len(items))
	}

	n := float64(len(items))
	x.idf = make(map[string]float64, len(x.postings))
	for term, ps := range x.postings {
		x.idf[term] = IDF(n, float64(len(ps)))
	}
	x.fitted = true
	return nil
}

// IDF is the Okapi inverse document frequency ln(1 + (n-df+0.5)/(df+0.5)).
func IDF(n, df float64) float64 {
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// IDFOf returns the fitted IDF of term and whether the term is known.
func (x *Index) IDFOf(term string) (float64, bool) {
	v, ok := x.idf[term]
	return v, ok
}

// Score returns the BM25 score of query against every document. Repeated
// query tokens contribute once per occurrence.
func (x *Index) Score(query string) []float64 {
	if !x.fitted {
		return nil
	}
	scores := make([]float64, len(x.docLens))
	k1, b := x.cfg.K1, x.cfg.B
	for _, tok := range textproc.Tokenize(query) {
		idf := x.idf[tok]
		for _, p := range x.postings[tok] {
			dl := x.docLens[p.doc]
			if dl == 0 {
				continue
			}
			tf := float64(p.tf)
			denom := tf + k1*(1-b+b*(float64(dl)/(x.avgDL+epsilon)))
			scores[p.doc] += idf * (tf * (k1 + 1)) / (denom + epsilon)
		}
	}
	return scores
}

func (x *Index) Search(queries []string, k int) ([][]int, error) {
	if !x.fitted {
		return nil, ErrNotFitted
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(x.docLens) == 0 {
		out := make([][]int, len(queries))
		for i := range out {
			out[i] = []int{}
		}
		return out, nil
	}
	return topk.SelectBatch(queries, k, x.Score)
}
