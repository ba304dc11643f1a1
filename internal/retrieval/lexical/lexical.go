// Package lexical implements the hybrid TF-IDF index: a word n-gram space
// and a character n-gram space, each scored by cosine similarity and fused
// by a weighted sum.
//
// Both spaces are stored as inverted indexes (term to postings) with a
// dense per-document norm. Title and description contribute term counts
// multiplied by their integer field weights.
package lexical

import (
	"errors"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval/topk"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/textproc"
)

var (
	ErrAlreadyFitted = errors.New("lexical: index already fitted")
	ErrNotFitted     = errors.New("lexical: search before fit")
	ErrInvalidK      = topk.ErrInvalidK
)

type Config struct {
	WordNgramMin    int
	WordNgramMax    int
	CharNgramMin    int
	CharNgramMax    int
	TitleWeight     float64
	DescWeight      float64
	MaxFeaturesWord int // 0 keeps every term
	MaxFeaturesChar int // 0 keeps every term
	MinTokenLength  int
	WordWeight      float64
	CharWeight      float64
}

func DefaultConfig() Config {
	return Config{
		WordNgramMin:    1,
		WordNgramMax:    2,
		CharNgramMin:    3,
		CharNgramMax:    5,
		TitleWeight:     2,
		DescWeight:      1,
		MaxFeaturesWord: 50000,
		MaxFeaturesChar: 80000,
		MinTokenLength:  2,
		WordWeight:      1,
		CharWeight:      1,
	}
}

type Posting struct {
	Doc    int
	Weight float64
}

type Index struct {
	cfg    Config
	word   *space
	char   *space
	n      int
	fitted bool
}

func New(cfg Config) *Index {
	return &Index{cfg: cfg}
}

// Len returns the number of fitted documents.
func (x *Index) Len() int { return x.n }

// Fit builds both term spaces from items. An index can be fitted once.
func (x *Index) Fit(items []catalog.Item) error {
	if x.fitted {
		return ErrAlreadyFitted
	}
	tw := fieldWeight(x.cfg.TitleWeight)
	dw := fieldWeight(x.cfg.DescWeight)

	wordDocs := make([]termCounts, len(items))
	charDocs := make([]termCounts, len(items))
	for i, it := range items {
		wc := termCounts{}
		wc.add(x.wordTerms(it.Title), tw)
		wc.add(x.wordTerms(it.Description), dw)
		wordDocs[i] = wc

		cc := termCounts{}
		cc.add(x.charTerms(it.Title), tw)
		cc.add(x.charTerms(it.Description), dw)
		charDocs[i] = cc
	}

	x.word = buildSpace(wordDocs, x.cfg.MaxFeaturesWord)
	x.char = buildSpace(charDocs, x.cfg.MaxFeaturesChar)
	x.n = len(items)
	x.fitted = true
	return nil
}

// scoreScale is the resolution fused scores are rounded to. Documents whose
// cosines agree to within it tie and fall back to corpus order.
const scoreScale = 1e12

// Score returns the fused cosine score of query against every document.
// Terms not seen during Fit are ignored.
func (x *Index) Score(query string) []float64 {
	if !x.fitted {
		return nil
	}
	scores := make([]float64, x.n)
	if x.cfg.WordWeight != 0 {
		qc := termCounts{}
		qc.add(x.wordTerms(query), 1)
		x.word.accumulate(qc, x.cfg.WordWeight, scores)
	}
	if x.cfg.CharWeight != 0 {
		qc := termCounts{}
		qc.add(x.charTerms(query), 1)
		x.char.accumulate(qc, x.cfg.CharWeight, scores)
	}
	for d, s := range scores {
		scores[d] = math.Round(s*scoreScale) / scoreScale
	}
	return scores
}

// Search returns the top-k document rows for each query.
func (x *Index) Search(queries []string, k int) ([][]int, error) {
	if !x.fitted {
		return nil, ErrNotFitted
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if x.n == 0 {
		out := make([][]int, len(queries))
		for i := range out {
			out[i] = []int{}
		}
		return out, nil
	}
	return topk.SelectBatch(queries, k, x.Score)
}

// Vocabulary returns the sizes of the word and char vocabularies.
func (x *Index) Vocabulary() (word, char int) {
	if !x.fitted {
		return 0, 0
	}
	return len(x.word.vocab), len(x.char.vocab)
}

func (x *Index) wordTerms(text string) []string {
	tokens := textproc.Tokenize(text)
	kept := tokens[:0]
	for _, t := range tokens {
		if len(t) >= x.cfg.MinTokenLength {
			kept = append(kept, t)
		}
	}
	return textproc.WordNGrams(kept, x.cfg.WordNgramMin, x.cfg.WordNgramMax)
}

func (x *Index) charTerms(text string) []string {
	joined := textproc.JoinedText(text)
	var grams []string
	for n := x.cfg.CharNgramMin; n <= x.cfg.CharNgramMax; n++ {
		grams = append(grams, textproc.CharNGramsOf(joined, n)...)
	}
	return grams
}

func fieldWeight(w float64) float64 {
	if math.IsNaN(w) {
		return 1
	}
	return math.Max(1, math.Floor(w))
}

type termCounts map[string]float64

func (c termCounts) add(terms []string, weight float64) {
	for _, t := range terms {
		c[t] += weight
	}
}

// space is one fitted term space.
type space struct {
	vocab    map[string]int
	idf      []float64
	postings [][]Posting
	norms    []float64
}

func buildSpace(docs []termCounts, maxFeatures int) *space {
	df := make(map[string]int)
	total := make(map[string]float64)
	for _, doc := range docs {
		for term, c := range doc {
			df[term]++
			total[term] += c
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if maxFeatures > 0 && len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	s := &space{
		vocab:    make(map[string]int, len(terms)),
		idf:      make([]float64, len(terms)),
		postings: make([][]Posting, len(terms)),
		norms:    make([]float64, len(docs)),
	}
	for id, term := range terms {
		s.vocab[term] = id
		s.idf[id] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	for d, doc := range docs {
		var sq float64
		for _, wt := range s.weigh(doc) {
			s.postings[wt.id] = append(s.postings[wt.id], Posting{Doc: d, Weight: wt.w})
			sq += wt.w * wt.w
		}
		s.norms[d] = math.Sqrt(sq)
	}
	return s
}

type weightedTerm struct {
	id int
	w  float64
}

// weigh returns the in-vocabulary tf*idf weights of counts ordered by term
// id, so sums over them are identical across fits.
func (s *space) weigh(counts termCounts) []weightedTerm {
	out := make([]weightedTerm, 0, len(counts))
	for term, c := range counts {
		if id, ok := s.vocab[term]; ok {
			out = append(out, weightedTerm{id: id, w: c * s.idf[id]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// accumulate adds weight * cos(query, doc) to scores for every document
// sharing a term with the query.
func (s *space) accumulate(query termCounts, weight float64, scores []float64) {
	qterms := s.weigh(query)
	var qsq float64
	for _, qt := range qterms {
		qsq += qt.w * qt.w
	}
	if qsq == 0 {
		return
	}
	qnorm := math.Sqrt(qsq)

	dots := make(map[int]float64)
	for _, qt := range qterms {
		for _, p := range s.postings[qt.id] {
			dots[p.Doc] += qt.w * p.Weight
		}
	}
	for d, dot := range dots {
		if dn := s.norms[d]; dn > 0 {
			scores[d] += weight * dot / (qnorm * dn)
		}
	}
}
