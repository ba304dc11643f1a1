// Package retrieval selects a scoring model, fits it over a catalog and
// answers batched queries with ranked item ids.
package retrieval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval/bm25"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval/lexical"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/config"
)

var ErrUnknownModel = errors.New("unknown retrieval model")

// Model names a scoring strategy.
type Model int

const (
	ModelLexical Model = iota + 1
	ModelBM25
)

func (m Model) String() string {
	switch m {
	case ModelLexical:
		return "tfidf_char_word"
	case ModelBM25:
		return "bm25"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// ParseModel accepts "tfidf_char_word", its alias "tfidf", and "bm25",
// case-insensitively.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tfidf_char_word", "tfidf":
		return ModelLexical, nil
	case "bm25":
		return ModelBM25, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
}

func (m Model) MarshalText() ([]byte, error) {
	if m != ModelLexical && m != ModelBM25 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModel, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Model) UnmarshalText(b []byte) error {
	parsed, err := ParseModel(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Index is the capability every model implements. Rows returned by Search
// are positions in the slice passed to Fit.
type Index interface {
	Fit(items []catalog.Item) error
	Search(queries []string, k int) ([][]int, error)
	Len() int
}

// Options carries per-model tuning.
type Options struct {
	Lexical lexical.Config
	BM25    bm25.Config
	Workers int
}

func DefaultOptions() Options {
	return Options{
		Lexical: lexical.DefaultConfig(),
		BM25:    bm25.DefaultConfig(),
		Workers: 1,
	}
}

// OptionsFromConfig maps the retrieval section of the application config.
func OptionsFromConfig(cfg config.RetrievalConfig) Options {
	l := cfg.Lexical
	return Options{
		Lexical: lexical.Config{
			WordNgramMin:    l.WordNgramMin,
			WordNgramMax:    l.WordNgramMax,
			CharNgramMin:    l.CharNgramMin,
			CharNgramMax:    l.CharNgramMax,
			TitleWeight:     l.TitleWeight,
			DescWeight:      l.DescWeight,
			MaxFeaturesWord: l.MaxFeaturesWord,
			MaxFeaturesChar: l.MaxFeaturesChar,
			MinTokenLength:  l.MinTokenLength,
			WordWeight:      l.WordWeight,
			CharWeight:      l.CharWeight,
		},
		BM25:    bm25.Config{K1: cfg.BM25.K1, B: cfg.BM25.B},
		Workers: cfg.Workers,
	}
}

func newIndex(m Model, opts Options) (Index, error) {
	switch m {
	case ModelLexical:
		return lexical.New(opts.Lexical), nil
	case ModelBM25:
		return bm25.New(opts.BM25), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownModel, int(m))
	}
}
