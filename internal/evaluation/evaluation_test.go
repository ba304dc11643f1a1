package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval"
)

type fixedSearcher struct {
	results [][]string
	texts   map[string]string
	err     error
}

func (f fixedSearcher) Model() retrieval.Model { return retrieval.ModelBM25 }

func (f fixedSearcher) Search(_ context.Context, queries []string, _ int) ([][]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results[:len(queries)], nil
}

func (f fixedSearcher) Texts() map[string]string { return f.texts }

func TestRun_GradedAndExact(t *testing.T) {
	s := fixedSearcher{
		results: [][]string{{"a", "b", "c"}},
		texts: map[string]string{
			"a": "alpha chair",
			"b": "blue chair",
			"c": "red table",
			"q": "blue velvet chair",
		},
	}
	queries := []catalog.Query{{Text: "blue chair", Relevant: []string{"q"}}}

	report, err := Run(context.Background(), s, queries, 3, ranking.DefaultGain())
	require.NoError(t, err)
	assert.Equal(t, "bm25", report.Model)
	assert.Equal(t, 1, report.Queries)
	assert.Zero(t, report.MAP)
	assert.InDelta(t, 0.65, report.GradedMAP, 1e-12)
	assert.NotEmpty(t, report.ID)
	require.Len(t, report.PerQuery, 1)
	assert.InDelta(t, 0.65, report.PerQuery[0].GradedAP, 1e-12)
}

func TestRun_WithPipeline(t *testing.T) {
	p, err := retrieval.NewPipeline(retrieval.ModelLexical, retrieval.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, p.Fit([]catalog.Item{
		{ID: "1", Title: "Blue Chair", Description: "Velvet accent"},
		{ID: "2", Title: "Red Sofa", Description: "Leather"},
		{ID: "3", Title: "Wood Table", Description: "Dining"},
	}))
	queries := []catalog.Query{
		{Text: "blue velvet", Relevant: []string{"1"}},
		{Text: "leather sofa", Relevant: []string{"2"}},
	}
	report, err := Run(context.Background(), p, queries, 2, ranking.DefaultGain())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, report.MAP, 1e-12)
	assert.InDelta(t, 0.5, report.MeanPrecision, 1e-12)
	assert.GreaterOrEqual(t, report.GradedMAP, 0.0)
	assert.LessOrEqual(t, report.GradedMAP, 1.0)
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(context.Background(), fixedSearcher{}, nil, 0, ranking.DefaultGain())
	assert.ErrorIs(t, err, ErrInvalidK)

	boom := errors.New("boom")
	_, err = Run(context.Background(), fixedSearcher{err: boom}, []catalog.Query{{Text: "x"}}, 1, ranking.DefaultGain())
	assert.ErrorIs(t, err, boom)
}

func TestRun_NoQueries(t *testing.T) {
	report, err := Run(context.Background(), fixedSearcher{}, nil, 5, ranking.DefaultGain())
	require.NoError(t, err)
	assert.Zero(t, report.MAP)
	assert.Zero(t, report.GradedMAP)
	assert.Zero(t, report.MeanPrecision)
}

func TestReport_Write(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{K: 10, MAP: 0.5, GradedMAP: 0.65432}
	require.NoError(t, r.Write(&buf))
	assert.Equal(t, "MAP@10: 0.5000\nGraded MAP@10 (partial-match aware): 0.6543\n", buf.String())
}

func TestReport_WriteJSON(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{Model: "bm25", K: 3, MAP: 0.25}
	require.NoError(t, r.WriteJSON(&buf))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "bm25", decoded["model"])
	assert.Equal(t, 0.25, decoded["map"])
}
