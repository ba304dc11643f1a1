package bm25

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
)

func furniture() []catalog.Item {
	return []catalog.Item{
		{ID: "1", Title: "Blue Chair", Description: "Velvet accent"},
		{ID: "2", Title: "Red Sofa", Description: "Leather"},
		{ID: "3", Title: "Wood Table", Description: "Dining"},
	}
}

func fitted(t *testing.T, items []catalog.Item) *Index {
	t.Helper()
	idx := New(DefaultConfig())
	require.NoError(t, idx.Fit(items))
	return idx
}

func TestIDF(t *testing.T) {
	assert.InDelta(t, math.Log(1+2.5/1.5), IDF(3, 1), 1e-12)
	assert.InDelta(t, math.Log(1+0.5/3.5), IDF(3, 3), 1e-12)
	assert.Greater(t, IDF(10, 1), IDF(10, 9))
}

func TestFit_Statistics(t *testing.T) {
	idx := fitted(t, furniture())
	assert.Equal(t, 3, idx.Len())
	assert.InDelta(t, 10.0/3.0, idx.AvgDocLength(), 1e-12)
	v, ok := idx.IDFOf("blue")
	require.True(t, ok)
	assert.InDelta(t, IDF(3, 1), v, 1e-12)
	_, ok = idx.IDFOf("missing")
	assert.False(t, ok)
}

func TestScore_MatchesFormula(t *testing.T) {
	idx := fitted(t, furniture())
	scores := idx.Score("blue")
	k1, b := 1.5, 0.75
	avg := 10.0 / 3.0
	want := IDF(3, 1) * (1 * (k1 + 1)) / (1 + k1*(1-b+b*(4/(avg+epsilon))) + epsilon)
	assert.InDelta(t, want, scores[0], 1e-9)
	assert.Zero(t, scores[1])
	assert.Zero(t, scores[2])
}

func TestScore_DuplicateQueryTokensCountTwice(t *testing.T) {
	idx := fitted(t, furniture())
	once := idx.Score("blue")[0]
	twice := idx.Score("blue blue")[0]
	assert.InDelta(t, 2*once, twice, 1e-12)
}

func TestScore_EmptyDocumentsSkipped(t *testing.T) {
	items := append(furniture(), catalog.Item{ID: "4"})
	idx := fitted(t, items)
	for _, s := range idx.Score("blue chair") {
		assert.False(t, math.IsNaN(s) || math.IsInf(s, 0))
	}
	assert.Zero(t, idx.Score("blue")[3])
}

func TestSearch(t *testing.T) {
	idx := fitted(t, furniture())
	got, err := idx.Search([]string{"red leather sofa", "dining"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, got[0][0])
	assert.Equal(t, 2, got[1][0])
	assert.Len(t, got[1], 2)
}

func TestSearch_Errors(t *testing.T) {
	_, err := New(DefaultConfig()).Search([]string{"x"}, 1)
	assert.ErrorIs(t, err, ErrNotFitted)

	idx := fitted(t, furniture())
	_, err = idx.Search([]string{"x"}, -1)
	assert.ErrorIs(t, err, ErrInvalidK)
	assert.ErrorIs(t, idx.Fit(nil), ErrAlreadyFitted)
}

func TestSearch_EmptyCorpus(t *testing.T) {
	idx := fitted(t, nil)
	got, err := idx.Search([]string{"a"}, 3)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{}}, got)
}

func TestSearch_AllEmptyDocuments(t *testing.T) {
	idx := fitted(t, []catalog.Item{{ID: "a"}, {ID: "b"}})
	got, err := idx.Search([]string{"anything"}, 5)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}}, got)
}

func BenchmarkSearch(b *testing.B) {
	items := make([]catalog.Item, 5000)
	for i := range items {
		items[i] = catalog.Item{
			ID:          fmt.Sprint(i),
			Title:       fmt.Sprintf("product %d model %d", i, i%97),
			Description: fmt.Sprintf("colour %d material %d size %d", i%13, i%7, i%5),
		}
	}
	idx := New(DefaultConfig())
	if err := idx.Fit(items); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Search([]string{"product model 42", "colour 3"}, 10); err != nil {
			b.Fatal(err)
		}
	}
}
