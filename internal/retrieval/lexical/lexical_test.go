package lexical

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

func fitted(t *testing.T, cfg Config, items []catalog.Item) *Index {
	t.Helper()
	idx := New(cfg)
	require.NoError(t, idx.Fit(items))
	return idx
}

func TestSearch_BlueVelvetRanksChairFirst(t *testing.T) {
	idx := fitted(t, DefaultConfig(), furniture())
	got, err := idx.Search([]string{"blue velvet"}, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0], 2)
	assert.Equal(t, 0, got[0][0])
}

func TestFit_Twice(t *testing.T) {
	idx := fitted(t, DefaultConfig(), furniture())
	assert.ErrorIs(t, idx.Fit(furniture()), ErrAlreadyFitted)
}

func TestSearch_Errors(t *testing.T) {
	idx := New(DefaultConfig())
	_, err := idx.Search([]string{"x"}, 3)
	assert.ErrorIs(t, err, ErrNotFitted)

	idx = fitted(t, DefaultConfig(), furniture())
	_, err = idx.Search([]string{"x"}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestSearch_EmptyCorpus(t *testing.T) {
	idx := fitted(t, DefaultConfig(), nil)
	got, err := idx.Search([]string{"a", "b"}, 5)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{}, {}}, got)
}

func TestScore_UnknownTermsScoreZero(t *testing.T) {
	idx := fitted(t, DefaultConfig(), furniture())
	for _, s := range idx.Score("zzzz qqqq") {
		assert.Zero(t, s)
	}
	got, err := idx.Search([]string{"zzzz"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got[0])
}

func TestScore_FiniteWithEmptyDocuments(t *testing.T) {
	items := append(furniture(), catalog.Item{ID: "4"}, catalog.Item{ID: "5", Title: "!!"})
	idx := fitted(t, DefaultConfig(), items)
	for _, q := range []string{"", "blue", "!!", "chair table sofa"} {
		for i, s := range idx.Score(q) {
			assert.False(t, math.IsNaN(s) || math.IsInf(s, 0), "query %q doc %d", q, i)
		}
	}
}

func TestScore_SelfSimilarityBounded(t *testing.T) {
	idx := fitted(t, DefaultConfig(), furniture())
	scores := idx.Score("Red Sofa Leather")
	for _, s := range scores {
		assert.LessOrEqual(t, s, 2.0+1e-9)
		assert.GreaterOrEqual(t, s, 0.0)
	}
	assert.Greater(t, scores[1], scores[0])
}

func TestFit_TitleWeightFavoursTitleMatches(t *testing.T) {
	items := []catalog.Item{
		{ID: "d", Title: "lamp", Description: "walnut"},
		{ID: "t", Title: "walnut", Description: "lamp"},
	}
	idx := fitted(t, DefaultConfig(), items)
	got, err := idx.Search([]string{"walnut"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got[0])
}

func TestFieldWeight(t *testing.T) {
	assert.Equal(t, 1.0, fieldWeight(0))
	assert.Equal(t, 1.0, fieldWeight(-3))
	assert.Equal(t, 2.0, fieldWeight(2.9))
	assert.Equal(t, 1.0, fieldWeight(math.NaN()))
}

func TestFit_MaxFeaturesKeepsHeaviestTerms(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFeaturesWord = 2
	cfg.WordNgramMax = 1
	items := []catalog.Item{
		{ID: "1", Title: "chair chair", Description: "oak"},
		{ID: "2", Title: "chair", Description: "pine"},
		{ID: "3", Title: "table", Description: "oak"},
	}
	idx := fitted(t, cfg, items)
	words, _ := idx.Vocabulary()
	assert.Equal(t, 2, words)
	_, ok := idx.word.vocab["chair"]
	assert.True(t, ok)
	_, ok = idx.word.vocab["oak"]
	assert.True(t, ok, "equal counts keep the lexicographically smaller term")
	_, ok = idx.word.vocab["table"]
	assert.False(t, ok)
}

func TestFit_ShortTokensExcludedFromWordSpace(t *testing.T) {
	idx := fitted(t, DefaultConfig(), []catalog.Item{{ID: "1", Title: "a b cd"}})
	_, ok := idx.word.vocab["a"]
	assert.False(t, ok)
	_, ok = idx.word.vocab["cd"]
	assert.True(t, ok)
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
	queries := []string{"product model 42", "colour 3 material 2"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Search(queries, 10); err != nil {
			b.Fatal(err)
		}
	}
}

func TestFit_RefitGivesIdenticalScores(t *testing.T) {
	items := make([]catalog.Item, 200)
	for i := range items {
		items[i] = catalog.Item{ID: fmt.Sprintf("p%d", i), Title: fmt.Sprintf("item %d group %d", i, i%11)}
	}
	queries := []string{"group 3 item 3", "item 21", "group 10", "item group"}

	first := fitted(t, DefaultConfig(), items)
	for round := 0; round < 5; round++ {
		again := fitted(t, DefaultConfig(), items)
		for _, q := range queries {
			assert.Equal(t, first.Score(q), again.Score(q), "query %q round %d", q, round)
		}
		want, err := first.Search(queries, 10)
		require.NoError(t, err)
		got, err := again.Search(queries, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSearch_EquivalentDocumentsKeepCorpusOrder(t *testing.T) {
	items := []catalog.Item{
		{ID: "oak", Title: "oak desk"},
		{ID: "elm", Title: "elm desk"},
		{ID: "ash", Title: "ash desk"},
		{ID: "fir", Title: "fir desk"},
	}
	idx := fitted(t, DefaultConfig(), items)
	scores := idx.Score("desk")
	for i := 1; i < len(scores); i++ {
		assert.Equal(t, scores[0], scores[i])
	}
	got, err := idx.Search([]string{"desk"}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, got[0])
}
