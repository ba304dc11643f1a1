package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/config"
)

func furniture() []catalog.Item {
	return []catalog.Item{
		{ID: "1", Title: "Blue Chair", Description: "Velvet accent"},
		{ID: "2", Title: "Red Sofa", Description: "Leather"},
		{ID: "3", Title: "Wood Table", Description: "Dining"},
	}
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		in   string
		want Model
	}{
		{"tfidf_char_word", ModelLexical},
		{"tfidf", ModelLexical},
		{" BM25 ", ModelBM25},
	}
	for _, tt := range tests {
		got, err := ParseModel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseModel("dense")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestModel_TextRoundTrip(t *testing.T) {
	var m Model
	require.NoError(t, m.UnmarshalText([]byte("tfidf")))
	b, err := m.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "tfidf_char_word", string(b))

	_, err = Model(99).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestNewPipeline_UnknownModel(t *testing.T) {
	_, err := NewPipeline(Model(0), DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestPipeline_BothModelsRankBlueVelvet(t *testing.T) {
	for _, m := range []Model{ModelLexical, ModelBM25} {
		t.Run(m.String(), func(t *testing.T) {
			p, err := NewPipeline(m, DefaultOptions())
			require.NoError(t, err)
			require.NoError(t, p.Fit(furniture()))

			got, err := p.Search(context.Background(), []string{"blue velvet"}, 2)
			require.NoError(t, err)
			require.Len(t, got[0], 2)
			assert.Equal(t, "1", got[0][0])
		})
	}
}

func TestPipeline_Fit_ValidatesIDs(t *testing.T) {
	p, _ := NewPipeline(ModelBM25, DefaultOptions())
	err := p.Fit([]catalog.Item{{ID: "a"}, {Title: "no id"}})
	assert.ErrorIs(t, err, ErrMissingID)

	p, _ = NewPipeline(ModelBM25, DefaultOptions())
	err = p.Fit([]catalog.Item{{ID: "a"}, {ID: "a"}})
	assert.ErrorIs(t, err, ErrDuplicateID)

	p, _ = NewPipeline(ModelBM25, DefaultOptions())
	require.NoError(t, p.Fit(furniture()))
	assert.ErrorIs(t, p.Fit(furniture()), ErrAlreadyFitted)
}

func TestPipeline_SearchErrors(t *testing.T) {
	p, _ := NewPipeline(ModelLexical, DefaultOptions())
	_, err := p.Search(context.Background(), []string{"x"}, 1)
	assert.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, p.Fit(furniture()))
	_, err = p.Search(context.Background(), []string{"x"}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Search(ctx, []string{"x"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_EmptyCorpus(t *testing.T) {
	p, _ := NewPipeline(ModelLexical, DefaultOptions())
	require.NoError(t, p.Fit(nil))
	got, err := p.Search(context.Background(), []string{"a", "b"}, 3)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{}, {}}, got)
}

func TestPipeline_ParallelMatchesSerial(t *testing.T) {
	items := make([]catalog.Item, 200)
	queries := make([]string, 37)
	for i := range items {
		items[i] = catalog.Item{ID: fmt.Sprintf("p%d", i), Title: fmt.Sprintf("item %d group %d", i, i%11)}
	}
	for i := range queries {
		queries[i] = fmt.Sprintf("group %d item %d", i%11, i)
	}

	serialOpts := DefaultOptions()
	parallelOpts := DefaultOptions()
	parallelOpts.Workers = 6

	serial, _ := NewPipeline(ModelLexical, serialOpts)
	parallel, _ := NewPipeline(ModelLexical, parallelOpts)
	require.NoError(t, serial.Fit(items))
	require.NoError(t, parallel.Fit(items))

	want, err := serial.Search(context.Background(), queries, 5)
	require.NoError(t, err)
	got, err := parallel.Search(context.Background(), queries, 5)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPipeline_Texts(t *testing.T) {
	p, _ := NewPipeline(ModelBM25, DefaultOptions())
	require.NoError(t, p.Fit(furniture()))
	assert.Equal(t, "Blue Chair Velvet accent", p.Texts()["1"])
	assert.Equal(t, 3, p.Len())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default().Retrieval
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, DefaultOptions().Lexical, opts.Lexical)
	assert.Equal(t, DefaultOptions().BM25, opts.BM25)
	assert.Equal(t, cfg.Workers, opts.Workers)
}
