package catalog

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemFromRecord(t *testing.T) {
	it, err := ItemFromRecord(map[string]any{
		"product_id":  float64(12),
		"title":       "Blue Chair",
		"description": math.NaN(),
	})
	require.NoError(t, err)
	assert.Equal(t, Item{ID: "12", Title: "Blue Chair"}, it)

	_, err = ItemFromRecord(map[string]any{"title": "no id"})
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = ItemFromRecord(map[string]any{"product_id": "  "})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestItemsFromRecords_ReportsIndex(t *testing.T) {
	_, err := ItemsFromRecords([]map[string]any{
		{"product_id": "a"},
		{"title": "x"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingID)
	assert.Contains(t, err.Error(), "record 1")
}

func TestParseGold(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseGold(" a | |b|"))
	assert.Empty(t, ParseGold(""))
	assert.Equal(t, []string{"x"}, ParseGold("x"))
}

func TestLoadItemsCSV(t *testing.T) {
	in := "product_id,title,extra,description\n" +
		"1,Blue Chair,z,Velvet accent\n" +
		"2,\"Red, Sofa\",z,\n" +
		"3,Short\n"
	items, err := LoadItemsCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{ID: "1", Title: "Blue Chair", Description: "Velvet accent"},
		{ID: "2", Title: "Red, Sofa"},
		{ID: "3", Title: "Short"},
	}, items)
}

func TestLoadItemsCSV_Errors(t *testing.T) {
	_, err := LoadItemsCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = LoadItemsCSV(strings.NewReader("title\nx\n"))
	assert.ErrorContains(t, err, "product_id")

	_, err = LoadItemsCSV(strings.NewReader("product_id,title\n,x\n"))
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestLoadQueriesCSV(t *testing.T) {
	in := "query,relevant_product_ids\n" +
		"blue chair,1|7\n" +
		"nothing,\n"
	queries, err := LoadQueriesCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Query{
		{Text: "blue chair", Relevant: []string{"1", "7"}},
		{Text: "nothing"},
	}, queries)
}
