// Package catalog defines the catalog item and evaluation query records and
// loads them from CSV files or PostgreSQL.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/textproc"
)

var ErrMissingID = errors.New("product_id is required")

// Item is one catalog row. Title and Description may be empty.
type Item struct {
	ID          string `json:"product_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Text is the representation used for graded relevance: title and
// description joined by a space.
func (it Item) Text() string {
	return it.Title + " " + it.Description
}

// Query is one evaluation query with its exact-match relevant ids.
type Query struct {
	Text     string   `json:"query"`
	Relevant []string `json:"relevant_product_ids"`
}

// ItemFromRecord builds an Item from a loosely typed record such as a
// decoded JSON object. Text fields are coerced; product_id is mandatory.
func ItemFromRecord(rec map[string]any) (Item, error) {
	id := strings.TrimSpace(textproc.Text(rec["product_id"]))
	if id == "" {
		return Item{}, ErrMissingID
	}
	return Item{
		ID:          id,
		Title:       textproc.Text(rec["title"]),
		Description: textproc.Text(rec["description"]),
	}, nil
}

// ItemsFromRecords converts records in order, failing on the first invalid
// one.
func ItemsFromRecords(recs []map[string]any) ([]Item, error) {
	items := make([]Item, 0, len(recs))
	for i, rec := range recs {
		it, err := ItemFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// ParseGold splits a pipe-delimited id list, trimming entries and dropping
// empty ones.
func ParseGold(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, "|") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
