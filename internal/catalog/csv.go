package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadItemsCSV reads a header-driven catalog CSV. product_id is required;
// title and description default to empty and extra columns are ignored.
func LoadItemsCSV(r io.Reader) ([]Item, error) {
	var items []Item
	err := readCSV(r, []string{"product_id"}, func(line int, get func(string) string) error {
		id := strings.TrimSpace(get("product_id"))
		if id == "" {
			return fmt.Errorf("line %d: %w", line, ErrMissingID)
		}
		items = append(items, Item{
			ID:          id,
			Title:       get("title"),
			Description: get("description"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return items, nil
}

func LoadItemsFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	defer f.Close()
	return LoadItemsCSV(f)
}

// LoadQueriesCSV reads query,relevant_product_ids rows.
func LoadQueriesCSV(r io.Reader) ([]Query, error) {
	var queries []Query
	err := readCSV(r, []string{"query"}, func(_ int, get func(string) string) error {
		queries = append(queries, Query{
			Text:     get("query"),
			Relevant: ParseGold(get("relevant_product_ids")),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading queries: %w", err)
	}
	return queries, nil
}

func LoadQueriesFile(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening queries %s: %w", path, err)
	}
	defer f.Close()
	return LoadQueriesCSV(f)
}

func readCSV(r io.Reader, required []string, row func(line int, get func(string) string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty file")
		}
		return fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[h] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return fmt.Errorf("missing column %q", name)
		}
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		if err := row(line, get); err != nil {
			return err
		}
	}
}
