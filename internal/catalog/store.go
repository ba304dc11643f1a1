package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/postgres"
)

// Store reads the catalog from a PostgreSQL table with product_id, title
// and description columns.
type Store struct {
	db    *sql.DB
	table string
}

func NewStore(client *postgres.Client, table string) *Store {
	return &Store{db: client.DB, table: table}
}

// LoadItems returns every row ordered by product_id. NULL text columns load
// as empty strings.
func (s *Store) LoadItems(ctx context.Context) ([]Item, error) {
	query := fmt.Sprintf(
		`SELECT product_id, COALESCE(title, ''), COALESCE(description, '') FROM %s ORDER BY product_id`,
		pq.QuoteIdentifier(s.table),
	)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Description); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		if it.ID == "" {
			return nil, fmt.Errorf("catalog row %d: %w", len(items)+1, ErrMissingID)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalog rows: %w", err)
	}
	return items, nil
}
