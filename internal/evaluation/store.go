package evaluation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS evaluation_runs (
	id          UUID PRIMARY KEY,
	model       TEXT NOT NULL,
	k           INTEGER NOT NULL,
	map         DOUBLE PRECISION NOT NULL,
	graded_map  DOUBLE PRECISION NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
)`

// Store persists evaluation reports in PostgreSQL.
type Store struct {
	client *postgres.Client
}

func NewStore(client *postgres.Client) *Store {
	return &Store{client: client}
}

// EnsureSchema creates the evaluation_runs table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating evaluation_runs: %w", err)
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, r *Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evaluation_runs (id, model, k, map, graded_map, payload, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ID, r.Model, r.K, r.MAP, r.GradedMAP, payload, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting evaluation run: %w", err)
		}
		return nil
	})
}

// RecentRuns returns up to limit reports, newest first, without per-query
// detail.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT payload FROM evaluation_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying evaluation runs: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning evaluation run: %w", err)
		}
		var r Report
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decoding evaluation run: %w", err)
		}
		r.PerQuery = nil
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating evaluation runs: %w", err)
	}
	return reports, nil
}
