// Package evaluation runs a query set through a fitted pipeline and scores
// the rankings with exact and graded MAP@k.
package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval"
)

var ErrInvalidK = errors.New("evaluation k must be positive")

// Searcher is the part of retrieval.Pipeline an evaluation needs.
type Searcher interface {
	Model() retrieval.Model
	Search(ctx context.Context, queries []string, k int) ([][]string, error)
	Texts() map[string]string
}

type QueryResult struct {
	Query     string   `json:"query"`
	Relevant  []string `json:"relevant_product_ids"`
	Retrieved []string `json:"retrieved_product_ids"`
	Precision float64  `json:"precision"`
	AP        float64  `json:"ap"`
	GradedAP  float64  `json:"graded_ap"`
}

type Report struct {
	ID            string        `json:"id"`
	Model         string        `json:"model"`
	K             int           `json:"k"`
	Queries       int           `json:"queries"`
	MAP           float64       `json:"map"`
	GradedMAP     float64       `json:"graded_map"`
	MeanPrecision float64       `json:"mean_precision"`
	Threshold     float64       `json:"gain_threshold"`
	Duration      time.Duration `json:"duration_ns"`
	CreatedAt     time.Time     `json:"created_at"`
	PerQuery      []QueryResult `json:"per_query,omitempty"`
}

// Run searches every query at depth k and aggregates the metrics.
func Run(ctx context.Context, s Searcher, queries []catalog.Query, k int, gain ranking.Gain) (*Report, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	start := time.Now()
	texts := make([]string, len(queries))
	for i, q := range queries {
		texts[i] = q.Text
	}
	retrieved, err := s.Search(ctx, texts, k)
	if err != nil {
		return nil, fmt.Errorf("running evaluation queries: %w", err)
	}

	golds := make([][]string, len(queries))
	for i, q := range queries {
		golds[i] = q.Relevant
	}
	itemTexts := s.Texts()

	report := &Report{
		ID:        uuid.NewString(),
		Model:     s.Model().String(),
		K:         k,
		Queries:   len(queries),
		MAP:       ranking.MAPAtK(retrieved, golds, k),
		GradedMAP: gain.MAPAtK(retrieved, golds, texts, itemTexts, k),
		Threshold: gain.Threshold,
		CreatedAt: start.UTC(),
		PerQuery:  make([]QueryResult, len(queries)),
	}
	var precisionSum float64
	for i, q := range queries {
		gold := ranking.GoldSet(q.Relevant)
		qr := QueryResult{
			Query:     q.Text,
			Relevant:  q.Relevant,
			Retrieved: retrieved[i],
			Precision: ranking.PrecisionAtK(retrieved[i], gold, k),
			AP:        ranking.AveragePrecisionAtK(retrieved[i], gold, k),
			GradedAP:  gain.AveragePrecisionAtK(retrieved[i], gold, k, q.Text, itemTexts),
		}
		precisionSum += qr.Precision
		report.PerQuery[i] = qr
	}
	if len(queries) > 0 {
		report.MeanPrecision = precisionSum / float64(len(queries))
	}
	report.Duration = time.Since(start)

	slog.Default().With("component", "evaluation").Info("evaluation complete",
		"model", report.Model,
		"k", k,
		"queries", report.Queries,
		"map", report.MAP,
		"graded_map", report.GradedMAP,
		"duration", report.Duration,
	)
	return report, nil
}

// Write prints the two headline numbers.
func (r *Report) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "MAP@%d: %.4f\nGraded MAP@%d (partial-match aware): %.4f\n", r.K, r.MAP, r.K, r.GradedMAP)
	return err
}

// WriteJSON prints the full report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
