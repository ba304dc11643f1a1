package retrieval

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval/topk"
)

var (
	ErrMissingID     = catalog.ErrMissingID
	ErrDuplicateID   = errors.New("duplicate product_id")
	ErrNotFitted     = errors.New("index not built")
	ErrAlreadyFitted = errors.New("pipeline already fitted")
	ErrInvalidK      = topk.ErrInvalidK
)

// Pipeline owns one fitted index and the row-to-id table. After Fit it is
// read-only and safe for concurrent Search calls.
type Pipeline struct {
	model   Model
	index   Index
	ids     []string
	texts   map[string]string
	workers int
	fitted  bool
}

func NewPipeline(model Model, opts Options) (*Pipeline, error) {
	idx, err := newIndex(model, opts)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{model: model, index: idx, workers: workers}, nil
}

func (p *Pipeline) Model() Model { return p.model }

// Len returns the number of indexed items.
func (p *Pipeline) Len() int { return len(p.ids) }

// Fit validates ids and fits the underlying index. Row order follows items.
func (p *Pipeline) Fit(items []catalog.Item) error {
	if p.fitted {
		return ErrAlreadyFitted
	}
	ids := make([]string, len(items))
	texts := make(map[string]string, len(items))
	for i, it := range items {
		if it.ID == "" {
			return fmt.Errorf("item %d: %w", i, ErrMissingID)
		}
		if _, dup := texts[it.ID]; dup {
			return fmt.Errorf("item %d: %w: %q", i, ErrDuplicateID, it.ID)
		}
		ids[i] = it.ID
		texts[it.ID] = it.Text()
	}
	if err := p.index.Fit(items); err != nil {
		return fmt.Errorf("fitting %s index: %w", p.model, err)
	}
	p.ids = ids
	p.texts = texts
	p.fitted = true
	return nil
}

// Search ranks every query and returns item ids, best first. Queries are
// split into contiguous chunks scored concurrently.
func (p *Pipeline) Search(ctx context.Context, queries []string, k int) ([][]string, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	out := make([][]string, len(queries))
	if len(queries) == 0 {
		return out, nil
	}

	workers := min(p.workers, len(queries))
	chunk := (len(queries) + workers - 1) / workers
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(queries); start += chunk {
		end := min(start+chunk, len(queries))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := p.index.Search(queries[start:end], k)
			if err != nil {
				return err
			}
			for i, r := range rows {
				out[start+i] = p.toIDs(r)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("searching %s index: %w", p.model, err)
	}
	return out, nil
}

// Texts maps each item id to "title description".
func (p *Pipeline) Texts() map[string]string {
	return p.texts
}

func (p *Pipeline) toIDs(rows []int) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = p.ids[r]
	}
	return ids
}
