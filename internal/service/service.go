// Package service exposes the retrieval pipeline over HTTP and Kafka. It
// owns the active index snapshot; rebuilds fit a new pipeline off to the
// side and swap it in atomically.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/tracing"
)

var ErrIndexNotBuilt = errors.New("index not built")

// RunStore persists evaluation reports.
type RunStore interface {
	SaveRun(ctx context.Context, r *evaluation.Report) error
	RecentRuns(ctx context.Context, limit int) ([]evaluation.Report, error)
}

// ErrRunsDisabled is returned when no RunStore is configured.
var ErrRunsDisabled = errors.New("evaluation run storage disabled")

type Options struct {
	Retrieval  config.RetrievalConfig
	Evaluation config.EvaluationConfig
	Metrics    *metrics.Metrics
	Cache      *ResultCache
	Tracker    analytics.Tracker
	Runs       RunStore
}

type Service struct {
	retrieval  config.RetrievalConfig
	evaluation config.EvaluationConfig
	snapshots  Snapshots
	metrics    *metrics.Metrics
	cache      *ResultCache
	tracker    analytics.Tracker
	runs       RunStore
	logger     *slog.Logger
}

func New(opts Options) *Service {
	tracker := opts.Tracker
	if tracker == nil {
		tracker = analytics.Tee()
	}
	return &Service{
		retrieval:  opts.Retrieval,
		evaluation: opts.Evaluation,
		metrics:    opts.Metrics,
		cache:      opts.Cache,
		tracker:    tracker,
		runs:       opts.Runs,
		logger:     logger.WithComponent("retrieval-service"),
	}
}

// Snapshot returns the active snapshot, or nil before the first build.
func (s *Service) Snapshot() *Snapshot {
	return s.snapshots.Load()
}

// Build fits modelName (empty means the configured default) over items and
// publishes it. Searches keep using the previous snapshot until the swap.
// source labels the trigger in logs and analytics.
func (s *Service) Build(ctx context.Context, modelName string, items []catalog.Item, source string) (*Snapshot, error) {
	if modelName == "" {
		modelName = s.retrieval.Model
	}
	model, err := retrieval.ParseModel(modelName)
	if err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "index_build")
	span.SetAttr("model", model.String())
	span.SetAttr("items", len(items))
	defer span.Finish(ctx)

	start := time.Now()
	pipeline, err := retrieval.NewPipeline(model, retrieval.OptionsFromConfig(s.retrieval))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, fit := tracing.Start(ctx, "fit")
	err = pipeline.Fit(items)
	fit.End()
	if err != nil {
		s.recordBuild(model, 0, len(items), source, start, err)
		return nil, err
	}

	snap := s.snapshots.Publish(pipeline)

	s.recordBuild(model, snap.Version, len(items), source, start, nil)
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation after rebuild failed", "error", err)
		}
	}
	return snap, nil
}

func (s *Service) recordBuild(model retrieval.Model, version int64, items int, source string, start time.Time, err error) {
	elapsed := time.Since(start)
	status := "success"
	if err != nil {
		status = "failed"
		s.logger.Error("index build failed", "model", model, "items", items, "source", source, "error", err)
	} else {
		s.logger.Info("index built", "model", model, "version", version, "items", items, "source", source, "duration", elapsed)
	}
	if s.metrics != nil {
		s.metrics.IndexBuildsTotal.WithLabelValues(model.String(), status).Inc()
		if err == nil {
			s.metrics.IndexBuildDuration.WithLabelValues(model.String()).Observe(elapsed.Seconds())
			s.metrics.IndexedItems.Reset()
			s.metrics.IndexedItems.WithLabelValues(model.String()).Set(float64(items))
		}
	}
	s.tracker.Track("index", analytics.IndexEvent{
		Type:      analytics.EventIndexBuild,
		Model:     model.String(),
		Version:   version,
		Items:     items,
		Source:    source,
		LatencyMs: elapsed.Milliseconds(),
		Failed:    err != nil,
		Timestamp: time.Now().UTC(),
	})
}

// SearchResult is one answered batch.
type SearchResult struct {
	Results  [][]string
	Version  int64
	Model    retrieval.Model
	CacheHit bool
}

// Search ranks queries against the active snapshot. k above MaxK is
// clamped.
func (s *Service) Search(ctx context.Context, queries []string, k int) (*SearchResult, error) {
	snap := s.snapshots.Load()
	if snap == nil {
		return nil, ErrIndexNotBuilt
	}
	if k <= 0 {
		return nil, retrieval.ErrInvalidK
	}
	if s.retrieval.MaxK > 0 && k > s.retrieval.MaxK {
		k = s.retrieval.MaxK
	}
	ctx, span := tracing.Start(ctx, "search")
	span.SetAttr("queries", len(queries))
	span.SetAttr("k", k)
	defer span.Finish(ctx)

	start := time.Now()
	model := snap.Pipeline.Model()

	compute := func() ([][]string, error) {
		_, rank := tracing.Start(ctx, "rank")
		defer rank.End()
		return snap.Pipeline.Search(ctx, queries, k)
	}
	var (
		results [][]string
		hit     bool
		err     error
	)
	if s.cache != nil {
		results, hit, err = s.cache.GetOrCompute(ctx, snap.Version, queries, k, compute)
	} else {
		results, err = compute()
	}
	if err != nil {
		return nil, err
	}
	span.SetAttr("cache_hit", hit)

	elapsed := time.Since(start)
	if s.metrics != nil {
		cacheStatus := "miss"
		if hit {
			cacheStatus = "hit"
		}
		s.metrics.SearchQueriesTotal.WithLabelValues(model.String()).Add(float64(len(queries)))
		s.metrics.SearchLatency.WithLabelValues(model.String(), cacheStatus).Observe(elapsed.Seconds())
	}
	returned := 0
	for _, r := range results {
		returned += len(r)
	}
	s.tracker.Track("search", analytics.SearchEvent{
		Type:      analytics.EventSearch,
		RequestID: logger.RequestID(ctx),
		Model:     model.String(),
		Version:   snap.Version,
		Queries:   len(queries),
		K:         k,
		Returned:  returned,
		LatencyMs: elapsed.Milliseconds(),
		CacheHit:  hit,
		Timestamp: time.Now().UTC(),
	})
	return &SearchResult{Results: results, Version: snap.Version, Model: model, CacheHit: hit}, nil
}

// Evaluate scores queries against the active snapshot. k == 0 uses the
// configured evaluation depth; negative k is rejected with ErrInvalidK.
func (s *Service) Evaluate(ctx context.Context, queries []catalog.Query, k int) (*evaluation.Report, error) {
	snap := s.snapshots.Load()
	if snap == nil {
		return nil, ErrIndexNotBuilt
	}
	if k == 0 {
		k = s.evaluation.K
	}
	gain := ranking.Gain{Threshold: s.evaluation.GainThreshold}
	report, err := evaluation.Run(ctx, snap.Pipeline, queries, k, gain)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.EvaluationScore.WithLabelValues(report.Model, "map").Set(report.MAP)
		s.metrics.EvaluationScore.WithLabelValues(report.Model, "graded_map").Set(report.GradedMAP)
		s.metrics.EvaluationScore.WithLabelValues(report.Model, "precision").Set(report.MeanPrecision)
	}
	s.tracker.Track("evaluation", analytics.EvaluationEvent{
		Type:      analytics.EventEvaluation,
		RunID:     report.ID,
		Model:     report.Model,
		K:         report.K,
		Queries:   report.Queries,
		MAP:       report.MAP,
		GradedMAP: report.GradedMAP,
		Timestamp: report.CreatedAt,
	})
	if s.runs != nil && s.evaluation.SaveRuns {
		if err := s.runs.SaveRun(ctx, report); err != nil {
			s.logger.Error("saving evaluation run failed", "run_id", report.ID, "error", err)
		}
	}
	return report, nil
}

// RecentRuns lists stored evaluation runs, newest first.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]evaluation.Report, error) {
	if s.runs == nil {
		return nil, ErrRunsDisabled
	}
	return s.runs.RecentRuns(ctx, limit)
}
