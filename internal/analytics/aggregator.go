package analytics

import (
	"sort"
	"sync"
	"time"
)

type AggregatedStats struct {
	Searches          int64            `json:"searches"`
	QueriesScored     int64            `json:"queries_scored"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	IndexBuilds       int64            `json:"index_builds"`
	FailedBuilds      int64            `json:"failed_index_builds"`
	Evaluations       int64            `json:"evaluations"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	SearchesByModel   []Count          `json:"searches_by_model"`
	LastEvaluation    *EvaluationEvent `json:"last_evaluation,omitempty"`
	SearchesPerMinute float64          `json:"searches_per_minute"`
}

type Count struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

// Aggregator folds events into running counters. It implements Tracker.
type Aggregator struct {
	mu        sync.Mutex
	stats     AggregatedStats
	byModel   map[string]int64
	latencies []int64
	next      int
	startTime time.Time
	now       func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byModel:   make(map[string]int64),
		latencies: make([]int64, 0, 1024),
		startTime: time.Now(),
		now:       time.Now,
	}
}

func (a *Aggregator) Track(_ string, event any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch e := event.(type) {
	case SearchEvent:
		a.stats.Searches++
		a.stats.QueriesScored += int64(e.Queries)
		if e.CacheHit {
			a.stats.CacheHits++
		} else {
			a.stats.CacheMisses++
		}
		a.byModel[e.Model]++
		a.recordLatency(e.LatencyMs)
	case IndexEvent:
		a.stats.IndexBuilds++
		if e.Failed {
			a.stats.FailedBuilds++
		}
	case EvaluationEvent:
		a.stats.Evaluations++
		last := e
		a.stats.LastEvaluation = &last
	}
}

func (a *Aggregator) recordLatency(ms int64) {
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, ms)
		return
	}
	a.latencies[a.next] = ms
	a.next = (a.next + 1) % maxLatencySamples
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := a.stats
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.SearchesByModel = sortedCounts(a.byModel)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.SearchesPerMinute = float64(stats.Searches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func sortedCounts(counts map[string]int64) []Count {
	out := make([]Count, 0, len(counts))
	for k, c := range counts {
		out = append(out, Count{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
