package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/textproc"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/resilience"
)

const keyPrefix = "search:"

// KV is the subset of the Redis client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ResultCache stores ranked id lists per (snapshot version, k, queries).
// Concurrent identical misses share one computation. Redis failures trip a
// circuit breaker and the cache is bypassed until it recovers.
type ResultCache struct {
	kv      KV
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewResultCache(kv KV, ttl time.Duration, m *metrics.Metrics) *ResultCache {
	return &ResultCache{
		kv:  kv,
		ttl: ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
		}),
		metrics: m,
		logger:  logger.WithComponent("result-cache"),
	}
}

func (c *ResultCache) get(ctx context.Context, key string) ([][]string, bool) {
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.kv.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil || data == nil {
		if err != nil {
			c.logger.Debug("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var results [][]string
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return results, true
}

func (c *ResultCache) set(ctx context.Context, key string, results [][]string) {
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.breaker.Execute(func() error { return c.kv.Set(ctx, key, data, c.ttl) }); err != nil {
		c.logger.Debug("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached results or runs compute once per key.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	version int64,
	queries []string,
	k int,
	compute func() ([][]string, error),
) ([][]string, bool, error) {
	key := buildKey(version, queries, k)
	if results, ok := c.get(ctx, key); ok {
		c.recordHit()
		return results, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if results, ok := c.get(ctx, key); ok {
			return results, nil
		}
		results, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	c.recordMiss()
	return val.([][]string), false, nil
}

// Invalidate deletes every cached result.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.kv.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *ResultCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey hashes normalised queries so equivalent batches share an entry.
func buildKey(version int64, queries []string, k int) string {
	h := sha256.New()
	fmt.Fprintf(h, "k=%d\n", k)
	for _, q := range queries {
		h.Write([]byte(textproc.Normalize(q)))
		h.Write([]byte{'\n'})
	}
	sum := h.Sum(nil)
	return fmt.Sprintf("%sv%d:%x", keyPrefix, version, sum[:16])
}
