// Package cache memoizes search pages keyed by query and index generation.
// Entries live in an in-process LRU or in Redis; a circuit breaker keeps a
// failing store from slowing searches down.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the byte-level backend of a QueryCache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Flush(ctx context.Context) error
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, cfg config.CacheConfig, m *metrics.Metrics, logger *slog.Logger) *QueryCache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &QueryCache{
		store:   store,
		ttl:     cfg.TTL,
		metrics: m,
		logger:  logger.With("component", "query-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerFailures,
		ResetTimeout:     cfg.BreakerResetTimeout,
		OnStateChange: func(name string, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Get decodes the entry under key into dst. Store failures count as misses.
func (c *QueryCache) Get(ctx context.Context, key string, dst any) bool {
	var data []byte
	var found bool
	err := c.breaker.Execute(func() error {
		var err error
		data, found, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return false
	}
	if !found {
		c.miss()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", key)
	return true
}

func (c *QueryCache) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops every entry. Generation-scoped keys make this optional
// after writes; it only reclaims space.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	if err := c.store.Flush(ctx); err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated")
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// GetOrCompute returns the cached value under key, or computes, stores and
// returns it. Concurrent callers with the same key share one computation.
func GetOrCompute[T any](ctx context.Context, c *QueryCache, key string, compute func() (T, error)) (T, bool, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		var again T
		if c.Get(ctx, key, &again) {
			return again, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return val.(T), false, nil
}

// Key hashes its parts into a fixed-length cache key.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
