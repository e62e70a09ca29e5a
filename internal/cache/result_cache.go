// Package cache provides a two-tier cache for consultation results: an
// in-process expirable LRU backed by an optional shared Redis tier. The
// Redis tier sits behind a circuit breaker so a degraded Redis never takes
// the consultation path down with it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/oncoguide-server/internal/domain"
	"github.com/oncoguide-server/internal/knowledge"
	"github.com/oncoguide-server/pkg/treatment"
)

// Stats represents cache performance counters across both tiers.
type Stats struct {
	MemoryHits   int64 `json:"memory_hits"`
	MemoryMisses int64 `json:"memory_misses"`
	RedisHits    int64 `json:"redis_hits"`
	RedisMisses  int64 `json:"redis_misses"`
	RedisErrors  int64 `json:"redis_errors"`
}

// ResultCache caches consultation results keyed by the normalized request.
type ResultCache struct {
	memory     *expirable.LRU[string, *domain.ConsultationResult]
	redis      *redis.Client
	breaker    *gobreaker.CircuitBreaker
	defaultTTL time.Duration
	logger     *logrus.Logger

	stats   Stats
	statsMu sync.RWMutex
}

// cachedResult wraps a result with expiry metadata for the Redis tier.
type cachedResult struct {
	Result    *domain.ConsultationResult `json:"result"`
	CachedAt  time.Time                  `json:"cached_at"`
	ExpiresAt time.Time                  `json:"expires_at"`
}

// NewResultCache creates a result cache from configuration. When Redis is
// disabled only the in-process tier runs.
func NewResultCache(config domain.CacheConfig, logger *logrus.Logger) (*ResultCache, error) {
	maxItems := config.MaxItems
	if maxItems <= 0 {
		maxItems = 1024
	}
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	c := &ResultCache{
		memory:     expirable.NewLRU[string, *domain.ConsultationResult](maxItems, nil, ttl),
		defaultTTL: ttl,
		logger:     logger,
	}

	if config.RedisEnabled {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts.PoolSize = config.PoolSize
		opts.PoolTimeout = config.PoolTimeout
		opts.MaxRetries = config.MaxRetries

		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		c.redis = client
		c.breaker = newCacheBreaker(logger)
	}

	return c, nil
}

// newCacheBreaker builds the circuit breaker guarding the Redis tier.
func newCacheBreaker(logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ResultCacheRedis",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Cache circuit breaker state changed")
		},
	})
}

// filterMiss converts a plain Redis miss into a successful nil read.
// A cold cache produces long runs of misses; only genuine Redis failures
// may count toward the breaker's trip threshold.
func filterMiss(val string, err error) (interface{}, error) {
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Key derives the deterministic cache key for a request. Case, whitespace
// and stage-alias variants of the same consultation map to one key, so
// "Stage 2", "stage II" and "II" all hit the same cached result.
func Key(req *domain.ConsultationRequest) string {
	symptoms := make([]string, 0, len(req.Symptoms))
	for _, s := range req.Symptoms {
		symptoms = append(symptoms, treatment.Normalize(s))
	}
	sort.Strings(symptoms)

	payload := strings.Join([]string{
		req.CancerType.String(),
		treatment.Normalize(knowledge.NormalizeStage(req.CancerType, req.Stage)),
		treatment.Normalize(req.ProposedTreatment),
		strings.Join(symptoms, ","),
	}, "|")

	hash := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("consultation:%x", hash)
}

// Get returns the cached result for the request, checking the in-process
// tier first and falling through to Redis on a miss.
func (c *ResultCache) Get(ctx context.Context, req *domain.ConsultationRequest) (*domain.ConsultationResult, bool) {
	key := Key(req)

	if result, ok := c.memory.Get(key); ok {
		c.record(func(s *Stats) { s.MemoryHits++ })
		return result, true
	}
	c.record(func(s *Stats) { s.MemoryMisses++ })

	if c.redis == nil {
		return nil, false
	}

	value, err := c.breaker.Execute(func() (interface{}, error) {
		return filterMiss(c.redis.Get(ctx, key).Result())
	})
	if err != nil {
		c.record(func(s *Stats) { s.RedisErrors++ })
		c.logger.WithError(err).Warn("Redis cache read failed")
		return nil, false
	}
	if value == nil {
		c.record(func(s *Stats) { s.RedisMisses++ })
		return nil, false
	}

	var cached cachedResult
	if err := json.Unmarshal([]byte(value.(string)), &cached); err != nil {
		// Corrupted entry; drop it and treat as a miss.
		c.redis.Del(ctx, key)
		c.record(func(s *Stats) { s.RedisMisses++ })
		return nil, false
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		c.record(func(s *Stats) { s.RedisMisses++ })
		return nil, false
	}

	c.record(func(s *Stats) { s.RedisHits++ })
	c.memory.Add(key, cached.Result)
	return cached.Result, true
}

// Set stores a result in both tiers. Redis failures are logged, never
// propagated: caching is best effort.
func (c *ResultCache) Set(ctx context.Context, req *domain.ConsultationRequest, result *domain.ConsultationResult) {
	key := Key(req)
	c.memory.Add(key, result)

	if c.redis == nil {
		return
	}

	cached := cachedResult{
		Result:    result,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(c.defaultTTL),
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal cached result")
		return
	}

	if _, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.redis.Set(ctx, key, payload, c.defaultTTL).Err()
	}); err != nil {
		c.record(func(s *Stats) { s.RedisErrors++ })
		c.logger.WithError(err).Warn("Redis cache write failed")
	}
}

// Purge empties the in-process tier. Used after a knowledge base reload.
func (c *ResultCache) Purge() {
	c.memory.Purge()
}

// Stats returns a copy of the cache counters.
func (c *ResultCache) Stats() Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

// Close releases the Redis connection if one exists.
func (c *ResultCache) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

func (c *ResultCache) record(update func(*Stats)) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	update(&c.stats)
}
