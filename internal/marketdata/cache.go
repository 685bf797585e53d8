package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/internal/strategyconfig"
	"github.com/gudapatin/sentalpha/pkg/logger"
	"github.com/gudapatin/sentalpha/pkg/redis"
)

// SeriesCache memoizes fetched price series keyed by (ticker, range).
// It is the only resource shared across company pipelines, so it
// guarantees single-writer-per-key semantics: concurrent requests for
// the same key coalesce onto one in-flight fetch and late callers
// await its result. Entries are read-only once stored; invalidation
// and TTL expiry replace rather than mutate. A cancelled fetch leaves
// no cache entry behind.
type SeriesCache struct {
	mu       sync.Mutex
	entries  map[string]*contracts.PriceSeries
	inflight map[string]*call

	provider Provider
	ttl      time.Duration
	retry    strategyconfig.Retry
	l2       *redis.Cache // optional cross-process layer
	logger   *logger.Logger

	// fetchCount is exposed for tests and stats
	fetchCount int64
}

// call is one in-flight fetch shared by coalesced waiters
type call struct {
	done   chan struct{}
	series *contracts.PriceSeries
	err    error
}

// NewSeriesCache creates the shared price series cache
func NewSeriesCache(provider Provider, cfg *strategyconfig.Config, l2 *redis.Cache, log *logger.Logger) *SeriesCache {
	return &SeriesCache{
		entries:  make(map[string]*contracts.PriceSeries),
		inflight: make(map[string]*call),
		provider: provider,
		ttl:      cfg.PriceCache.TTL,
		retry:    cfg.Retry,
		l2:       l2,
		logger:   log.WithField("module", "price_cache"),
	}
}

// Get returns the series for a key, fetching on miss or when refresh
// is set. Retry exhaustion surfaces as contracts.ErrDataUnavailable.
func (c *SeriesCache) Get(ctx context.Context, ticker string, rng contracts.DateRange, refresh bool) (*contracts.PriceSeries, error) {
	key := cacheKey(ticker, rng)

	c.mu.Lock()

	if !refresh {
		if series, ok := c.entries[key]; ok && !c.expired(series) {
			c.mu.Unlock()
			return series, nil
		}
	}

	// Coalesce onto an existing fetch for this key
	if inflight, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-inflight.done:
			return inflight.series, inflight.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.series, cl.err = c.fetch(ctx, ticker, rng, refresh)

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil {
		// Replace, never mutate: the old entry stays valid for
		// readers that already hold it
		c.entries[key] = cl.series
	}
	c.mu.Unlock()

	close(cl.done)
	return cl.series, cl.err
}

// Invalidate drops a cached entry so the next Get refetches
func (c *SeriesCache) Invalidate(ticker string, rng contracts.DateRange) {
	key := cacheKey(ticker, rng)

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.l2 != nil {
		_ = c.l2.Delete(context.Background(), key)
	}
}

// Len returns the number of cached series
func (c *SeriesCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// FetchCount returns how many provider fetches have completed
func (c *SeriesCache) FetchCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchCount
}

// fetch resolves a series from the L2 cache or the provider with
// bounded exponential backoff.
func (c *SeriesCache) fetch(ctx context.Context, ticker string, rng contracts.DateRange, refresh bool) (*contracts.PriceSeries, error) {
	key := cacheKey(ticker, rng)

	if c.l2 != nil && !refresh {
		var cached contracts.PriceSeries
		if found, err := c.l2.Get(ctx, key, &cached); err == nil && found {
			c.logger.WithField("key", key).Debug("Price series L2 cache hit")
			return &cached, nil
		}
	}

	points, err := c.fetchWithRetry(ctx, ticker, rng)
	if err != nil {
		return nil, err
	}

	series := &contracts.PriceSeries{
		Ticker:     ticker,
		Points:     points,
		FetchedAt:  time.Now(),
		ValidRange: rng,
	}

	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, series, c.ttl); err != nil {
			c.logger.WithError(err).Warn("Failed to store series in L2 cache")
		}
	}

	c.mu.Lock()
	c.fetchCount++
	c.mu.Unlock()

	return series, nil
}

// fetchWithRetry applies the configured retry budget to transient
// provider failures. Cancellation between attempts is cooperative and
// leaves no cache entry.
func (c *SeriesCache) fetchWithRetry(ctx context.Context, ticker string, rng contracts.DateRange) ([]contracts.PricePoint, error) {
	delay := c.retry.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		points, err := c.provider.Fetch(ctx, ticker, rng)
		if err == nil {
			return points, nil
		}
		lastErr = err

		if !IsTransient(err) {
			break
		}
		if attempt == c.retry.MaxAttempts {
			break
		}

		c.logger.WithFields(map[string]interface{}{
			"ticker":  ticker,
			"attempt": attempt,
			"delay":   delay,
			"error":   err.Error(),
		}).Warn("Retrying price fetch")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.retry.MaxDelay {
			delay = c.retry.MaxDelay
		}
	}

	return nil, fmt.Errorf("%w: %s %s: %v", contracts.ErrDataUnavailable, ticker, rng.Key(), lastErr)
}

// expired reports whether an entry has outlived its TTL
func (c *SeriesCache) expired(series *contracts.PriceSeries) bool {
	return time.Since(series.FetchedAt) > c.ttl
}

func cacheKey(ticker string, rng contracts.DateRange) string {
	return fmt.Sprintf("prices:%s:%s", ticker, rng.Key())
}
