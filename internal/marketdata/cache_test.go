package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/internal/strategyconfig"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

// fakeProvider scripts fetch outcomes per call
type fakeProvider struct {
	mu       sync.Mutex
	calls    int64
	failures int   // transient failures before succeeding
	fatal    error // non-transient error returned on every call
	block    chan struct{}
}

func (f *fakeProvider) Fetch(ctx context.Context, ticker string, rng contracts.DateRange) ([]contracts.PricePoint, error) {
	atomic.AddInt64(&f.calls, 1)

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.fatal != nil {
		return nil, f.fatal
	}

	f.mu.Lock()
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("%w: fake outage", ErrTransient)
	}

	return []contracts.PricePoint{
		{Date: rng.From, Close: 100},
		{Date: rng.To, Close: 110},
	}, nil
}

func (f *fakeProvider) callCount() int64 {
	return atomic.LoadInt64(&f.calls)
}

func testConfig(ttl time.Duration) *strategyconfig.Config {
	cfg := strategyconfig.Default()
	cfg.PriceCache.TTL = ttl
	cfg.Retry = strategyconfig.Retry{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
	return cfg
}

func testRange() contracts.DateRange {
	return contracts.DateRange{
		From: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestGet_CacheHit(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewSeriesCache(provider, testConfig(time.Hour), nil, logger.NewNop())

	ctx := context.Background()
	first, err := cache.Get(ctx, "TCS.NS", testRange(), false)
	require.NoError(t, err)

	second, err := cache.Get(ctx, "TCS.NS", testRange(), false)
	require.NoError(t, err)

	// Same entry, one provider call
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, provider.callCount())
}

func TestGet_DistinctKeys(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewSeriesCache(provider, testConfig(time.Hour), nil, logger.NewNop())

	ctx := context.Background()
	_, err := cache.Get(ctx, "TCS.NS", testRange(), false)
	require.NoError(t, err)
	_, err = cache.Get(ctx, "INFY.NS", testRange(), false)
	require.NoError(t, err)

	// Different ticker, different key, separate fetch
	assert.EqualValues(t, 2, provider.callCount())
	assert.Equal(t, 2, cache.Len())
}

func TestGet_TTLExpiry(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewSeriesCache(provider, testConfig(10*time.Millisecond), nil, logger.NewNop())

	ctx := context.Background()
	_, err := cache.Get(ctx, "TCS.NS", testRange(), false)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = cache.Get(ctx, "TCS.NS", testRange(), false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, provider.callCount())
}

func TestGet_RefreshBypassesCache(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewSeriesCache(provider, testConfig(time.Hour), nil, logger.NewNop())

	ctx := context.Background()
	_, err := cache.Get(ctx, "TCS.NS", testRange(), false)
	require.NoError(t, err)

	_, err = cache.Get(ctx, "TCS.NS", testRange(), true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, provider.callCount())
}

func TestGet_CoalescesConcurrentFetches(t *testing.T) {
	provider := &fakeProvider{block: make(chan struct{})}
	cache := NewSeriesCache(provider, testConfig(time.Hour), nil, logger.NewNop())

	ctx := context.Background()
	const waiters = 10

	var wg sync.WaitGroup
	results := make([]*contracts.PriceSeries, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			series, err := cache.Get(ctx, "TCS.NS", testRange(), false)
			assert.NoError(t, err)
			results[i] = series
		}(i)
	}

	// Let all goroutines pile onto the in-flight call, then release
	time.Sleep(20 * time.Millisecond)
	close(provider.block)
	wg.Wait()

	// Exactly one fetch served every waiter with the same series
	assert.EqualValues(t, 1, provider.callCount())
	for i := 1; i < waiters; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestGet_RetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{failures: 2}
	cache := NewSeriesCache(provider, testConfig(time.Hour), nil, logger.NewNop())

	// Two transient failures fit within the 3-attempt budget
	series, err := cache.Get(context.Background(), "TCS.NS", testRange(), false)
	require.NoError(t, err)
	assert.Len(t, series.Points, 2)
	assert.EqualValues(t, 3, provider.callCount())
}

func TestGet_DataUnavailableOnExhaustion(t *testing.T) {
	provider := &fakeProvider{failures: 99}
	cache := NewSeriesCache(provider, testConfig(time.Hour), nil, logger.NewNop())

	_, err := cache.Get(context.Background(), "TCS.NS", testRange(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrDataUnavailable))

	// Budget respected, no cache entry left behind
	assert.EqualValues(t, 3, provider.callCount())
	assert.Equal(t, 0, cache.Len())
}

func TestGet_NoRetryOnNonTransientError(t *testing.T) {
	provider := &fakeProvider{fatal: errors.New("malformed payload")}
	cache := NewSeriesCache(provider, testConfig(time.Hour), nil, logger.NewNop())

	_, err := cache.Get(context.Background(), "TCS.NS", testRange(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrDataUnavailable))
	assert.EqualValues(t, 1, provider.callCount())
}

func TestGet_CancelledFetchLeavesNoEntry(t *testing.T) {
	provider := &fakeProvider{block: make(chan struct{})}
	cache := NewSeriesCache(provider, testConfig(time.Hour), nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := cache.Get(ctx, "TCS.NS", testRange(), false)
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	close(provider.block)
}

func TestInvalidate(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewSeriesCache(provider, testConfig(time.Hour), nil, logger.NewNop())

	ctx := context.Background()
	_, err := cache.Get(ctx, "TCS.NS", testRange(), false)
	require.NoError(t, err)

	cache.Invalidate("TCS.NS", testRange())
	assert.Equal(t, 0, cache.Len())

	_, err = cache.Get(ctx, "TCS.NS", testRange(), false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, provider.callCount())
}
