package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/instantcurrency/rates/cache"
	"github.com/instantcurrency/rates/provider"
	"github.com/instantcurrency/rates/storage/types"
)

type (
	fetchOneDelegate   func(context.Context, types.Pair, types.RateDate) (*provider.Quote, error)
	fetchBatchDelegate func(context.Context, types.Currency, []types.Currency) (*provider.BatchQuote, error)
	currenciesDelegate func(context.Context) (map[types.Currency]string, error)
)

type mockProvider struct {
	fetchOneFn   fetchOneDelegate
	fetchBatchFn fetchBatchDelegate
	currenciesFn currenciesDelegate
}

func (m *mockProvider) FetchOne(
	ctx context.Context,
	pair types.Pair,
	date types.RateDate,
) (*provider.Quote, error) {
	if m.fetchOneFn != nil {
		return m.fetchOneFn(ctx, pair, date)
	}

	return nil, nil
}

func (m *mockProvider) FetchBatch(
	ctx context.Context,
	base types.Currency,
	targets []types.Currency,
) (*provider.BatchQuote, error) {
	if m.fetchBatchFn != nil {
		return m.fetchBatchFn(ctx, base, targets)
	}

	return nil, nil
}

func (m *mockProvider) Currencies(ctx context.Context) (map[types.Currency]string, error) {
	if m.currenciesFn != nil {
		return m.currenciesFn(ctx)
	}

	return nil, nil
}

// recordingCache captures Put calls for assertions
type recordingCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		entries: map[string]string{},
		ttls:    map[string]time.Duration{},
	}
}

func (c *recordingCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.entries[key]

	return value, ok, nil
}

func (c *recordingCache) Put(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = value
	c.ttls[key] = ttl

	return nil
}

var _ cache.Cache = (*recordingCache)(nil)
