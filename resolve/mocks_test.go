package resolve

import (
	"context"

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
