package mock

import (
	"context"

	"github.com/instantcurrency/rates/storage/types"
)

type (
	FindRateDelegate         func(context.Context, types.RateKey) (*types.RateRecord, bool, error)
	UpsertRateDelegate       func(context.Context, types.RateKey, types.RateRecord) error
	BatchUpsertRatesDelegate func(context.Context, types.RateDate, map[types.Pair]types.RateRecord) error
	ExistingPairsDelegate    func(context.Context, types.RateDate) (map[types.Pair]struct{}, error)
	RatesForDateDelegate     func(context.Context, types.RateDate) (map[types.Pair]types.RateRecord, error)
	LatestDateDelegate       func(context.Context) (types.RateDate, bool, error)
)

type RateStore struct {
	FindRateFn         FindRateDelegate
	UpsertRateFn       UpsertRateDelegate
	BatchUpsertRatesFn BatchUpsertRatesDelegate
	ExistingPairsFn    ExistingPairsDelegate
	RatesForDateFn     RatesForDateDelegate
	LatestDateFn       LatestDateDelegate
}

func (m *RateStore) FindRate(ctx context.Context, key types.RateKey) (*types.RateRecord, bool, error) {
	if m.FindRateFn != nil {
		return m.FindRateFn(ctx, key)
	}

	return nil, false, nil
}

func (m *RateStore) UpsertRate(ctx context.Context, key types.RateKey, record types.RateRecord) error {
	if m.UpsertRateFn != nil {
		return m.UpsertRateFn(ctx, key, record)
	}

	return nil
}

func (m *RateStore) BatchUpsertRates(
	ctx context.Context,
	date types.RateDate,
	records map[types.Pair]types.RateRecord,
) error {
	if m.BatchUpsertRatesFn != nil {
		return m.BatchUpsertRatesFn(ctx, date, records)
	}

	return nil
}

func (m *RateStore) ExistingPairs(ctx context.Context, date types.RateDate) (map[types.Pair]struct{}, error) {
	if m.ExistingPairsFn != nil {
		return m.ExistingPairsFn(ctx, date)
	}

	return nil, nil
}

func (m *RateStore) RatesForDate(
	ctx context.Context,
	date types.RateDate,
) (map[types.Pair]types.RateRecord, error) {
	if m.RatesForDateFn != nil {
		return m.RatesForDateFn(ctx, date)
	}

	return nil, nil
}

func (m *RateStore) LatestDate(ctx context.Context) (types.RateDate, bool, error) {
	if m.LatestDateFn != nil {
		return m.LatestDateFn(ctx)
	}

	return types.RateDate{}, false, nil
}

type (
	LastRateDateDelegate    func(context.Context) (types.RateDate, bool, error)
	SetLastRateDateDelegate func(context.Context, types.RateDate) error
)

type WatermarkStore struct {
	LastRateDateFn    LastRateDateDelegate
	SetLastRateDateFn SetLastRateDateDelegate
}

func (m *WatermarkStore) LastRateDate(ctx context.Context) (types.RateDate, bool, error) {
	if m.LastRateDateFn != nil {
		return m.LastRateDateFn(ctx)
	}

	return types.RateDate{}, false, nil
}

func (m *WatermarkStore) SetLastRateDate(ctx context.Context, date types.RateDate) error {
	if m.SetLastRateDateFn != nil {
		return m.SetLastRateDateFn(ctx, date)
	}

	return nil
}
