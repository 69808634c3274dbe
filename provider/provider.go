package provider

import (
	"context"
	"time"

	"github.com/instantcurrency/rates/storage/types"
)

// Quote is a single fetched exchange rate. RateDate is the date the rate
// is actually quoted for, which can precede the requested date on
// weekends and holidays
type Quote struct {
	Pair      types.Pair
	Rate      float64
	RateDate  types.RateDate
	FetchedAt time.Time
	Source    types.Source
}

// BatchQuote is one base currency fetched against many targets in a
// single round trip
type BatchQuote struct {
	Base      types.Currency
	Rates     map[types.Currency]float64
	RateDate  types.RateDate
	FetchedAt time.Time
	Source    types.Source
}

// Provider adapts the external exchange-rate API. All calls are stateless
// and idempotent; retries are the caller's concern
type Provider interface {
	// FetchOne fetches a single pair. A zero date requests the most recent
	// published rate
	FetchOne(ctx context.Context, pair types.Pair, date types.RateDate) (*Quote, error)

	// FetchBatch fetches one base against many targets
	FetchBatch(ctx context.Context, base types.Currency, targets []types.Currency) (*BatchQuote, error)

	// Currencies lists the currency codes the provider supports,
	// mapped to display names
	Currencies(ctx context.Context) (map[types.Currency]string, error)
}
