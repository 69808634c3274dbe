// Package resolve orchestrates the tiered rate lookup for interactive
// conversion requests: cache, then durable store, then the external
// provider, backfilling each tier on a miss.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/instantcurrency/rates/cache"
	"github.com/instantcurrency/rates/provider"
	"github.com/instantcurrency/rates/storage"
	"github.com/instantcurrency/rates/storage/types"
)

// ErrRateUnavailable is surfaced when every tier misses; it always names
// the date the caller asked about
var ErrRateUnavailable = errors.New("rate unavailable")

// Resolution is the outcome of a rate lookup
type Resolution struct {
	Rate float64 `json:"rate"`

	// DateUsed is the date the rate is keyed under. Differs from the
	// requested date only when a future date was substituted
	DateUsed    types.RateDate `json:"date_used"`
	Substituted bool           `json:"substituted"`
}

// Resolver performs the cache -> store -> provider lookup for one pair
// and date, writing back on each miss
type Resolver struct {
	cache    cache.Cache
	store    storage.RateStore
	provider provider.Provider

	source types.Source
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new rate resolver
func New(
	c cache.Cache,
	store storage.RateStore,
	p provider.Provider,
	opts ...Option,
) *Resolver {
	r := &Resolver{
		cache:    c,
		store:    store,
		provider: p,
		source:   types.SourceECB,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}

	// Apply the options
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// EffectiveDate substitutes the latest available date for requests that
// lie strictly in the future. The substitution happens exactly once per
// resolution, before any tier is accessed, so all three tiers stay keyed
// consistently
func EffectiveDate(requested, latestAvailable types.RateDate, now time.Time) (types.RateDate, bool) {
	today := types.DateOf(now)

	if requested.After(today) && !latestAvailable.IsZero() {
		return latestAvailable, true
	}

	return requested, false
}

// Resolve looks up the rate for one pair and date, short-circuiting on
// the first tier that hits
func (r *Resolver) Resolve(
	ctx context.Context,
	pair types.Pair,
	date types.RateDate,
	latestAvailable types.RateDate,
) (*Resolution, error) {
	// An empty date asks for the most recent known rates
	if date.IsZero() {
		date = latestAvailable
		if date.IsZero() {
			date = types.DateOf(r.now())
		}
	}

	dateUsed, substituted := EffectiveDate(date, latestAvailable, r.now())

	var (
		key      = types.RateKey{Source: r.source, Pair: pair, Date: dateUsed}
		cacheKey = cache.RateKey(key)
	)

	// Tier 1: ephemeral cache. Failures read as misses
	if rate, ok := r.cachedRate(ctx, cacheKey); ok {
		return &Resolution{Rate: rate, DateUsed: dateUsed, Substituted: substituted}, nil
	}

	// Tier 2: durable store
	record, found, err := r.store.FindRate(ctx, key)
	if err != nil {
		// Unknown, not confirmed missing; fall through to the provider
		r.logger.Warn(
			"rate store lookup failed",
			"pair", pair.Key(),
			"date", dateUsed.String(),
			"err", err,
		)
	}

	if found {
		r.putCache(ctx, cacheKey, record.Rate)

		return &Resolution{Rate: record.Rate, DateUsed: dateUsed, Substituted: substituted}, nil
	}

	// Tier 3: external provider
	quote, err := r.provider.FetchOne(ctx, pair, dateUsed)
	if err != nil {
		r.logger.Error(
			"provider fetch failed",
			"pair", pair.Key(),
			"date", dateUsed.String(),
			"err", err,
		)

		return nil, fmt.Errorf("%w for %s", ErrRateUnavailable, dateUsed)
	}

	// Persist back, keyed by the requested date, not the provider's
	// returned rate date. Best effort: a failed write is logged, never
	// propagated
	newRecord := types.RateRecord{
		Rate:        quote.Rate,
		LastUpdated: quote.FetchedAt,
		Source:      r.source,
	}

	if err := r.store.UpsertRate(ctx, key, newRecord); err != nil {
		r.logger.Warn(
			"rate store write-back failed",
			"pair", pair.Key(),
			"date", dateUsed.String(),
			"err", err,
		)
	}

	r.putCache(ctx, cacheKey, quote.Rate)

	return &Resolution{Rate: quote.Rate, DateUsed: dateUsed, Substituted: substituted}, nil
}

// WarmLatest loads the store's most recent date's pairs into the cache
// and reports that date, for callers that need a "latest available date"
// reference. Both steps are best effort
func (r *Resolver) WarmLatest(ctx context.Context) (types.RateDate, bool) {
	latest, found, err := r.store.LatestDate(ctx)
	if err != nil {
		r.logger.Warn("latest date lookup failed", "err", err)

		return types.RateDate{}, false
	}

	if !found {
		return types.RateDate{}, false
	}

	records, err := r.store.RatesForDate(ctx, latest)
	if err != nil {
		r.logger.Warn("latest rates fetch failed", "date", latest.String(), "err", err)

		return latest, true
	}

	for pair, record := range records {
		key := types.RateKey{Source: r.source, Pair: pair, Date: latest}

		r.putCache(ctx, cache.RateKey(key), record.Rate)
	}

	return latest, true
}

// cachedRate reads one rate from the cache, treating any failure or
// malformed entry as a miss
func (r *Resolver) cachedRate(ctx context.Context, key string) (float64, bool) {
	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("cache read failed", "key", key, "err", err)

		return 0, false
	}

	if !ok {
		return 0, false
	}

	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}

	return rate, true
}

// putCache writes one rate through to the cache, swallowing failures
func (r *Resolver) putCache(ctx context.Context, key string, rate float64) {
	value := strconv.FormatFloat(rate, 'f', -1, 64)

	if err := r.cache.Put(ctx, key, value, cache.DefaultTTL); err != nil {
		r.logger.Warn("cache write failed", "key", key, "err", err)
	}
}
