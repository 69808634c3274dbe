package storage

import (
	"context"

	"github.com/instantcurrency/rates/storage/types"
)

// RateStore is the durable per-date, per-pair rate store. All writes are
// field-level merges at dotted paths inside one fixed document per source,
// so independent pairs never clobber each other.
//
// Adapters return errors as-is; callers treat a failed lookup as "unknown",
// not "confirmed missing", and fall through to the next tier.
type RateStore interface {
	// FindRate point-looks-up a single pair's record for a date
	FindRate(ctx context.Context, key types.RateKey) (*types.RateRecord, bool, error)

	// UpsertRate merges one pair's record at its dotted path, creating the
	// parent document if absent
	UpsertRate(ctx context.Context, key types.RateKey, record types.RateRecord) error

	// BatchUpsertRates merges many pairs for one date in a single round trip.
	// Atomic per call, independent across calls
	BatchUpsertRates(ctx context.Context, date types.RateDate, records map[types.Pair]types.RateRecord) error

	// ExistingPairs returns which pair keys exist under a date, without
	// transferring rate values
	ExistingPairs(ctx context.Context, date types.RateDate) (map[types.Pair]struct{}, error)

	// RatesForDate returns all records stored under a date
	RatesForDate(ctx context.Context, date types.RateDate) (map[types.Pair]types.RateRecord, error)

	// LatestDate returns the maximum stored rate date by calendar ordering
	LatestDate(ctx context.Context) (types.RateDate, bool, error)
}

// WatermarkStore persists the refresh job's run state: the most recent rate
// date for which the full currency matrix is known complete
type WatermarkStore interface {
	// LastRateDate reads the watermark, reporting absence on first run
	LastRateDate(ctx context.Context) (types.RateDate, bool, error)

	// SetLastRateDate advances the watermark
	SetLastRateDate(ctx context.Context, date types.RateDate) error
}
