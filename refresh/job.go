package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/instantcurrency/rates/cache"
	"github.com/instantcurrency/rates/provider"
	"github.com/instantcurrency/rates/storage"
	"github.com/instantcurrency/rates/storage/types"
)

// Status describes how far a single refresh run got
type Status string

const (
	// StatusSkippedCutoff means the run ended before doing any work because
	// the market-close cutoff had not passed yet
	StatusSkippedCutoff Status = "skipped_cutoff"

	// StatusSkippedFresh means the provider's current rate date was already
	// recorded as fully completed
	StatusSkippedFresh Status = "skipped_fresh"

	// StatusProbeFailed means the sentinel fetch used to discover the
	// provider's current rate date did not succeed
	StatusProbeFailed Status = "probe_failed"

	// StatusPartial means some pairs were persisted but the matrix is not
	// complete for the rate date. The completion watermark is untouched and
	// the next run resumes from what is missing
	StatusPartial Status = "partial"

	// StatusComplete means every matrix pair is stored for the rate date and
	// the completion watermark was advanced
	StatusComplete Status = "complete"
)

// Result is the structured outcome of a refresh run. Partial completion is
// an expected outcome, not an error
type Result struct {
	Status       Status
	RateDate     types.RateDate
	TotalPairs   int
	PairsAdded   int
	MissingPairs int
}

const defaultBudget = time.Minute * 4

var errInvalidMatrix = errors.New("currency matrix needs at least two currencies")

// Job fills in the full pair matrix for the provider's current rate date.
// Every run is resumable: it diffs the stored pairs against the matrix and
// fetches only what is missing, one batch per base currency
type Job struct {
	store     storage.RateStore
	watermark storage.WatermarkStore
	provider  provider.Provider
	cache     cache.Cache
	gate      *TimeGate

	matrix []types.Currency
	source types.Source
	budget time.Duration

	logger *slog.Logger
	now    func() time.Time
}

// NewJob creates a refresh job over the given matrix of currencies
func NewJob(store storage.RateStore, watermark storage.WatermarkStore, p provider.Provider, matrix []types.Currency, opts ...Option) (*Job, error) {
	if len(matrix) < 2 {
		return nil, errInvalidMatrix
	}

	j := &Job{
		store:     store,
		watermark: watermark,
		provider:  p,
		matrix:    matrix,
		source:    types.SourceECB,
		budget:    defaultBudget,
		logger:    noopLogger,
		now:       time.Now,
	}

	// Apply the options
	for _, opt := range opts {
		opt(j)
	}

	return j, nil
}

// Run executes one refresh pass. The returned error covers only failures to
// read or advance bookkeeping state; provider trouble degrades the Status
// instead
func (j *Job) Run(ctx context.Context) (Result, error) {
	started := j.now()
	logger := j.logger.With("run_id", xid.New().String())

	if j.gate != nil && !j.gate.IsPastCutoff(ctx) {
		logger.Info("cutoff not reached, skipping refresh")

		return Result{Status: StatusSkippedCutoff}, nil
	}

	// Sentinel probe: one single-pair latest fetch tells us which rate date
	// the provider is currently publishing
	probe, err := j.provider.FetchOne(ctx, types.Pair{From: j.matrix[0], To: j.matrix[1]}, types.RateDate{})
	if err != nil {
		logger.Error("sentinel probe failed", "err", err)

		return Result{Status: StatusProbeFailed}, nil
	}

	rateDate := probe.RateDate
	logger = logger.With("rate_date", rateDate.String())

	mark, found, err := j.watermark.LastRateDate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("unable to read completion watermark: %w", err)
	}

	// A mismatch, not just a newer date, triggers a run. Equality is the
	// only state that means "nothing to do"
	if found && mark.Equal(rateDate) {
		logger.Info("rate date already completed, skipping refresh")

		return Result{Status: StatusSkippedFresh, RateDate: rateDate}, nil
	}

	missing, err := j.missingPairs(ctx, rateDate)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		RateDate:   rateDate,
		TotalPairs: len(j.matrix) * (len(j.matrix) - 1),
	}

	for _, base := range j.matrix {
		targets := missingTargets(missing, base)
		if len(targets) == 0 {
			continue
		}

		if elapsed := j.now().Sub(started); elapsed > j.budget {
			logger.Warn("time budget exhausted, stopping early", "elapsed", elapsed)

			break
		}

		added, err := j.refreshBase(ctx, base, targets, rateDate)
		if err != nil {
			logger.Error("batch refresh failed for base", "base", base, "err", err)

			continue
		}

		result.PairsAdded += added
	}

	// Re-verify from storage before advancing the watermark. Counting what
	// we just wrote is not enough: a concurrent run, a skipped base or a
	// stale provider date all leave holes only the store can reveal
	remaining, err := j.missingPairs(ctx, rateDate)
	if err != nil {
		return Result{}, err
	}

	result.MissingPairs = len(remaining)

	if len(remaining) > 0 {
		logger.Info("refresh incomplete", "added", result.PairsAdded, "missing", len(remaining))
		result.Status = StatusPartial

		return result, nil
	}

	if err := j.watermark.SetLastRateDate(ctx, rateDate); err != nil {
		return result, fmt.Errorf("unable to advance completion watermark: %w", err)
	}

	logger.Info("refresh complete", "added", result.PairsAdded, "pairs", result.TotalPairs)
	result.Status = StatusComplete

	return result, nil
}

// refreshBase fetches one batch for the base currency and persists the
// returned rates that are still missing. Returns how many pairs were written
func (j *Job) refreshBase(ctx context.Context, base types.Currency, targets []types.Currency, rateDate types.RateDate) (int, error) {
	batch, err := j.provider.FetchBatch(ctx, base, targets)
	if err != nil {
		return 0, err
	}

	// The provider may still be publishing yesterday's date. Writing those
	// rates would poison the matrix for rateDate, so the whole batch is
	// skipped and picked up by a later run
	if !batch.RateDate.Equal(rateDate) {
		return 0, fmt.Errorf("provider returned rate date %s, want %s", batch.RateDate, rateDate)
	}

	records := make(map[types.Pair]types.RateRecord, len(targets))
	for _, target := range targets {
		rate, ok := batch.Rates[target]
		if !ok {
			continue
		}

		records[types.Pair{From: base, To: target}] = types.RateRecord{
			Rate:        rate,
			LastUpdated: batch.FetchedAt,
			Source:      j.source,
		}
	}

	if len(records) == 0 {
		return 0, nil
	}

	if err := j.store.BatchUpsertRates(ctx, rateDate, records); err != nil {
		return 0, err
	}

	j.warmCache(ctx, rateDate, records)

	return len(records), nil
}

// warmCache is best effort: cache trouble never degrades the run
func (j *Job) warmCache(ctx context.Context, rateDate types.RateDate, records map[types.Pair]types.RateRecord) {
	if j.cache == nil {
		return
	}

	for pair, record := range records {
		key := cache.RateKey(types.RateKey{Source: j.source, Pair: pair, Date: rateDate})
		value := strconv.FormatFloat(record.Rate, 'f', -1, 64)

		if err := j.cache.Put(ctx, key, value, cache.RefreshTTL); err != nil {
			j.logger.Warn("unable to warm cache entry", "key", key, "err", err)
		}
	}
}

// missingPairs diffs the stored pairs for the rate date against the full
// matrix, preserving matrix order
func (j *Job) missingPairs(ctx context.Context, rateDate types.RateDate) ([]types.Pair, error) {
	existing, err := j.store.ExistingPairs(ctx, rateDate)
	if err != nil {
		return nil, fmt.Errorf("unable to list existing pairs: %w", err)
	}

	var missing []types.Pair
	for _, pair := range types.MatrixPairs(j.matrix) {
		if _, ok := existing[pair]; !ok {
			missing = append(missing, pair)
		}
	}

	return missing, nil
}

func missingTargets(missing []types.Pair, base types.Currency) []types.Currency {
	var targets []types.Currency
	for _, pair := range missing {
		if pair.From == base {
			targets = append(targets, pair.To)
		}
	}

	return targets
}
