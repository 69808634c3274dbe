package memory

import (
	"context"
	"sync"

	"github.com/instantcurrency/rates/storage/types"
)

// Store is an in-memory rate store, mirroring the durable adapter's
// per-date, per-pair merge semantics. Used for local serving and tests.
type Store struct {
	rates     map[string]map[types.Pair]types.RateRecord // date -> pair -> record
	watermark types.RateDate
	hasMark   bool

	mu sync.RWMutex
}

func NewStore() *Store {
	return &Store{
		rates: make(map[string]map[types.Pair]types.RateRecord),
	}
}

func (s *Store) FindRate(_ context.Context, key types.RateKey) (*types.RateRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pairs, ok := s.rates[key.Date.String()]
	if !ok {
		return nil, false, nil
	}

	record, ok := pairs[key.Pair]
	if !ok {
		return nil, false, nil
	}

	return &record, true, nil
}

func (s *Store) UpsertRate(_ context.Context, key types.RateKey, record types.RateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(key.Date, key.Pair, record)

	return nil
}

func (s *Store) BatchUpsertRates(
	_ context.Context,
	date types.RateDate,
	records map[types.Pair]types.RateRecord,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for pair, record := range records {
		s.put(date, pair, record)
	}

	return nil
}

// put merges a single pair record. Caller holds the write lock
func (s *Store) put(date types.RateDate, pair types.Pair, record types.RateRecord) {
	pairs, ok := s.rates[date.String()]
	if !ok {
		pairs = make(map[types.Pair]types.RateRecord)
		s.rates[date.String()] = pairs
	}

	pairs[pair] = record
}

func (s *Store) ExistingPairs(_ context.Context, date types.RateDate) (map[types.Pair]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing := make(map[types.Pair]struct{}, len(s.rates[date.String()]))
	for pair := range s.rates[date.String()] {
		existing[pair] = struct{}{}
	}

	return existing, nil
}

func (s *Store) RatesForDate(
	_ context.Context,
	date types.RateDate,
) (map[types.Pair]types.RateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make(map[types.Pair]types.RateRecord, len(s.rates[date.String()]))
	for pair, record := range s.rates[date.String()] {
		records[pair] = record
	}

	return records, nil
}

func (s *Store) LatestDate(_ context.Context) (types.RateDate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest types.RateDate
		found  bool
	)

	for raw := range s.rates {
		date, err := types.ParseRateDate(raw)
		if err != nil {
			continue
		}

		if !found || date.After(latest) {
			latest = date
			found = true
		}
	}

	return latest, found, nil
}

func (s *Store) LastRateDate(_ context.Context) (types.RateDate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.watermark, s.hasMark, nil
}

func (s *Store) SetLastRateDate(_ context.Context, date types.RateDate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.watermark = date
	s.hasMark = true

	return nil
}
