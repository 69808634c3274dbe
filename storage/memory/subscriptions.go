package memory

import (
	"context"
	"sync"
	"time"

	"github.com/instantcurrency/rates/storage/types"
)

// SubscriptionStore is the in-memory subscription store, keyed by
// customer email then product ID
type SubscriptionStore struct {
	customers map[string]map[string]types.ProductSubscription

	mu sync.RWMutex
}

func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		customers: make(map[string]map[string]types.ProductSubscription),
	}
}

func (s *SubscriptionStore) ProductSubscription(
	_ context.Context,
	email string,
	productID string,
) (*types.ProductSubscription, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.customers[email][productID]
	if !ok {
		return nil, false, nil
	}

	return &record, true, nil
}

func (s *SubscriptionStore) UpsertProductSubscription(
	_ context.Context,
	email string,
	productID string,
	record types.ProductSubscription,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, ok := s.customers[email]
	if !ok {
		products = make(map[string]types.ProductSubscription)
		s.customers[email] = products
	}

	products[productID] = record

	return nil
}

func (s *SubscriptionStore) SetSubscriptionStatus(
	_ context.Context,
	email string,
	productID string,
	status types.SubscriptionStatus,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.customers[email][productID]
	if !ok {
		return nil // only existing records are touched
	}

	record.Status = status
	record.LastUpdated = time.Now().UTC()
	s.customers[email][productID] = record

	return nil
}
