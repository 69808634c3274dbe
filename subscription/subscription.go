// Package subscription tracks per-customer product subscriptions fed by
// payment webhooks and answers cached status checks
package subscription

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/instantcurrency/rates/cache"
	"github.com/instantcurrency/rates/storage/types"
)

// Store is the durable subscription backend
type Store interface {
	ProductSubscription(ctx context.Context, email, productID string) (*types.ProductSubscription, bool, error)
	UpsertProductSubscription(ctx context.Context, email, productID string, record types.ProductSubscription) error
	SetSubscriptionStatus(ctx context.Context, email, productID string, status types.SubscriptionStatus) error
}

// Service answers subscription status checks through the cache and applies
// payment events to the store
type Service struct {
	store Store
	cache cache.Cache

	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a subscription service
func NewService(store Store, c cache.Cache, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cache:  c,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}

	// Apply the options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Status returns the subscription state for one customer and product.
// Unknown customers read as "none". Cache and store failures both degrade
// to "none" rather than blocking the caller
func (s *Service) Status(ctx context.Context, email, productID string) (types.SubscriptionStatus, error) {
	if record, ok := s.cachedRecord(ctx, email, productID); ok {
		return record.Status, nil
	}

	record, found, err := s.store.ProductSubscription(ctx, email, productID)
	if err != nil {
		s.logger.Error("subscription lookup failed", "email", email, "product", productID, "err", err)

		return types.SubscriptionNone, nil
	}

	if !found {
		return types.SubscriptionNone, nil
	}

	// Only active subscriptions are worth caching: a canceled record could
	// otherwise mask a re-purchase for the full TTL
	if record.Status == types.SubscriptionActive {
		s.cacheRecord(ctx, email, productID, record)
	}

	return record.Status, nil
}

// IsSubscribed reports whether the customer holds an active subscription
func (s *Service) IsSubscribed(ctx context.Context, email, productID string) bool {
	status, err := s.Status(ctx, email, productID)
	if err != nil {
		return false
	}

	return status == types.SubscriptionActive
}

// Apply updates the store from one recognized payment event
func (s *Service) Apply(ctx context.Context, event *Event) error {
	switch event.Type {
	case EventCheckoutCompleted:
		return s.applyCheckout(ctx, event)
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return s.applyStatus(ctx, event, event.Status)
	case EventSubscriptionDeleted:
		return s.applyStatus(ctx, event, types.SubscriptionCanceled)
	default:
		s.logger.Info("ignoring unhandled payment event", "type", event.Type)

		return nil
	}
}

// applyCheckout records every purchased line item as an active subscription
func (s *Service) applyCheckout(ctx context.Context, event *Event) error {
	for _, item := range event.LineItems {
		record := types.ProductSubscription{
			ProductName:      item.Description,
			StripeCustomerID: event.CustomerID,
			Status:           types.SubscriptionActive,
			LastUpdated:      s.now().UTC(),
		}

		if err := s.store.UpsertProductSubscription(ctx, event.Email, item.ProductID, record); err != nil {
			return err
		}

		s.logger.Info("subscription activated",
			"email", event.Email, "product", item.ProductID, "name", item.Description)
	}

	return nil
}

func (s *Service) applyStatus(ctx context.Context, event *Event, status types.SubscriptionStatus) error {
	for _, item := range event.LineItems {
		if err := s.store.SetSubscriptionStatus(ctx, event.Email, item.ProductID, status); err != nil {
			return err
		}

		s.logger.Info("subscription status updated",
			"email", event.Email, "product", item.ProductID, "status", status)
	}

	return nil
}

func (s *Service) cachedRecord(ctx context.Context, email, productID string) (*types.ProductSubscription, bool) {
	value, ok, err := s.cache.Get(ctx, cache.SubscriptionKey(email, productID))
	if err != nil {
		s.logger.Warn("subscription cache read failed", "err", err)

		return nil, false
	}

	if !ok {
		return nil, false
	}

	var record types.ProductSubscription
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		s.logger.Warn("discarding malformed cached subscription", "err", err)

		return nil, false
	}

	return &record, true
}

func (s *Service) cacheRecord(ctx context.Context, email, productID string, record *types.ProductSubscription) {
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}

	key := cache.SubscriptionKey(email, productID)
	if err := s.cache.Put(ctx, key, string(payload), cache.DefaultTTL); err != nil {
		s.logger.Warn("subscription cache write failed", "key", key, "err", err)
	}
}
