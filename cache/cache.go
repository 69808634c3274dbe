// Package cache defines the fast ephemeral key-value tier backing the
// rate-resolution pipeline. Entries expire on a fixed TTL and are never
// explicitly invalidated; a cache failure is always treated as a miss by
// callers (fail open), never raised to the user.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/instantcurrency/rates/storage/types"
)

const (
	// DefaultTTL covers interactive read-through entries
	DefaultTTL = 6 * time.Hour

	// RefreshTTL covers entries warmed by the daily refresh job; slightly
	// over a day, matching the once-daily refresh cadence
	RefreshTTL = 25 * time.Hour
)

// Cache is a shared ephemeral string store with TTL-based expiry
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RateKey builds the cache key for a stored rate:
// "<SOURCE>_<FROM>_<TO>_<date>"
func RateKey(key types.RateKey) string {
	return fmt.Sprintf("%s_%s_%s", key.Source, key.Pair.Key(), key.Date)
}

// SubscriptionKey builds the cache key for a subscription status lookup
func SubscriptionKey(email, productID string) string {
	return fmt.Sprintf("%s-%s", email, productID)
}
