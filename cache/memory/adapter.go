package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Cache is a process-local TTL cache with the same contract as the
// shared Redis tier. Expired entries are dropped lazily on read
type Cache struct {
	entries map[string]entry
	now     func() time.Time

	mu sync.Mutex
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}

	if c.now().After(e.expiresAt) {
		delete(c.entries, key)

		return "", false, nil
	}

	return e.value, true, nil
}

func (c *Cache) Put(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}

	return nil
}
