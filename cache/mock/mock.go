package mock

import (
	"context"
	"time"
)

type (
	GetDelegate func(context.Context, string) (string, bool, error)
	PutDelegate func(context.Context, string, string, time.Duration) error
)

type Cache struct {
	GetFn GetDelegate
	PutFn PutDelegate
}

func (m *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}

	return "", false, nil
}

func (m *Cache) Put(ctx context.Context, key string, value string, ttl time.Duration) error {
	if m.PutFn != nil {
		return m.PutFn(ctx, key, value, ttl)
	}

	return nil
}
