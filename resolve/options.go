package resolve

import (
	"log/slog"
	"time"

	"github.com/instantcurrency/rates/storage/types"
)

type Option func(r *Resolver)

// WithLogger specifies the logger for the resolver
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithSource specifies the rate source the resolver keys under.
// Defaults to ECB
func WithSource(s types.Source) Option {
	return func(r *Resolver) {
		r.source = s
	}
}

// WithNowFunc overrides the clock, for tests
func WithNowFunc(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}
