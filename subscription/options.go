package subscription

import (
	"log/slog"
	"time"
)

// Option configures the subscription service
type Option func(*Service)

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNowFunc overrides the clock, used in tests
func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}
