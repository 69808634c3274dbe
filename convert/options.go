package convert

import (
	"log/slog"
	"time"
)

// Option configures the converter
type Option func(*Converter)

// WithLogger sets the logger for the converter
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithNowFunc overrides the clock, used in tests
func WithNowFunc(now func() time.Time) Option {
	return func(c *Converter) {
		c.now = now
	}
}
