package server

import (
	"log/slog"

	"github.com/instantcurrency/rates/cache"
	"github.com/instantcurrency/rates/server/config"
)

type Option func(s *Server)

// WithLogger specifies the logger for the server
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithConfig specifies the config for the server
func WithConfig(c *config.Config) Option {
	return func(s *Server) {
		s.config = c
	}
}

// WithCache enables response caching for the currency listing
func WithCache(c cache.Cache) Option {
	return func(s *Server) {
		s.cache = c
	}
}
