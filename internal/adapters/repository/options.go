package repository

import (
	"time"

	"github.com/okian/forfeit/pkg/logger"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxOpenConns overrides the pool size chosen for the driver. SQLite
// always keeps a single connection.
func WithMaxOpenConns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxOpen = n
		}
	}
}

// WithConnMaxLifetime overrides how long a pooled connection is reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.connLife = d
		}
	}
}
