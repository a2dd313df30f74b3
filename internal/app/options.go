package service

import (
	"time"

	"github.com/okian/forfeit/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of scoreboard workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the score refresh queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many request ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDedupeTTL forgets request ids after ttl.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.dedupeTTL = ttl
		}
	}
}

// WithTxRetries sets how many times a conflicting attempt is retried.
func WithTxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.txRetries = n
		}
	}
}

// WithMaxSubmissionLength rejects longer submissions.
func WithMaxSubmissionLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSubmissionLength = n
		}
	}
}

// WithMaxScoreboardLimit caps TopN.
func WithMaxScoreboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxScoreboardLimit = n
		}
	}
}

// WithClock overrides the timestamp source for submissions and awards.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
