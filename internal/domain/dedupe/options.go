package dedupe

import "time"

// Option applies a configuration option to the request log.
type Option func(*requestLog)

// WithMaxSize bounds the number of remembered claims. Values <= 0 mean unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *requestLog) {
		d.maxSize = maxSize
	}
}

// WithTTL forgets claims older than ttl. Zero keeps claims until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(d *requestLog) {
		if ttl >= 0 {
			d.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *requestLog) {
		if now != nil {
			d.now = now
		}
	}
}
