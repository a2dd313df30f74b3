// Package config defines service configuration and its defaults.
//
// Values are layered by Load: defaults from New, an optional YAML file named
// by FORFEIT_CONFIG, then FORFEIT_* environment variables.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json records.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBDriver is sqlite or postgres.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is passed to the driver unchanged. Empty selects a driver default.
	DBDSN string `koanf:"db_dsn"`

	// DBMaxOpenConns bounds the Postgres pool. SQLite always uses one connection.
	DBMaxOpenConns int `koanf:"db_max_open_conns"`

	// DBConnMaxLifetime recycles pooled connections after this long.
	DBConnMaxLifetime time.Duration `koanf:"db_conn_max_lifetime"`

	// QueueSize bounds the score refresh queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of score refresh workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the request-id idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// DedupeTTL forgets request ids after this long; 0 keeps them until evicted.
	DedupeTTL time.Duration `koanf:"dedupe_ttl"`

	// TxRetries is how many times a conflicting attempt transaction is retried.
	TxRetries int `koanf:"tx_retries"`

	// MaxScoreboardLimit caps GET /scoreboard?limit.
	MaxScoreboardLimit int `koanf:"max_scoreboard_limit"`

	// MaxSubmissionLength rejects oversized submissions.
	MaxSubmissionLength int `koanf:"max_submission_length"`

	// CORSAllowedOrigins lists origins allowed to call the API from a browser.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// CatalogPath optionally points at a YAML challenge catalog loaded on start.
	CatalogPath string `koanf:"catalog_path"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DBDriver:            DriverSQLite,
		DBDSN:               "",
		DBMaxOpenConns:      20,
		DBConnMaxLifetime:   45 * time.Minute,
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          100_000,
		TxRetries:           3,
		MaxScoreboardLimit:  100,
		MaxSubmissionLength: 4096,
		CORSAllowedOrigins:  []string{"*"},
	}
}

// Default DSNs used when DBDSN is empty.
const (
	DefaultSQLiteDSN   = "file:forfeit.db"
	DefaultPostgresDSN = "postgres://localhost:5432/forfeit?sslmode=disable"
)

// DSN returns DBDSN or the driver's default.
func (c *Config) DSN() string {
	if dsn := strings.TrimSpace(c.DBDSN); dsn != "" {
		return dsn
	}
	if c.DBDriver == DriverPostgres {
		return DefaultPostgresDSN
	}
	return DefaultSQLiteDSN
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != DriverSQLite && c.DBDriver != DriverPostgres:
		return fmt.Errorf("%w: unsupported db_driver %q", ErrInvalidConfig, c.DBDriver)
	case c.DBMaxOpenConns < 1:
		return fmt.Errorf("%w: db_max_open_conns must be positive", ErrInvalidConfig)
	case c.DBConnMaxLifetime < 0:
		return fmt.Errorf("%w: db_conn_max_lifetime must not be negative", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeTTL < 0:
		return fmt.Errorf("%w: dedupe_ttl must not be negative", ErrInvalidConfig)
	case c.TxRetries < 0:
		return fmt.Errorf("%w: tx_retries must not be negative", ErrInvalidConfig)
	case c.MaxScoreboardLimit < 1:
		return fmt.Errorf("%w: max_scoreboard_limit must be positive", ErrInvalidConfig)
	case c.MaxSubmissionLength < 1:
		return fmt.Errorf("%w: max_submission_length must be positive", ErrInvalidConfig)
	}
	return nil
}
