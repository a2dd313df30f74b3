// Package repository persists challenges, the submission log and the award
// ledger, and keeps the in-memory scoreboard standings.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/okian/forfeit/pkg/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the SQL-backed system of record.
type Store struct {
	db       *sql.DB
	driver   string
	logger   logger.Logger
	maxOpen  int
	connLife time.Duration
}

// Open connects to the database, tunes the pool and verifies connectivity.
// The schema is not applied; call Migrate.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	driver = normalizeDriver(driver)

	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
	case DriverPostgres:
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	s := &Store{
		driver:   driver,
		maxOpen:  20,
		connLife: 45 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("repository")
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	s.db = db
	s.tunePool()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		if err := s.applyPragmas(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	s.logger.Info(ctx, "database connected", logger.String("driver", driver))
	return s, nil
}

// Driver returns the canonical driver name.
func (s *Store) Driver() string { return s.driver }

// Close closes the pool. It is safe to call more than once.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	return s.db.PingContext(ctx)
}

// Migrate applies the schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// WithTx runs fn in a transaction. It commits when fn returns nil and rolls
// back on error or panic. Conflicts surface as ErrConcurrencyConflict.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
			return
		}
		if e := sqlTx.Commit(); e != nil {
			err = classify(fmt.Errorf("commit: %w", e))
		}
	}()

	err = fn(ctx, &Tx{tx: sqlTx, driver: s.driver})
	if err != nil {
		err = classify(err)
	}
	return err
}

func (s *Store) tunePool() {
	maxOpen, maxIdle := s.maxOpen, s.maxOpen/2
	connLife, idleLife := s.connLife, 15*time.Minute

	if s.driver == DriverSQLite {
		// Single writer; one connection also serializes attempt transactions.
		maxOpen, maxIdle = 1, 1
		connLife, idleLife = 0, 0
	}

	s.db.SetMaxOpenConns(maxOpen)
	s.db.SetMaxIdleConns(maxIdle)
	s.db.SetConnMaxLifetime(connLife)
	s.db.SetConnMaxIdleTime(idleLife)
}

func (s *Store) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func normalizeDriver(d string) string {
	switch d = strings.ToLower(strings.TrimSpace(d)); d {
	case "pg", "pgsql", "pgx":
		return DriverPostgres
	case "sqlite3", "":
		return DriverSQLite
	default:
		return d
	}
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
