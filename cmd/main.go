package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/forfeit/internal/adapters/http/api"
	"github.com/okian/forfeit/internal/adapters/http/swagger"
	"github.com/okian/forfeit/internal/adapters/repository"
	service "github.com/okian/forfeit/internal/app"
	"github.com/okian/forfeit/internal/catalog"
	"github.com/okian/forfeit/internal/config"
	"github.com/okian/forfeit/pkg/logger"
	"github.com/okian/forfeit/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	startupTimeout            = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWith(os.Stdout, logger.Format(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "forfeit exited", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	store, err := openStore(startCtx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc, err := newService(store, cfg, log)
	if err != nil {
		return err
	}
	if err := seedCatalog(startCtx, svc, cfg.CatalogPath, log); err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Warn(stopCtx, "service stop", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(svc, cfg, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	store, err := repository.Open(ctx, cfg.DBDriver, cfg.DSN(),
		repository.WithMaxOpenConns(cfg.DBMaxOpenConns),
		repository.WithConnMaxLifetime(cfg.DBConnMaxLifetime),
	)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func newService(store *repository.Store, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	return service.New(store,
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithDedupeTTL(cfg.DedupeTTL),
		service.WithTxRetries(cfg.TxRetries),
		service.WithMaxSubmissionLength(cfg.MaxSubmissionLength),
		service.WithMaxScoreboardLimit(cfg.MaxScoreboardLimit),
	)
}

// seedCatalog upserts every challenge from the catalog file, if one is configured.
func seedCatalog(ctx context.Context, svc *service.Service, path string, log logger.Logger) error {
	if path == "" {
		return nil
	}
	challenges, err := catalog.Load(path)
	if err != nil {
		return err
	}
	for _, c := range challenges {
		if _, err := svc.CreateChallenge(ctx, c); err != nil {
			return fmt.Errorf("seed %s: %w", c.ID, err)
		}
	}
	log.Info(ctx, "catalog loaded", logger.String("path", path), logger.Int("challenges", len(challenges)))
	return nil
}

func newHandler(svc *service.Service, cfg *config.Config, log logger.Logger) http.Handler {
	return api.NewServer(svc,
		api.WithLogger(log.Named("http")),
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithMaxBodyBytes(int64(cfg.MaxSubmissionLength)+4096),
		api.WithMount(func(r chi.Router) { swagger.Mount(r) }),
	).Handler()
}

// startSystemMetricsUpdater refreshes process gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
