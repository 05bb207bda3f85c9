// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/fintrack, cmd/recurring-worker and cmd/export-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logCfg := applog.DefaultConfig()
	logCfg.Component = component
	logCfg.Format = cfg.LogFormat
	if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
		logCfg.Level = level
	}
	logger := applog.New(logCfg)
	applog.SetDefault(logger)
	return logger
}

// LoadConfig reads the environment and returns the validated configuration
// with a logger configured from it. The logger is returned even when
// validation fails so the caller can report the problem.
func LoadConfig(component string) (*config.Config, *applog.Logger, error) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

// LoadAndValidateConfig is LoadConfig for main functions: it exits the
// process on validation failure.
func LoadAndValidateConfig(component string) (*config.Config, *applog.Logger) {
	cfg, logger, err := LoadConfig(component)
	if err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// App bundles the services shared by every binary.
type App struct {
	Finance   *services.FinanceService
	Recurring *services.RecurringService
	Loans     *services.LoanService
	Metrics   *metrics.Metrics
	Backend   *backend.BackendResult

	dashboards *cache.Ristretto[services.Dashboard]
}

// NewApp opens the configured backend and builds the services on top of it.
func NewApp(ctx context.Context, cfg *config.Config, logger *applog.Logger, m *metrics.Metrics) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentStorage).Logger, m).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	dashboards, err := cache.NewRistretto[services.Dashboard](cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		_ = res.Cleanup()
		return nil, fmt.Errorf("create dashboard cache: %w", err)
	}

	opts := []services.Option{
		services.WithLocation(cfg.Location()),
		services.WithMetrics(m),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}

	fin := services.NewFinanceService(res.Repository, dashboards, opts...)
	return &App{
		Finance:    fin,
		Recurring:  services.NewRecurringService(fin),
		Loans:      services.NewLoanService(res.Repository, opts...),
		Metrics:    m,
		Backend:    res,
		dashboards: dashboards,
	}, nil
}

// MustApp is NewApp for main functions: it exits the process on failure.
func MustApp(ctx context.Context, cfg *config.Config, logger *applog.Logger, m *metrics.Metrics) *App {
	app, err := NewApp(ctx, cfg, logger, m)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return app
}

// Close releases the cache, the broker connection and the store.
func (a *App) Close() error {
	a.dashboards.Close()
	if a.Backend.Cleanup == nil {
		return nil
	}
	return a.Backend.Cleanup()
}

// GracefulShutdown returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal terminates the process immediately.
func GracefulShutdown(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 2)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), applog.FieldOperation, applog.OpShutdown)
			cancel()
		case <-ctx.Done():
			return
		}

		sig := <-sigChan
		logger.Warn("Second shutdown signal, exiting", "signal", sig.String())
		os.Exit(1)
	}()

	return ctx, cancel
}

// IgnoreCanceled drops the context.Canceled error a component returns when
// it stops because of shutdown.
func IgnoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
