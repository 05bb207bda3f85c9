package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	m := metrics.New()
	app := cli.MustApp(ctx, cfg, logger, m)
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	authn, err := auth.New(auth.Config{
		Username:     cfg.AuthUsername,
		PasswordHash: cfg.AuthPasswordHash,
		Secret:       cfg.AuthSecret,
		TokenTTL:     cfg.AuthTokenTTL,
	})
	if err != nil {
		logger.Error("Failed to initialize authentication", applog.FieldError, err)
		os.Exit(1)
	}
	if authn == nil {
		logger.Warn("Authentication disabled - set AUTH_USERNAME to protect the API")
	}

	scheduler, err := worker.NewRecurringWorker(app.Recurring, app.Loans, m, worker.RecurringWorkerConfig{
		Schedule:    cfg.RecurringSchedule,
		Location:    cfg.Location(),
		AutoConfirm: cfg.RecurringAutoConfirm,
	})
	if err != nil {
		logger.Error("Failed to schedule recurring worker", applog.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Finance:   app.Finance,
		Recurring: app.Recurring,
		Loans:     app.Loans,
	}, apphttp.Options{
		Auth:      authn,
		Metrics:   m,
		Logger:    logger.WithComponent(applog.ComponentHTTP),
		RateLimit: cfg.RateLimit,
		Location:  cfg.Location(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"timezone", cfg.Timezone,
			"auth", authn != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		logger.Info("Shutting down server...", applog.FieldOperation, applog.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
