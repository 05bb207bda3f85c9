package main

import (
	"os"

	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/worker"
)

// recurring-worker runs the recurring scheduler without the HTTP API. It may
// share the SQLite file with a running fintrack process: store updates take
// the database write lock, so auto-confirmed occurrences and API writes never
// overwrite each other.
func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentWorker)
	logger.Info("Starting recurring-worker")

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	m := metrics.New()
	app := cli.MustApp(ctx, cfg, logger, m)
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	if app.Backend.Publisher == nil {
		logger.Info("AMQP disabled - due occurrences will only be logged")
	}

	w, err := worker.NewRecurringWorker(app.Recurring, app.Loans, m, worker.RecurringWorkerConfig{
		Schedule:    cfg.RecurringSchedule,
		Location:    cfg.Location(),
		AutoConfirm: cfg.RecurringAutoConfirm,
	})
	if err != nil {
		logger.Error("Failed to schedule recurring worker", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring processor configured",
		"schedule", cfg.RecurringSchedule,
		"timezone", cfg.Timezone,
		"auto_confirm", cfg.RecurringAutoConfirm,
		"backend", cfg.DataBackend)

	// Run once on startup so a restart does not wait for the next tick.
	logger.Info("Running initial recurring processing...")
	if res, err := w.RunOnce(ctx); err != nil {
		logger.Error("Initial processing failed", applog.FieldError, err)
	} else {
		logger.Info("Initial processing complete", "due", res.Due, "confirmed", res.Confirmed)
	}

	if err := w.Run(ctx); err != nil {
		logger.Error("Recurring worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete")
}
