package main

import (
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

const backfillInterval = time.Hour

// export-worker consumes transaction events and mirrors them to Google Sheets.
func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentSheets)
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration invalid", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Starting export-worker")

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	app := cli.MustApp(ctx, cfg, logger, metrics.New())
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		services.EventTransactionCreated, services.EventTransactionDeleted)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter := worker.NewExportWorker(app.Backend.Repository, sheetsClient)
	backfill := func() {
		month := core.DateOf(time.Now().In(cfg.Location())).Month()
		n, err := exporter.Backfill(ctx, month)
		if err != nil {
			logger.Error("Backfill failed", applog.FieldError, err, applog.FieldMonth, month)
			return
		}
		logger.Info("Backfill complete", applog.FieldMonth, month, "exported", n)
	}

	// Events published while the worker was down are only recovered here.
	logger.Info("Performing startup backfill...")
	backfill()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cli.IgnoreCanceled(amqpClient.ConsumeEvents(gctx, exporter.HandleEvent))
	})
	g.Go(func() error {
		ticker := time.NewTicker(backfillInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				backfill()
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Export-worker shutdown complete", applog.FieldOperation, applog.OpShutdown)
}
