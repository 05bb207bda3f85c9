// Package worker holds the background jobs: the spreadsheet export consumer
// and the recurring scheduler.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	"fintrack/internal/store"
)

// ExportWorker mirrors transaction events to a spreadsheet.
type ExportWorker struct {
	repo     *store.Repository
	exporter sheets.TransactionExporter
}

func NewExportWorker(repo *store.Repository, exporter sheets.TransactionExporter) *ExportWorker {
	return &ExportWorker{repo: repo, exporter: exporter}
}

// HandleEvent processes a single event from AMQP. Events other than
// transaction changes are acknowledged and ignored.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.EventMessage) error {
	switch msg.Type {
	case services.EventTransactionCreated:
		var t core.Transaction
		if err := msg.DecodePayload(&t); err != nil {
			return fmt.Errorf("decode transaction %s: %w", msg.ID, err)
		}
		return w.export(ctx, t)

	case services.EventTransactionDeleted:
		var t core.Transaction
		if err := msg.DecodePayload(&t); err != nil {
			return fmt.Errorf("decode transaction %s: %w", msg.ID, err)
		}
		if err := w.exporter.RemoveTransaction(ctx, t.ID, t.Date); err != nil {
			return fmt.Errorf("remove transaction from sheet: %w", err)
		}
		slog.InfoContext(ctx, "Removed transaction from sheet", "id", t.ID)
		return nil

	default:
		slog.DebugContext(ctx, "Ignoring event", "event", msg.Type, "id", msg.ID)
		return nil
	}
}

func (w *ExportWorker) export(ctx context.Context, t core.Transaction) error {
	cats, err := w.repo.Categories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	ref, err := w.exporter.ExportTransaction(ctx, sheets.RowOf(t, core.CategoryName(cats, t.CategoryID)))
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"id", t.ID,
		"sheets_ref", ref,
		"amount", t.Amount.String())
	return nil
}

// Backfill exports the transactions of month that the sheet does not have
// yet. It recovers from events lost while the worker was down. Exporters
// that cannot list their rows get every transaction of the month.
func (w *ExportWorker) Backfill(ctx context.Context, month core.Month) (int, error) {
	txs, err := w.repo.Transactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load transactions: %w", err)
	}

	exported := make(map[string]struct{})
	if lister, ok := w.exporter.(sheets.MonthLister); ok {
		rows, err := lister.ListMonth(ctx, month)
		if err != nil {
			return 0, fmt.Errorf("list exported rows: %w", err)
		}
		for _, r := range rows {
			exported[r.ID] = struct{}{}
		}
	}

	synced, failed := 0, 0
	for _, t := range txs {
		if t.Date.Month() != month {
			continue
		}
		if _, ok := exported[t.ID]; ok {
			continue
		}
		if err := w.export(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during backfill", "id", t.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Backfill completed",
		"month", month,
		"synced", synced,
		"errors", failed)
	if failed > 0 {
		return synced, fmt.Errorf("backfill %s: %d transactions failed", month, failed)
	}
	return synced, nil
}
