package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/metrics"
	"fintrack/internal/services"

	"github.com/robfig/cron/v3"
)

const recurringWorkerName = "recurring"

// RecurringWorker runs the recurring projection on a cron schedule. Each run
// announces due occurrences and, with auto-confirm, records them.
type RecurringWorker struct {
	recurring   *services.RecurringService
	loans       *services.LoanService
	metrics     *metrics.Metrics
	autoConfirm bool
	timeout     time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

type RecurringWorkerConfig struct {
	Schedule    string
	Location    *time.Location
	AutoConfirm bool
	// Timeout bounds a single run. Zero means one minute.
	Timeout time.Duration
}

// RunResult reports what a single run did.
type RunResult struct {
	Due       int
	Confirmed int
	Drifts    int
}

func NewRecurringWorker(recurring *services.RecurringService, loans *services.LoanService, m *metrics.Metrics, cfg RecurringWorkerConfig) (*RecurringWorker, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	w := &RecurringWorker{
		recurring:   recurring,
		loans:       loans,
		metrics:     m,
		autoConfirm: cfg.AutoConfirm,
		timeout:     timeout,
		cron:        cron.New(cron.WithLocation(loc)),
	}

	if _, err := w.cron.AddFunc(cfg.Schedule, w.scheduled); err != nil {
		return nil, fmt.Errorf("schedule recurring job %q: %w", cfg.Schedule, err)
	}
	return w, nil
}

func (w *RecurringWorker) scheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Recurring run failed", "error", err)
	}
}

// RunOnce performs a single run immediately.
func (w *RecurringWorker) RunOnce(ctx context.Context) (RunResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var res RunResult
	due, err := w.recurring.Announce(ctx)
	if err != nil {
		w.metrics.IncrWorkerRun(recurringWorkerName, "error")
		return res, fmt.Errorf("project due occurrences: %w", err)
	}
	res.Due = due

	if w.autoConfirm && due > 0 {
		recorded, err := w.recurring.ConfirmAll(ctx)
		res.Confirmed = len(recorded)
		if err != nil {
			w.metrics.IncrWorkerRun(recurringWorkerName, "error")
			return res, fmt.Errorf("confirm due occurrences: %w", err)
		}
	}

	if w.loans != nil {
		drifts, err := w.loans.Reconcile(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Loan reconciliation failed", "error", err)
		}
		res.Drifts = len(drifts)
	}

	w.metrics.IncrWorkerRun(recurringWorkerName, "ok")
	slog.InfoContext(ctx, "Recurring run complete",
		"due", res.Due,
		"confirmed", res.Confirmed,
		"loan_drifts", res.Drifts)
	return res, nil
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running job to finish.
func (w *RecurringWorker) Run(ctx context.Context) error {
	w.cron.Start()
	slog.InfoContext(ctx, "Recurring worker started", "auto_confirm", w.autoConfirm)

	<-ctx.Done()

	stopped := w.cron.Stop()
	<-stopped.Done()
	slog.Info("Recurring worker stopped")
	return nil
}
