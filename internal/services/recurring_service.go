package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/recurring"
	"fintrack/internal/store"
)

// RecurringService projects recurring templates onto today and materializes
// confirmed occurrences through the finance service.
type RecurringService struct {
	finance *FinanceService
}

func NewRecurringService(finance *FinanceService) *RecurringService {
	return &RecurringService{finance: finance}
}

// Due returns every occurrence that has come due and is not yet recorded.
func (s *RecurringService) Due(ctx context.Context) ([]recurring.Candidate, error) {
	txs, err := s.finance.repo.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	due := recurring.Project(txs, s.finance.today())
	s.finance.metrics.SetRecurringDue(len(due))
	return due, nil
}

// Confirm records the due occurrence with the given candidate id. The
// projection is recomputed inside the same update that records it, so an
// occurrence is never recorded twice.
func (s *RecurringService) Confirm(ctx context.Context, candidateID string) (core.Transaction, error) {
	f := s.finance
	var (
		c        recurring.Candidate
		recorded []core.Transaction
	)
	err := f.repo.Update(ctx, func(tx *store.Repository) error {
		txs, err := tx.Transactions(ctx)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		var ok bool
		if c, ok = recurring.FindCandidate(txs, f.today(), candidateID); !ok {
			return core.NotFound("recurring occurrence", candidateID)
		}
		recorded, err = f.appendTransactions(ctx, tx, []core.Transaction{c.Transaction})
		return err
	}, store.Transactions, store.AccountBalance)
	if err != nil {
		return core.Transaction{}, err
	}
	f.recorded(ctx, recorded)

	t := recorded[0]
	slog.InfoContext(ctx, "Recurring occurrence confirmed",
		"candidate", candidateID, "template", c.TemplateID, "transaction", t.ID)
	return t, nil
}

// ConfirmAll records every due occurrence in one update and returns what was
// recorded.
func (s *RecurringService) ConfirmAll(ctx context.Context) ([]core.Transaction, error) {
	f := s.finance
	var recorded []core.Transaction
	err := f.repo.Update(ctx, func(tx *store.Repository) error {
		txs, err := tx.Transactions(ctx)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		due := recurring.Project(txs, f.today())
		if len(due) == 0 {
			recorded = nil
			return nil
		}
		add := make([]core.Transaction, len(due))
		for i, c := range due {
			add[i] = c.Transaction
		}
		recorded, err = f.appendTransactions(ctx, tx, add)
		return err
	}, store.Transactions, store.AccountBalance)
	if err != nil {
		return nil, err
	}
	f.recorded(ctx, recorded)
	f.metrics.SetRecurringDue(0)
	return recorded, nil
}

// Announce publishes a recurring.due event per due occurrence. It returns
// how many were announced.
func (s *RecurringService) Announce(ctx context.Context) (int, error) {
	due, err := s.Due(ctx)
	if err != nil {
		return 0, err
	}
	for _, c := range due {
		s.finance.publish(ctx, EventRecurringDue, c.ID, c)
	}
	if len(due) > 0 {
		slog.InfoContext(ctx, "Recurring occurrences due", "count", len(due))
	}
	return len(due), nil
}

// Upcoming lists the next due date of every template, soonest first.
func (s *RecurringService) Upcoming(ctx context.Context) ([]recurring.Upcoming, error) {
	txs, err := s.finance.repo.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return recurring.UpcomingAfter(txs, s.finance.today()), nil
}

func (s *RecurringService) Stats(ctx context.Context) (recurring.Stats, error) {
	txs, err := s.finance.repo.Transactions(ctx)
	if err != nil {
		return recurring.Stats{}, fmt.Errorf("load transactions: %w", err)
	}
	return recurring.ComputeStats(txs), nil
}
