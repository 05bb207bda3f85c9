package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/store"
)

// LoanService persists the loan ledger. Each mutation loads the ledger
// state, applies a ledger transition and writes both collections back in a
// single store update.
type LoanService struct {
	repo *store.Repository
	deps
}

func NewLoanService(repo *store.Repository, opts ...Option) *LoanService {
	return &LoanService{repo: repo, deps: newDeps(opts)}
}

func (s *LoanService) load(ctx context.Context) (ledger.State, error) {
	return loadLedger(ctx, s.repo)
}

func loadLedger(ctx context.Context, repo *store.Repository) (ledger.State, error) {
	loans, err := repo.Loans(ctx)
	if err != nil {
		return ledger.State{}, fmt.Errorf("load loans: %w", err)
	}
	payments, err := repo.LoanPayments(ctx)
	if err != nil {
		return ledger.State{}, fmt.Errorf("load loan payments: %w", err)
	}
	return ledger.State{Loans: loans, Payments: payments}, nil
}

// mutate runs fn on the current state and stores both collections of its
// result in one update.
func (s *LoanService) mutate(ctx context.Context, fn func(ledger.State) (ledger.State, error)) error {
	return s.repo.Update(ctx, func(tx *store.Repository) error {
		st, err := loadLedger(ctx, tx)
		if err != nil {
			return err
		}
		next, err := fn(st)
		if err != nil {
			return err
		}
		if err := tx.SetLoans(ctx, next.Loans); err != nil {
			return fmt.Errorf("save loans: %w", err)
		}
		if err := tx.SetLoanPayments(ctx, next.Payments); err != nil {
			return fmt.Errorf("save loan payments: %w", err)
		}
		return nil
	}, store.Loans, store.LoanPayments)
}

func (s *LoanService) CreateLoan(ctx context.Context, in ledger.LoanInput) (core.Loan, error) {
	var loan core.Loan
	err := s.mutate(ctx, func(st ledger.State) (ledger.State, error) {
		next, l, err := ledger.CreateLoan(st, in, s.ids, s.now())
		loan = l
		return next, err
	})
	if err != nil {
		return core.Loan{}, err
	}
	slog.InfoContext(ctx, "Loan created", "id", loan.ID, "principal", loan.Principal.String())
	return loan, nil
}

func (s *LoanService) UpdateLoan(ctx context.Context, l core.Loan) (core.Loan, error) {
	var loan core.Loan
	err := s.mutate(ctx, func(st ledger.State) (ledger.State, error) {
		next, updated, err := ledger.UpdateLoan(st, l, s.now())
		loan = updated
		return next, err
	})
	if err != nil {
		return core.Loan{}, err
	}
	slog.InfoContext(ctx, "Loan updated", "id", loan.ID, "status", loan.Status)
	return loan, nil
}

// ApplyPayment appends a payment and reduces the loan's remaining balance.
func (s *LoanService) ApplyPayment(ctx context.Context, in ledger.PaymentInput) (core.LoanPayment, error) {
	var payment core.LoanPayment
	err := s.mutate(ctx, func(st ledger.State) (ledger.State, error) {
		next, p, err := ledger.ApplyPayment(st, in, s.ids, s.now())
		payment = p
		return next, err
	})
	if err != nil {
		return core.LoanPayment{}, err
	}

	s.metrics.IncrLoanPayment()
	slog.InfoContext(ctx, "Loan payment applied",
		"id", payment.ID, "loan", payment.LoanID, "amount", payment.Amount.String())
	s.publish(ctx, EventLoanPaymentApplied, payment.ID, payment)
	return payment, nil
}

// DeleteLoan removes the loan together with its payments.
func (s *LoanService) DeleteLoan(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(st ledger.State) (ledger.State, error) {
		return ledger.DeleteLoan(st, id)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Loan deleted", "id", id)
	return nil
}

func (s *LoanService) GetLoan(ctx context.Context, id string) (core.Loan, error) {
	st, err := s.load(ctx)
	if err != nil {
		return core.Loan{}, err
	}
	return st.Loan(id)
}

func (s *LoanService) ListLoans(ctx context.Context) ([]core.Loan, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.ListLoans(st), nil
}

// ListPayments lists the payments of loanID, or of every loan when loanID is
// empty. An unknown loan is reported as not found.
func (s *LoanService) ListPayments(ctx context.Context, loanID string) ([]core.LoanPayment, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if loanID != "" {
		if _, err := st.Loan(loanID); err != nil {
			return nil, err
		}
	}
	return ledger.ListPayments(st, loanID), nil
}

func (s *LoanService) Overview(ctx context.Context) (ledger.Overview, error) {
	loans, err := s.repo.Loans(ctx)
	if err != nil {
		return ledger.Overview{}, fmt.Errorf("load loans: %w", err)
	}
	return ledger.Summarize(loans), nil
}

// Reconcile reports loans whose stored balance drifted from their payments.
func (s *LoanService) Reconcile(ctx context.Context) ([]ledger.Drift, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	drifts := ledger.Reconcile(st)
	for _, d := range drifts {
		slog.WarnContext(ctx, "Loan balance drift",
			"loan", d.LoanID, "stored", d.Stored.String(), "expected", d.Expected.String())
	}
	return drifts, nil
}
