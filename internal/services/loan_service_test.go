package services

import (
	"context"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ids"
	"fintrack/internal/ledger"
	"fintrack/internal/metrics"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

func newLoanService(t *testing.T) (*LoanService, *fakePublisher, *metrics.Metrics) {
	t.Helper()
	pub := &fakePublisher{}
	m := metrics.New()
	svc := NewLoanService(store.NewRepository(memory.New()),
		WithIDs(ids.NewSequence("loan")),
		WithClock(fixedClock("2024-04-20")),
		WithPublisher(pub),
		WithMetrics(m),
	)
	return svc, pub, m
}

func TestLoanService_PaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, pub, m := newLoanService(t)

	loan, err := svc.CreateLoan(ctx, ledger.LoanInput{
		Name:      "Car",
		Type:      core.LoanKindLoan,
		Principal: core.MustMoney("10000"),
		StartDate: core.MustDate("2024-01-01"),
	})
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if loan.Status != core.LoanActive || !loan.RemainingBalance.Equal(loan.Principal) {
		t.Fatalf("unexpected new loan %+v", loan)
	}

	steps := []struct {
		amount string
		want   string
	}{
		{"3000", "7000"},
		{"8000", "0"},
	}
	for _, s := range steps {
		if _, err := svc.ApplyPayment(ctx, ledger.PaymentInput{
			LoanID: loan.ID,
			Amount: core.MustMoney(s.amount),
			Date:   core.MustDate("2024-02-01"),
		}); err != nil {
			t.Fatalf("ApplyPayment(%s): %v", s.amount, err)
		}
		got, err := svc.GetLoan(ctx, loan.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !got.RemainingBalance.Equal(core.MustMoney(s.want)) {
			t.Fatalf("after %s remaining = %s, want %s", s.amount, got.RemainingBalance, s.want)
		}
		if got.Status != core.LoanActive {
			t.Fatalf("status changed to %s", got.Status)
		}
	}

	payments, err := svc.ListPayments(ctx, loan.ID)
	if err != nil || len(payments) != 2 {
		t.Fatalf("ListPayments = %v, %v", payments, err)
	}
	if len(pub.events) != 2 || pub.events[0].Type != EventLoanPaymentApplied {
		t.Fatalf("events = %v", pub.events)
	}
	if got := m.CounterValue("loan_payments"); got != 2 {
		t.Fatalf("loan payment counter = %v", got)
	}

	drifts, err := svc.Reconcile(ctx)
	if err != nil || len(drifts) != 0 {
		t.Fatalf("Reconcile = %v, %v", drifts, err)
	}
}

func TestLoanService_Errors(t *testing.T) {
	ctx := context.Background()
	svc, pub, _ := newLoanService(t)

	if _, err := svc.CreateLoan(ctx, ledger.LoanInput{Name: "Bad", Type: core.LoanKindDebt, StartDate: core.MustDate("2024-01-01")}); !core.IsValidation(err) {
		t.Fatalf("expected validation error for zero principal, got %v", err)
	}
	if _, err := svc.ApplyPayment(ctx, ledger.PaymentInput{LoanID: "ghost", Amount: core.MustMoney("1"), Date: core.MustDate("2024-02-01")}); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.ListPayments(ctx, "ghost"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.DeleteLoan(ctx, "ghost"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("failed operations published %v", pub.events)
	}
	loans, _ := svc.ListLoans(ctx)
	if len(loans) != 0 {
		t.Fatalf("failed create stored a loan: %+v", loans)
	}
}

func TestLoanService_UpdateDeleteOverview(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLoanService(t)

	next := core.MustDate("2024-05-20")
	car, err := svc.CreateLoan(ctx, ledger.LoanInput{
		Name: "Car", Type: core.LoanKindLoan, Principal: core.MustMoney("1000"),
		StartDate: core.MustDate("2024-01-01"), NextPaymentDate: &next,
	})
	if err != nil {
		t.Fatal(err)
	}
	friend, err := svc.CreateLoan(ctx, ledger.LoanInput{
		Name: "Friend", Type: core.LoanKindDebt, Principal: core.MustMoney("200"),
		StartDate: core.MustDate("2024-02-01"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ApplyPayment(ctx, ledger.PaymentInput{LoanID: friend.ID, Amount: core.MustMoney("50"), Date: core.MustDate("2024-03-01")}); err != nil {
		t.Fatal(err)
	}

	ov, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.ActiveCount != 2 || !ov.Outstanding.Equal(core.MustMoney("1150")) || ov.NextPayment == nil || !ov.NextPayment.Equal(next) {
		t.Fatalf("unexpected overview %+v", ov)
	}

	car.Status = core.LoanPaid
	if _, err := svc.UpdateLoan(ctx, car); err != nil {
		t.Fatalf("UpdateLoan: %v", err)
	}
	ov, _ = svc.Overview(ctx)
	if ov.ActiveCount != 1 || ov.NextPayment != nil {
		t.Fatalf("paid loan still counted: %+v", ov)
	}

	if err := svc.DeleteLoan(ctx, friend.ID); err != nil {
		t.Fatalf("DeleteLoan: %v", err)
	}
	all, _ := svc.ListPayments(ctx, "")
	if len(all) != 0 {
		t.Fatalf("payments not cascaded: %+v", all)
	}
}
