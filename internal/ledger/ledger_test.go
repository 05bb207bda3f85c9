package ledger

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ids"
)

var now = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func loanInput(name, principal string) LoanInput {
	return LoanInput{
		Name:      name,
		Type:      core.LoanKindLoan,
		Principal: core.MustMoney(principal),
		StartDate: core.MustDate("2024-01-01"),
	}
}

func mustCreate(t *testing.T, s State, in LoanInput, gen ids.Generator) (State, core.Loan) {
	t.Helper()
	s, loan, err := CreateLoan(s, in, gen, now)
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	return s, loan
}

func pay(t *testing.T, s State, loanID, amount, date string, gen ids.Generator) State {
	t.Helper()
	s, _, err := ApplyPayment(s, PaymentInput{LoanID: loanID, Amount: core.MustMoney(amount), Date: core.MustDate(date)}, gen, now)
	if err != nil {
		t.Fatalf("ApplyPayment(%s): %v", amount, err)
	}
	return s
}

func TestCreateLoan(t *testing.T) {
	gen := ids.NewSequence("loan")
	s, loan := mustCreate(t, State{}, loanInput("  Car  ", "10000"), gen)

	if loan.ID != "loan-1" || loan.Name != "Car" {
		t.Errorf("unexpected identity %q %q", loan.ID, loan.Name)
	}
	if !loan.RemainingBalance.Equal(loan.Principal) {
		t.Errorf("remaining = %s, want principal", loan.RemainingBalance)
	}
	if loan.Status != core.LoanActive {
		t.Errorf("status = %s, want active", loan.Status)
	}
	if !loan.CreatedAt.Equal(now) || !loan.UpdatedAt.Equal(now) {
		t.Errorf("timestamps not stamped: %v %v", loan.CreatedAt, loan.UpdatedAt)
	}
	if len(s.Loans) != 1 {
		t.Fatalf("expected 1 loan, got %d", len(s.Loans))
	}
}

func TestCreateLoan_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    LoanInput
		field string
	}{
		{"zero principal", loanInput("Car", "0"), "principal"},
		{"negative principal", loanInput("Car", "-5"), "principal"},
		{"missing name", loanInput(" ", "100"), "name"},
		{"bad kind", func() LoanInput { in := loanInput("Car", "100"); in.Type = "mortgage"; return in }(), "type"},
		{"missing start", func() LoanInput { in := loanInput("Car", "100"); in.StartDate = core.Date{}; return in }(), "startDate"},
		{"negative rate", func() LoanInput {
			in := loanInput("Car", "100")
			in.InterestRate = core.MustMoney("-1")
			return in
		}(), "interestRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := State{Loans: []core.Loan{{ID: "existing"}}}
			after, _, err := CreateLoan(before, tt.in, ids.NewSequence("x"), now)
			var verr *core.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("expected validation error on %s, got %v", tt.field, err)
			}
			if !reflect.DeepEqual(after, before) {
				t.Fatalf("state changed on error")
			}
		})
	}
}

func TestApplyPayment_FloorsAtZero(t *testing.T) {
	gen := ids.NewSequence("id")
	s, loan := mustCreate(t, State{}, loanInput("Car", "10000"), gen)

	s = pay(t, s, loan.ID, "3000", "2024-02-01", gen)
	got, _ := s.Loan(loan.ID)
	if !got.RemainingBalance.Equal(core.MustMoney("7000")) {
		t.Fatalf("remaining = %s, want 7000", got.RemainingBalance)
	}

	s = pay(t, s, loan.ID, "8000", "2024-03-01", gen)
	got, _ = s.Loan(loan.ID)
	if !got.RemainingBalance.IsZero() {
		t.Fatalf("remaining = %s, want 0", got.RemainingBalance)
	}
	if got.Status != core.LoanActive {
		t.Fatalf("status changed to %s; paid-off loans stay active until updated", got.Status)
	}
	if len(s.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(s.Payments))
	}
}

func TestApplyPayment_Errors(t *testing.T) {
	gen := ids.NewSequence("id")
	s, loan := mustCreate(t, State{}, loanInput("Car", "100"), gen)

	t.Run("unknown loan", func(t *testing.T) {
		after, _, err := ApplyPayment(s, PaymentInput{LoanID: "nope", Amount: core.MustMoney("1"), Date: core.MustDate("2024-02-01")}, gen, now)
		if !core.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
		if !reflect.DeepEqual(after, s) {
			t.Fatal("state changed on error")
		}
	})

	t.Run("non positive amount", func(t *testing.T) {
		for _, amount := range []string{"0", "-10"} {
			after, _, err := ApplyPayment(s, PaymentInput{LoanID: loan.ID, Amount: core.MustMoney(amount), Date: core.MustDate("2024-02-01")}, gen, now)
			if !core.IsValidation(err) || !errors.Is(err, core.ErrInvalidAmount) {
				t.Fatalf("amount %s: expected invalid amount, got %v", amount, err)
			}
			if !reflect.DeepEqual(after, s) {
				t.Fatal("state changed on error")
			}
		}
	})
}

func TestApplyPayment_DoesNotAliasInput(t *testing.T) {
	gen := ids.NewSequence("id")
	s, loan := mustCreate(t, State{}, loanInput("Car", "100"), gen)
	before := s.Loans[0].RemainingBalance

	_ = pay(t, s, loan.ID, "40", "2024-02-01", gen)
	if !s.Loans[0].RemainingBalance.Equal(before) || len(s.Payments) != 0 {
		t.Fatal("input state was mutated")
	}
}

func TestBalanceMatchesPaymentsInAnyOrder(t *testing.T) {
	sequences := [][]struct{ amount, date string }{
		{{"300", "2024-03-01"}, {"200", "2024-01-01"}, {"100", "2024-02-01"}},
		{{"600", "2024-05-01"}, {"600", "2024-01-01"}},
		{{"999.99", "2024-02-01"}, {"0.01", "2024-01-15"}, {"50", "2024-01-01"}},
	}

	for i, seq := range sequences {
		gen := ids.NewSequence("id")
		s, loan := mustCreate(t, State{}, loanInput("Loan", "1000"), gen)
		for _, p := range seq {
			s = pay(t, s, loan.ID, p.amount, p.date, gen)
			if drifts := Reconcile(s); len(drifts) != 0 {
				t.Fatalf("sequence %d: drift after payment %s: %+v", i, p.amount, drifts)
			}
			got, _ := s.Loan(loan.ID)
			if got.RemainingBalance.IsNegative() || got.RemainingBalance.GreaterThan(got.Principal.Decimal) {
				t.Fatalf("sequence %d: balance %s out of range", i, got.RemainingBalance)
			}
		}
	}
}

func TestUpdateLoan(t *testing.T) {
	gen := ids.NewSequence("id")
	s, loan := mustCreate(t, State{}, loanInput("Car", "1000"), gen)
	later := now.Add(time.Hour)

	loan.Status = core.LoanPaid
	loan.CreatedAt = time.Time{}
	s2, updated, err := UpdateLoan(s, loan, later)
	if err != nil {
		t.Fatalf("UpdateLoan: %v", err)
	}
	if updated.Status != core.LoanPaid || !updated.CreatedAt.Equal(now) || !updated.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected loan %+v", updated)
	}
	if s.Loans[0].Status != core.LoanActive {
		t.Fatal("input state was mutated")
	}

	loan.Name = "  "
	if _, _, err := UpdateLoan(s2, loan, later); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	loan.Name = "Car"

	loan.ID = "missing"
	if _, _, err := UpdateLoan(s2, loan, later); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteLoan_CascadesPayments(t *testing.T) {
	gen := ids.NewSequence("id")
	s, car := mustCreate(t, State{}, loanInput("Car", "1000"), gen)
	s, house := mustCreate(t, s, loanInput("House", "5000"), gen)
	s = pay(t, s, car.ID, "10", "2024-02-01", gen)
	s = pay(t, s, house.ID, "20", "2024-02-01", gen)
	s = pay(t, s, car.ID, "30", "2024-03-01", gen)

	after, err := DeleteLoan(s, car.ID)
	if err != nil {
		t.Fatalf("DeleteLoan: %v", err)
	}
	if len(after.Loans) != 1 || after.Loans[0].ID != house.ID {
		t.Fatalf("unexpected loans %+v", after.Loans)
	}
	if len(after.Payments) != 1 || after.Payments[0].LoanID != house.ID {
		t.Fatalf("payments not cascaded: %+v", after.Payments)
	}
	if len(s.Loans) != 2 || len(s.Payments) != 3 {
		t.Fatal("input state was mutated")
	}

	if _, err := DeleteLoan(after, car.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestListPayments(t *testing.T) {
	gen := ids.NewSequence("id")
	s, a := mustCreate(t, State{}, loanInput("A", "1000"), gen)
	s, b := mustCreate(t, s, loanInput("B", "1000"), gen)
	s = pay(t, s, a.ID, "1", "2024-01-01", gen)
	s = pay(t, s, b.ID, "2", "2024-02-01", gen)
	s = pay(t, s, a.ID, "3", "2024-03-01", gen)

	if got := ListPayments(s, ""); len(got) != 3 || got[0].Date.String() != "2024-03-01" {
		t.Fatalf("unexpected payments %+v", got)
	}
	got := ListPayments(s, a.ID)
	if len(got) != 2 || !got[0].Amount.Equal(core.MustMoney("3")) || !got[1].Amount.Equal(core.MustMoney("1")) {
		t.Fatalf("unexpected payments for A %+v", got)
	}
	if got := ListPayments(s, "none"); len(got) != 0 {
		t.Fatalf("expected none, got %+v", got)
	}
}

func TestListLoans_NewestFirst(t *testing.T) {
	gen := ids.NewSequence("id")
	s, _, _ := CreateLoan(State{}, loanInput("Old", "10"), gen, now)
	s, _, _ = CreateLoan(s, loanInput("New", "10"), gen, now.Add(time.Minute))

	got := ListLoans(s)
	if got[0].Name != "New" || got[1].Name != "Old" {
		t.Fatalf("unexpected order %s, %s", got[0].Name, got[1].Name)
	}
}

func TestSummarize(t *testing.T) {
	d := func(s string) *core.Date { v := core.MustDate(s); return &v }
	loans := []core.Loan{
		{ID: "1", Principal: core.MustMoney("1000"), RemainingBalance: core.MustMoney("400"), Status: core.LoanActive, NextPaymentDate: d("2024-06-10")},
		{ID: "2", Principal: core.MustMoney("500"), RemainingBalance: core.MustMoney("500"), Status: core.LoanActive, NextPaymentDate: d("2024-05-20")},
		{ID: "3", Principal: core.MustMoney("200"), RemainingBalance: core.MustMoney("0"), Status: core.LoanPaid, NextPaymentDate: d("2024-05-01")},
		{ID: "4", Principal: core.MustMoney("300"), RemainingBalance: core.MustMoney("300"), Status: core.LoanActive},
	}

	o := Summarize(loans)
	if o.ActiveCount != 3 || o.TotalCount != 4 {
		t.Errorf("counts = %d/%d", o.ActiveCount, o.TotalCount)
	}
	if !o.Outstanding.Equal(core.MustMoney("1200")) || !o.TotalPrincipal.Equal(core.MustMoney("1800")) {
		t.Errorf("outstanding %s principal %s", o.Outstanding, o.TotalPrincipal)
	}
	if o.NextPayment == nil || o.NextPayment.String() != "2024-05-20" {
		t.Errorf("next payment = %v", o.NextPayment)
	}

	if o := Summarize(loans[3:]); o.NextPayment != nil {
		t.Errorf("expected no scheduled payment, got %s", o.NextPayment)
	}
	if o := Summarize(nil); !o.Outstanding.IsZero() || o.NextPayment != nil {
		t.Errorf("unexpected empty overview %+v", o)
	}
}

func TestUpdateLoan_KeepsBalanceAndPrincipal(t *testing.T) {
	gen := ids.NewSequence("id")
	s, loan := mustCreate(t, State{}, loanInput("Car", "10000"), gen)
	s = pay(t, s, loan.ID, "400", "2024-02-01", gen)

	// A status-only edit arrives with zero money fields.
	s, updated, err := UpdateLoan(s, core.Loan{
		ID:        loan.ID,
		Name:      "Car",
		Type:      loan.Type,
		StartDate: loan.StartDate,
		Status:    core.LoanPaid,
	}, now)
	if err != nil {
		t.Fatalf("UpdateLoan: %v", err)
	}
	if !updated.Principal.Equal(core.MustMoney("10000")) {
		t.Errorf("principal = %s, want 10000", updated.Principal)
	}
	want := ExpectedBalance(updated, s.Payments)
	if !updated.RemainingBalance.Equal(want) || !want.Equal(core.MustMoney("9600")) {
		t.Errorf("remaining = %s, expected balance %s, want 9600", updated.RemainingBalance, want)
	}
	if drifts := Reconcile(s); len(drifts) != 0 {
		t.Fatalf("update introduced drift: %+v", drifts)
	}
}

func TestReconcile_DetectsManualEdits(t *testing.T) {
	gen := ids.NewSequence("id")
	s, loan := mustCreate(t, State{}, loanInput("Car", "1000"), gen)
	s = pay(t, s, loan.ID, "100", "2024-02-01", gen)

	// Stored rows edited outside the ledger, e.g. by hand in the database.
	s.Loans[0].RemainingBalance = core.MustMoney("950")

	drifts := Reconcile(s)
	if len(drifts) != 1 || !drifts[0].Expected.Equal(core.MustMoney("900")) || !drifts[0].Stored.Equal(core.MustMoney("950")) {
		t.Fatalf("unexpected drifts %+v", drifts)
	}
}
