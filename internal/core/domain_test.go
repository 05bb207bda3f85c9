package core

import (
	"errors"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:          "t1",
		CategoryID:  "1",
		Amount:      MustMoney("12.50"),
		Description: "Lunch",
		Date:        NewDate(2025, 1, 1),
		Type:        Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	recurring := good
	recurring.IsRecurring = true
	recurring.RecurringPattern = Monthly
	if err := recurring.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []func(tx *Transaction){
		func(tx *Transaction) { tx.CategoryID = "" },
		func(tx *Transaction) { tx.Amount = Zero },
		func(tx *Transaction) { tx.Description = "  " },
		func(tx *Transaction) { tx.Date = Date{Time: time.Time{}} },
		func(tx *Transaction) { tx.Type = "transfer" },
		func(tx *Transaction) { tx.IsRecurring = true },
		func(tx *Transaction) { tx.RecurringPattern = Weekly },
	}
	for i, mutate := range bads {
		tx := good
		mutate(&tx)
		err := tx.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !IsValidation(err) {
			t.Fatalf("case %d expected ValidationError, got %T", i, err)
		}
	}
}

func TestValidationErrorUnwrapsSentinel(t *testing.T) {
	tx := Transaction{CategoryID: "1", Amount: Zero, Description: "x", Date: NewDate(2025, 1, 1), Type: Expense}
	err := tx.Validate()
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount in chain, got %v", err)
	}
}

func TestSavingsGoalValidate(t *testing.T) {
	g := SavingsGoal{
		Name:          "Trip",
		TargetAmount:  MustMoney("1000"),
		CurrentAmount: MustMoney("1000"),
		Deadline:      NewDate(2030, 1, 1),
		Priority:      PriorityHigh,
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	g.CurrentAmount = MustMoney("1000.01")
	if err := g.Validate(); err == nil {
		t.Fatalf("expected error when current exceeds target")
	}
}

func TestLoanValidate(t *testing.T) {
	l := Loan{
		Name:             "Car",
		Type:             LoanKindLoan,
		Principal:        MustMoney("10000"),
		RemainingBalance: MustMoney("10000"),
		StartDate:        NewDate(2024, 1, 1),
		Status:           LoanActive,
	}
	if err := l.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	l.RemainingBalance = MustMoney("10001")
	if err := l.Validate(); err == nil {
		t.Fatalf("expected error when balance exceeds principal")
	}
}

func TestCategoryName(t *testing.T) {
	cats := DefaultCategories()
	if got := CategoryName(cats, "7"); got != "Salary" {
		t.Fatalf("CategoryName = %q", got)
	}
	if got := CategoryName(cats, "missing"); got != DeletedCategoryName {
		t.Fatalf("CategoryName = %q", got)
	}
}

func TestTransactionSigned(t *testing.T) {
	in := Transaction{Type: Income, Amount: MustMoney("5")}
	out := Transaction{Type: Expense, Amount: MustMoney("5")}
	if !in.Signed().Equal(MustMoney("5")) || !out.Signed().Equal(MustMoney("-5")) {
		t.Fatalf("unexpected signed amounts %s %s", in.Signed(), out.Signed())
	}
}
