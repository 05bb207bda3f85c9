package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ids"
	"fintrack/internal/recurring"
	"fintrack/internal/storage"
	"fintrack/internal/store"
)

func seedRent(t *testing.T, f fixture) core.Transaction {
	t.Helper()
	rent := expense("4", "900", "rent", "2024-01-15")
	rent.IsRecurring = true
	rent.RecurringPattern = core.Monthly
	stored, err := f.finance.AddTransaction(context.Background(), rent)
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	return stored
}

func TestRecurringService_DueAndConfirm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-20")
	svc := NewRecurringService(f.finance)
	rent := seedRent(t, f)

	due, err := svc.Due(ctx)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 3 {
		t.Fatalf("due = %d, want 3", len(due))
	}
	febID := recurring.CandidateID(rent.ID, core.MustDate("2024-02-15"))
	if due[0].ID != febID {
		t.Fatalf("first candidate = %q, want %q", due[0].ID, febID)
	}

	tx, err := svc.Confirm(ctx, febID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if tx.IsRecurring || tx.Date.String() != "2024-02-15" {
		t.Fatalf("unexpected materialized transaction %+v", tx)
	}

	due, _ = svc.Due(ctx)
	if len(due) != 2 || due[0].Date.String() != "2024-03-15" {
		t.Fatalf("confirmed occurrence still due: %+v", due)
	}

	if _, err := svc.Confirm(ctx, febID); !core.IsNotFound(err) {
		t.Fatalf("second confirm should be not found, got %v", err)
	}

	balance, _ := f.finance.AccountBalance(ctx)
	if !balance.Equal(core.MustMoney("-1800")) {
		t.Fatalf("balance = %s, want -1800", balance)
	}
}

func TestRecurringService_ConfirmAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-20")
	svc := NewRecurringService(f.finance)
	seedRent(t, f)

	recorded, err := svc.ConfirmAll(ctx)
	if err != nil {
		t.Fatalf("ConfirmAll: %v", err)
	}
	if len(recorded) != 3 {
		t.Fatalf("recorded %d, want 3", len(recorded))
	}
	again, err := svc.ConfirmAll(ctx)
	if err != nil || len(again) != 0 {
		t.Fatalf("ConfirmAll is not idempotent: %d, %v", len(again), err)
	}
}

func TestRecurringService_Announce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-20")
	svc := NewRecurringService(f.finance)
	seedRent(t, f)
	f.pub.events = nil

	n, err := svc.Announce(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Announce = %d, %v", n, err)
	}
	if len(f.pub.events) != 3 {
		t.Fatalf("events = %v", f.pub.events)
	}
	for _, e := range f.pub.events {
		if e.Type != EventRecurringDue {
			t.Errorf("unexpected event %v", e)
		}
	}
}

func TestRecurringService_UpcomingAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-04-20")
	svc := NewRecurringService(f.finance)
	rent := seedRent(t, f)

	up, err := svc.Upcoming(ctx)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(up) != 1 || up[0].TemplateID != rent.ID || up[0].NextDue.String() != "2024-05-15" {
		t.Fatalf("unexpected upcoming %+v", up)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Count != 1 || !stats.MonthlyExpenseEquivalent.Equal(core.MustMoney("900")) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

// The API and the recurring worker run as separate processes over one
// SQLite file; each gets its own handle here.
func TestRecurringService_ConfirmAllBesideAnotherWriter(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fintrack.db")
	openService := func(prefix string) *FinanceService {
		kv, err := storage.NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("NewSQLiteRepository: %v", err)
		}
		t.Cleanup(func() { kv.Close() })
		return NewFinanceService(store.NewRepository(kv), nil,
			WithIDs(ids.NewSequence(prefix)),
			WithClock(fixedClock("2024-04-20")),
		)
	}
	api := openService("api")
	worker := NewRecurringService(openService("worker"))

	rent := expense("4", "900", "rent", "2024-01-15")
	rent.IsRecurring = true
	rent.RecurringPattern = core.Monthly
	if _, err := api.AddTransaction(ctx, rent); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	const adds = 10
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < adds; i++ {
			if _, err := api.AddTransaction(ctx, expense("1", "1", fmt.Sprintf("coffee %d", i), "2024-04-19")); err != nil {
				t.Errorf("AddTransaction: %v", err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := worker.ConfirmAll(ctx); err != nil {
			t.Errorf("ConfirmAll: %v", err)
		}
	}()
	wg.Wait()

	txs, err := api.ListTransactions(ctx, TransactionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1+3+adds {
		t.Fatalf("transactions = %d, want %d", len(txs), 1+3+adds)
	}
	balance, _ := api.AccountBalance(ctx)
	if !balance.Equal(core.MustMoney("-3610")) {
		t.Fatalf("balance = %s, want -3610", balance)
	}

	again, err := worker.ConfirmAll(ctx)
	if err != nil || len(again) != 0 {
		t.Fatalf("second ConfirmAll recorded %d, %v", len(again), err)
	}
}
