package memory

import (
	"context"
	"testing"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

func TestExporter(t *testing.T) {
	ctx := context.Background()
	e := New()

	rows := []ports.Row{
		{ID: "b", Date: core.MustDate("2024-04-10"), Description: "rent", Amount: core.MustMoney("900"), Type: core.Expense},
		{ID: "a", Date: core.MustDate("2024-04-02"), Description: "salary", Amount: core.MustMoney("3000"), Type: core.Income},
		{ID: "c", Date: core.MustDate("2024-05-01"), Description: "rent", Amount: core.MustMoney("900"), Type: core.Expense},
	}
	for _, r := range rows {
		if _, err := e.ExportTransaction(ctx, r); err != nil {
			t.Fatalf("ExportTransaction: %v", err)
		}
	}
	if _, err := e.ExportTransaction(ctx, ports.Row{}); err == nil {
		t.Fatal("expected error for row without id")
	}

	april, err := e.ListMonth(ctx, "2024-04")
	if err != nil {
		t.Fatal(err)
	}
	if len(april) != 2 || april[0].ID != "a" || april[1].ID != "b" {
		t.Fatalf("unexpected april rows %+v", april)
	}

	if err := e.RemoveTransaction(ctx, "b", core.MustDate("2024-04-10")); err != nil {
		t.Fatal(err)
	}
	if err := e.RemoveTransaction(ctx, "missing", core.Date{}); err != nil {
		t.Fatalf("removing unknown id: %v", err)
	}
	if e.Len() != 2 {
		t.Fatalf("Len = %d, want 2", e.Len())
	}
}
