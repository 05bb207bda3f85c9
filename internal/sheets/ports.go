// Package sheets defines the spreadsheet export ports. Transactions are
// mirrored to one sheet per year; the application store stays authoritative.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Row is a transaction as laid out in the export sheet.
type Row struct {
	ID          string
	Date        core.Date
	Description string
	Category    string
	Type        core.TransactionType
	Amount      core.Money
}

// RowOf lays out t with its resolved category name.
func RowOf(t core.Transaction, category string) Row {
	return Row{
		ID:          t.ID,
		Date:        t.Date,
		Description: t.Description,
		Category:    category,
		Type:        t.Type,
		Amount:      t.Amount,
	}
}

// Ports for outbound adapters.
type (
	TransactionExporter interface {
		// ExportTransaction appends the row and returns a reference to it.
		ExportTransaction(ctx context.Context, row Row) (rowRef string, err error)
		// RemoveTransaction clears the row of transaction id. Removing an
		// unknown id is not an error.
		RemoveTransaction(ctx context.Context, id string, date core.Date) error
	}

	MonthLister interface {
		ListMonth(ctx context.Context, month core.Month) ([]Row, error)
	}
)
