// Package report renders a month of the workspace as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
	"fintrack/internal/finance"
)

// Sheet names of the monthly workbook.
const (
	SheetSummary      = "Summary"
	SheetTransactions = "Transactions"
	SheetCategories   = "Categories"
	SheetBudgets      = "Budgets"
)

// ContentType is the media type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// numFmtAmount is the built-in "0.00" format.
const numFmtAmount = 2

type styles struct {
	header int
	amount int
}

// WriteMonthly writes the workbook for month to w.
func WriteMonthly(w io.Writer, snap core.Snapshot, month core.Month) error {
	f, err := Build(snap, month)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Build assembles the workbook in memory. The caller closes the file.
func Build(snap core.Snapshot, month core.Month) (*excelize.File, error) {
	if err := month.Validate(); err != nil {
		return nil, core.Invalid("month", err)
	}

	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetTransactions, SheetCategories, SheetBudgets} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	steps := []func(*excelize.File, styles, core.Snapshot, core.Month) error{
		writeSummary,
		writeTransactions,
		writeCategories,
		writeBudgets,
	}
	for _, step := range steps {
		if err := step(f, st, snap, month); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return styles{}, fmt.Errorf("header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: numFmtAmount})
	if err != nil {
		return styles{}, fmt.Errorf("amount style: %w", err)
	}
	return styles{header: header, amount: amount}, nil
}

// table writes a header row and data rows starting at A1. Columns listed in
// amountCols get the amount number format.
func table(f *excelize.File, st styles, sheet string, header []any, rows [][]any, amountCols ...int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, st.header); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	if len(rows) > 0 {
		for _, col := range amountCols {
			from, _ := excelize.CoordinatesToCellName(col, 2)
			to, _ := excelize.CoordinatesToCellName(col, len(rows)+1)
			if err := f.SetCellStyle(sheet, from, to, st.amount); err != nil {
				return fmt.Errorf("%s amount style: %w", sheet, err)
			}
		}
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	return f.SetColWidth(sheet, "A", last, 18)
}

func amount(m core.Money) float64 {
	return m.InexactFloat64()
}

func writeSummary(f *excelize.File, st styles, snap core.Snapshot, month core.Month) error {
	s := finance.Summarize(snap.Transactions, month)
	top := finance.TopCategory(snap.Transactions, snap.Categories, month)

	rows := [][]any{
		{"Month", string(month)},
		{"Income", amount(s.Income)},
		{"Expenses", amount(s.Expenses)},
		{"Balance", amount(s.Balance)},
		{"Categories with spending", s.CategoryCount},
		{"Top category", top.Name},
		{"Account balance", amount(snap.AccountBalance)},
	}
	if err := table(f, st, SheetSummary, []any{"Metric", "Value"}, rows); err != nil {
		return err
	}
	for _, r := range []int{3, 4, 5, 8} {
		cell, _ := excelize.CoordinatesToCellName(2, r)
		if err := f.SetCellStyle(SheetSummary, cell, cell, st.amount); err != nil {
			return err
		}
	}
	return nil
}

func writeTransactions(f *excelize.File, st styles, snap core.Snapshot, month core.Month) error {
	var txs []core.Transaction
	for _, t := range snap.Transactions {
		if t.Date.Month() == month {
			txs = append(txs, t)
		}
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })

	rows := make([][]any, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, []any{
			t.Date.String(),
			t.Description,
			core.CategoryName(snap.Categories, t.CategoryID),
			string(t.Type),
			amount(t.Signed()),
			string(t.RecurringPattern),
		})
	}
	return table(f, st, SheetTransactions,
		[]any{"Date", "Description", "Category", "Type", "Amount", "Recurring"}, rows, 5)
}

func writeCategories(f *excelize.File, st styles, snap core.Snapshot, month core.Month) error {
	breakdown := finance.CategoryBreakdown(snap.Transactions, snap.Categories, month)
	rows := make([][]any, 0, len(breakdown))
	for _, c := range breakdown {
		rows = append(rows, []any{c.Name, amount(c.Amount)})
	}
	return table(f, st, SheetCategories, []any{"Category", "Spent"}, rows, 2)
}

func writeBudgets(f *excelize.File, st styles, snap core.Snapshot, month core.Month) error {
	lines := finance.BudgetReport(snap.Budgets, snap.Transactions, snap.Categories, month)
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{
			l.CategoryName,
			amount(l.Budget.Limit),
			amount(l.Spent),
			amount(l.Remaining),
			l.Status.Percentage,
			string(l.Status.Level),
		})
	}
	return table(f, st, SheetBudgets,
		[]any{"Category", "Limit", "Spent", "Remaining", "Used %", "Status"}, rows, 2, 3, 4)
}
