// Package finance derives summary figures from transaction, budget and
// category collections. Every function is pure: no I/O, no retained state.
package finance

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// NoCategory is the sentinel name TopCategory returns when the month has no
// expenses.
const NoCategory = "none"

// CategoryTotal is an amount aggregated by category.
type CategoryTotal struct {
	CategoryID string     `json:"categoryId"`
	Name       string     `json:"name"`
	Amount     core.Money `json:"amount"`
}

// MonthPoint is one entry of a monthly income/expense series.
type MonthPoint struct {
	Month    core.Month `json:"month"`
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
}

// MonthSummary is the headline figures for one month.
type MonthSummary struct {
	Month         core.Month `json:"month"`
	Income        core.Money `json:"income"`
	Expenses      core.Money `json:"expenses"`
	Balance       core.Money `json:"balance"`
	CategoryCount int        `json:"categoryCount"`
}

// inMonth matches on the ISO string prefix; zero padded dates make this exact.
func inMonth(t core.Transaction, month core.Month) bool {
	return strings.HasPrefix(t.Date.String(), string(month))
}

// MonthlyTotal sums the amounts of transactions of type typ dated in month.
func MonthlyTotal(txs []core.Transaction, month core.Month, typ core.TransactionType) core.Money {
	total := core.Zero
	for _, t := range txs {
		if t.Type == typ && inMonth(t, month) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// SpendingByCategory maps category id to the month's summed expenses.
// Categories without spending are absent.
func SpendingByCategory(txs []core.Transaction, month core.Month) map[string]core.Money {
	spending := make(map[string]core.Money)
	for _, t := range txs {
		if t.Type != core.Expense || !inMonth(t, month) {
			continue
		}
		spending[t.CategoryID] = spending[t.CategoryID].Add(t.Amount)
	}
	return spending
}

// AveragePerEntry returns total/count, or 0 when count is 0.
func AveragePerEntry(total core.Money, count int) core.Money {
	if count == 0 {
		return core.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count)))
}

// categoryTotals sums expenses per category keeping first-seen order.
func categoryTotals(txs []core.Transaction, month core.Month) []CategoryTotal {
	index := make(map[string]int)
	var totals []CategoryTotal
	for _, t := range txs {
		if t.Type != core.Expense || !inMonth(t, month) {
			continue
		}
		i, ok := index[t.CategoryID]
		if !ok {
			i = len(totals)
			index[t.CategoryID] = i
			totals = append(totals, CategoryTotal{CategoryID: t.CategoryID})
		}
		totals[i].Amount = totals[i].Amount.Add(t.Amount)
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Amount.GreaterThan(totals[j].Amount.Decimal)
	})
	return totals
}

// CategoryBreakdown returns the month's expenses per category, largest first,
// with names resolved against categories.
func CategoryBreakdown(txs []core.Transaction, categories []core.Category, month core.Month) []CategoryTotal {
	totals := categoryTotals(txs, month)
	for i := range totals {
		totals[i].Name = core.CategoryName(categories, totals[i].CategoryID)
	}
	return totals
}

// TopCategory returns the category with the highest expenses in month. Ties
// go to the category seen first. With no expenses the result is named
// NoCategory; a winner that was deleted is named core.DeletedCategoryName.
func TopCategory(txs []core.Transaction, categories []core.Category, month core.Month) CategoryTotal {
	totals := CategoryBreakdown(txs, categories, month)
	if len(totals) == 0 {
		return CategoryTotal{Name: NoCategory, Amount: core.Zero}
	}
	return totals[0]
}

// MonthlySeries aggregates income and expenses per month across all
// transactions, ascending by month, keeping only the last monthsBack entries.
// monthsBack <= 0 keeps every month.
func MonthlySeries(txs []core.Transaction, monthsBack int) []MonthPoint {
	byMonth := make(map[core.Month]*MonthPoint)
	for _, t := range txs {
		m := t.Date.Month()
		p, ok := byMonth[m]
		if !ok {
			p = &MonthPoint{Month: m}
			byMonth[m] = p
		}
		switch t.Type {
		case core.Expense:
			p.Expenses = p.Expenses.Add(t.Amount)
		case core.Income:
			p.Income = p.Income.Add(t.Amount)
		}
	}

	series := make([]MonthPoint, 0, len(byMonth))
	for _, p := range byMonth {
		series = append(series, *p)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })

	if monthsBack > 0 && len(series) > monthsBack {
		series = series[len(series)-monthsBack:]
	}
	return series
}

// AverageMonthlyExpenses is the mean of per-month expenses over every month
// that has at least one transaction.
func AverageMonthlyExpenses(txs []core.Transaction) core.Money {
	series := MonthlySeries(txs, 0)
	total := core.Zero
	for _, p := range series {
		total = total.Add(p.Expenses)
	}
	return AveragePerEntry(total, len(series))
}

// Summarize computes the headline figures for month.
func Summarize(txs []core.Transaction, month core.Month) MonthSummary {
	income := MonthlyTotal(txs, month, core.Income)
	expenses := MonthlyTotal(txs, month, core.Expense)

	cats := make(map[string]struct{})
	for _, t := range txs {
		if inMonth(t, month) {
			cats[t.CategoryID] = struct{}{}
		}
	}

	return MonthSummary{
		Month:         month,
		Income:        income,
		Expenses:      expenses,
		Balance:       income.Sub(expenses),
		CategoryCount: len(cats),
	}
}
