// Package recurring projects due occurrences of recurring transaction
// templates.
//
// Each pattern (daily, weekly, monthly, yearly) has its own Advancer that
// knows how to step a template date forward and how to normalize an amount
// to a monthly figure. Advancers are looked up through a registry so new
// patterns can be added without touching the projection code.
package recurring

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Advancer is the strategy interface for one recurring pattern.
type Advancer interface {
	// Next returns the occurrence one period after from. Projections step
	// from the previous occurrence, so a monthly template on the 31st stays
	// on the 29th once February has clamped it.
	Next(from core.Date) core.Date

	// PerMonth converts one period's amount into its monthly equivalent.
	PerMonth(amount core.Money) core.Money
}

// DailyAdvancer steps one day at a time.
type DailyAdvancer struct{}

func (DailyAdvancer) Next(from core.Date) core.Date { return from.AddDays(1) }

func (DailyAdvancer) PerMonth(amount core.Money) core.Money {
	return amount.Mul(decimal.NewFromInt(30))
}

// WeeklyAdvancer steps seven days at a time.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(from core.Date) core.Date { return from.AddDays(7) }

func (WeeklyAdvancer) PerMonth(amount core.Money) core.Money {
	return amount.Mul(decimal.RequireFromString("4.33"))
}

// MonthlyAdvancer steps one calendar month, keeping the day of month and
// clamping it to the length of the target month.
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(from core.Date) core.Date { return from.AddMonthsClamped(1) }

func (MonthlyAdvancer) PerMonth(amount core.Money) core.Money { return amount }

// YearlyAdvancer steps one calendar year. Feb 29 falls back to Feb 28 in
// non-leap years.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(from core.Date) core.Date { return from.AddMonthsClamped(12) }

func (YearlyAdvancer) PerMonth(amount core.Money) core.Money {
	return amount.Div(decimal.NewFromInt(12))
}

var advancers = map[core.RecurringPattern]Advancer{
	core.Daily:   DailyAdvancer{},
	core.Weekly:  WeeklyAdvancer{},
	core.Monthly: MonthlyAdvancer{},
	core.Yearly:  YearlyAdvancer{},
}

// GetAdvancer returns the advancer registered for pattern.
func GetAdvancer(pattern core.RecurringPattern) (Advancer, error) {
	a, ok := advancers[pattern]
	if !ok {
		return nil, fmt.Errorf("unknown recurring pattern: %q", pattern)
	}
	return a, nil
}

// RegisterAdvancer adds or replaces the advancer for pattern. It is not safe
// to call concurrently with projections; register at init time.
func RegisterAdvancer(pattern core.RecurringPattern, a Advancer) {
	advancers[pattern] = a
}
