package finance

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	LevelGood    Level = "good"
	LevelWarning Level = "warning"
	LevelOver    Level = "over"
)

// warningThreshold is the percentage above which a budget is flagged.
var warningThreshold = decimal.NewFromInt(80)

var hundred = decimal.NewFromInt(100)

// Level classifies how much of a budget has been used.
type Level string

// Status is a budget's usage. Percentage is clamped to [0,100] for display;
// Level is decided on the unclamped ratio.
type Status struct {
	Percentage float64 `json:"percentage"`
	Level      Level   `json:"status"`
}

// BudgetLine is a budget with its month's spending resolved.
type BudgetLine struct {
	Budget       core.Budget `json:"budget"`
	CategoryName string      `json:"categoryName"`
	Spent        core.Money  `json:"spent"`
	Remaining    core.Money  `json:"remaining"`
	Status       Status      `json:"status"`
}

// GoalProgress is the display state of a savings goal.
type GoalProgress struct {
	Goal       core.SavingsGoal `json:"goal"`
	Percentage float64          `json:"percentage"`
	Remaining  core.Money       `json:"remaining"`
	DaysLeft   int              `json:"daysLeft"`
}

// BudgetStatus classifies spent against limit.
//
//	spent > limit            -> over
//	80% < spent/limit <= 100% -> warning
//	otherwise                -> good
//
// A zero limit is good at 0% unless anything was spent, then over at 100%.
func BudgetStatus(spent, limit core.Money) Status {
	if !limit.IsPositive() {
		if spent.IsPositive() {
			return Status{Percentage: 100, Level: LevelOver}
		}
		return Status{Percentage: 0, Level: LevelGood}
	}

	pct := spent.Decimal.Div(limit.Decimal).Mul(hundred)

	level := LevelGood
	switch {
	case pct.GreaterThan(hundred):
		level = LevelOver
	case pct.GreaterThan(warningThreshold):
		level = LevelWarning
	}

	display := pct.InexactFloat64()
	display = math.Max(0, math.Min(display, 100))
	return Status{Percentage: display, Level: level}
}

// BudgetReport resolves every budget of month against the month's expenses.
func BudgetReport(budgets []core.Budget, txs []core.Transaction, categories []core.Category, month core.Month) []BudgetLine {
	spending := SpendingByCategory(txs, month)

	var lines []BudgetLine
	for _, b := range budgets {
		if b.Month != month {
			continue
		}
		spent := spending[b.CategoryID]
		lines = append(lines, BudgetLine{
			Budget:       b,
			CategoryName: core.CategoryName(categories, b.CategoryID),
			Spent:        spent,
			Remaining:    b.Limit.Sub(spent),
			Status:       BudgetStatus(spent, b.Limit),
		})
	}
	return lines
}

// Progress computes how far a goal is from its target as of today. The
// percentage is capped at 100 and DaysLeft rounds partial days up.
func Progress(g core.SavingsGoal, today time.Time) GoalProgress {
	pct := 0.0
	if g.TargetAmount.IsPositive() {
		pct = g.CurrentAmount.Decimal.Div(g.TargetAmount.Decimal).Mul(hundred).InexactFloat64()
	}

	days := int(math.Ceil(g.Deadline.Sub(today).Hours() / 24))

	return GoalProgress{
		Goal:       g,
		Percentage: math.Min(pct, 100),
		Remaining:  g.TargetAmount.Sub(g.CurrentAmount),
		DaysLeft:   days,
	}
}
