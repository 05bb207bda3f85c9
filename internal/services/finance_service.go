package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/finance"
	"fintrack/internal/store"
)

const dashboardCache = "dashboard"

// seriesMonths is how many months of history the dashboard chart shows.
const seriesMonths = 6

// Dashboard is the derived view of one month.
type Dashboard struct {
	Month                  core.Month              `json:"month"`
	Summary                finance.MonthSummary    `json:"summary"`
	AccountBalance         core.Money              `json:"accountBalance"`
	Breakdown              []finance.CategoryTotal `json:"breakdown"`
	TopCategory            finance.CategoryTotal   `json:"topCategory"`
	Budgets                []finance.BudgetLine    `json:"budgets"`
	Goals                  []finance.GoalProgress  `json:"goals"`
	Series                 []finance.MonthPoint    `json:"series"`
	AverageMonthlyExpenses core.Money              `json:"averageMonthlyExpenses"`
	AveragePerExpense      core.Money              `json:"averagePerExpense"`
	RecentTransactions     []core.Transaction      `json:"recentTransactions"`
}

// TransactionFilter narrows ListTransactions. Zero fields match everything.
type TransactionFilter struct {
	Month      core.Month
	Type       core.TransactionType
	CategoryID string
	Recurring  *bool
}

func (f TransactionFilter) match(t core.Transaction) bool {
	if f.Month != "" && t.Date.Month() != f.Month {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.Recurring != nil && t.IsRecurring != *f.Recurring {
		return false
	}
	return true
}

// FinanceService owns transactions, categories, budgets, goals and the
// account balance.
type FinanceService struct {
	repo       *store.Repository
	dashboards cache.Cache[Dashboard]
	deps
}

// NewFinanceService creates the service. A nil dashboard cache disables
// caching.
func NewFinanceService(repo *store.Repository, dashboards cache.Cache[Dashboard], opts ...Option) *FinanceService {
	if dashboards == nil {
		dashboards = cache.Noop[Dashboard]{}
	}
	return &FinanceService{
		repo:       repo,
		dashboards: dashboards,
		deps:       newDeps(opts),
	}
}

func (s *FinanceService) invalidate() {
	s.dashboards.Clear()
}

// AddTransaction records t with a fresh id and moves the account balance by
// its signed amount.
func (s *FinanceService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var recorded []core.Transaction
	err := s.repo.Update(ctx, func(tx *store.Repository) error {
		var err error
		recorded, err = s.appendTransactions(ctx, tx, []core.Transaction{t})
		return err
	}, store.Transactions, store.AccountBalance)
	if err != nil {
		return core.Transaction{}, err
	}
	s.recorded(ctx, recorded)
	return recorded[0], nil
}

// appendTransactions assigns ids to valid transactions and stores them
// together with the balance they move, inside the caller's update.
func (s *FinanceService) appendTransactions(ctx context.Context, tx *store.Repository, add []core.Transaction) ([]core.Transaction, error) {
	txs, err := tx.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	balance, err := tx.AccountBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}

	out := make([]core.Transaction, 0, len(add))
	for _, t := range add {
		t.ID = s.ids.NewID()
		txs = append(txs, t)
		balance = balance.Add(t.Signed())
		out = append(out, t)
	}
	if err := tx.SetTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("save transactions: %w", err)
	}
	if err := tx.SetAccountBalance(ctx, balance); err != nil {
		return nil, fmt.Errorf("save balance: %w", err)
	}
	return out, nil
}

// recorded runs the side effects of stored transactions.
func (s *FinanceService) recorded(ctx context.Context, txs []core.Transaction) {
	if len(txs) == 0 {
		return
	}
	s.invalidate()
	for _, t := range txs {
		s.metrics.IncrTransaction(string(t.Type))
		slog.InfoContext(ctx, "Transaction recorded",
			"id", t.ID, "type", t.Type, "amount", t.Amount.String(), "date", t.Date.String())
		s.publish(ctx, EventTransactionCreated, t.ID, t)
	}
}

// DeleteTransaction removes a transaction and reverses its balance effect.
func (s *FinanceService) DeleteTransaction(ctx context.Context, id string) error {
	var removed core.Transaction
	err := s.repo.Update(ctx, func(tx *store.Repository) error {
		txs, err := tx.Transactions(ctx)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		idx := -1
		for i, t := range txs {
			if t.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return core.NotFound("transaction", id)
		}
		removed = txs[idx]

		balance, err := tx.AccountBalance(ctx)
		if err != nil {
			return fmt.Errorf("load balance: %w", err)
		}

		txs = append(txs[:idx], txs[idx+1:]...)
		if err := tx.SetTransactions(ctx, txs); err != nil {
			return fmt.Errorf("save transactions: %w", err)
		}
		if err := tx.SetAccountBalance(ctx, balance.Sub(removed.Signed())); err != nil {
			return fmt.Errorf("save balance: %w", err)
		}
		return nil
	}, store.Transactions, store.AccountBalance)
	if err != nil {
		return err
	}
	s.invalidate()

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	s.publish(ctx, EventTransactionDeleted, id, removed)
	return nil
}

// ListTransactions returns matching transactions, newest first.
func (s *FinanceService) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.repo.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if f.match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *FinanceService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.repo.Categories(ctx)
}

func (s *FinanceService) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	err := s.repo.Update(ctx, func(tx *store.Repository) error {
		cats, err := tx.Categories(ctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		c.ID = s.ids.NewID()
		if err := tx.SetCategories(ctx, append(cats, c)); err != nil {
			return fmt.Errorf("save categories: %w", err)
		}
		return nil
	}, store.Categories)
	if err != nil {
		return core.Category{}, err
	}
	s.invalidate()

	slog.InfoContext(ctx, "Category added", "id", c.ID, "name", c.Name)
	return c, nil
}

// DeleteCategory does not cascade; references render as the deleted
// placeholder.
func (s *FinanceService) DeleteCategory(ctx context.Context, id string) error {
	err := s.repo.Update(ctx, func(tx *store.Repository) error {
		cats, err := tx.Categories(ctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		kept, found := without(cats, func(c core.Category) bool { return c.ID == id })
		if !found {
			return core.NotFound("category", id)
		}
		if err := tx.SetCategories(ctx, kept); err != nil {
			return fmt.Errorf("save categories: %w", err)
		}
		return nil
	}, store.Categories)
	if err != nil {
		return err
	}
	s.invalidate()

	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}

// ListBudgets returns the budgets of month, or all budgets when month is empty.
func (s *FinanceService) ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error) {
	budgets, err := s.repo.Budgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	if month == "" {
		return budgets, nil
	}
	out := make([]core.Budget, 0, len(budgets))
	for _, b := range budgets {
		if b.Month == month {
			out = append(out, b)
		}
	}
	return out, nil
}

// BudgetReport resolves every budget of month against its spending.
func (s *FinanceService) BudgetReport(ctx context.Context, month core.Month) ([]finance.BudgetLine, error) {
	if err := month.Validate(); err != nil {
		return nil, core.Invalid("month", err)
	}
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return finance.BudgetReport(snap.Budgets, snap.Transactions, snap.Categories, month), nil
}

func duplicateBudget(budgets []core.Budget, b core.Budget) bool {
	for _, existing := range budgets {
		if existing.ID != b.ID && existing.CategoryID == b.CategoryID && existing.Month == b.Month {
			return true
		}
	}
	return false
}

// CreateBudget rejects a second budget for the same category and month.
func (s *FinanceService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	err := s.repo.Update(ctx, func(tx *store.Repository) error {
		budgets, err := tx.Budgets(ctx)
		if err != nil {
			return fmt.Errorf("load budgets: %w", err)
		}
		b.ID = ""
		if duplicateBudget(budgets, b) {
			return core.Invalidf("categoryId", "a budget for this category already exists for %s", b.Month)
		}
		b.ID = s.ids.NewID()
		if err := tx.SetBudgets(ctx, append(budgets, b)); err != nil {
			return fmt.Errorf("save budgets: %w", err)
		}
		return nil
	}, store.Budgets)
	if err != nil {
		return core.Budget{}, err
	}
	s.invalidate()

	slog.InfoContext(ctx, "Budget created", "id", b.ID, "category", b.CategoryID, "month", b.Month)
	return b, nil
}

func (s *FinanceService) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	err := s.repo.Update(ctx, func(tx *store.Repository) error {
		budgets, err := tx.Budgets(ctx)
		if err != nil {
			return fmt.Errorf("load budgets: %w", err)
		}
		idx := -1
		for i := range budgets {
			if budgets[i].ID == b.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return core.NotFound("budget", b.ID)
		}
		if duplicateBudget(budgets, b) {
			return core.Invalidf("categoryId", "a budget for this category already exists for %s", b.Month)
		}
		budgets[idx] = b
		if err := tx.SetBudgets(ctx, budgets); err != nil {
			return fmt.Errorf("save budgets: %w", err)
		}
		return nil
	}, store.Budgets)
	if err != nil {
		return core.Budget{}, err
	}
	s.invalidate()
	return b, nil
}

func (s *FinanceService) DeleteBudget(ctx context.Context, id string) error {
	err := s.repo.Update(ctx, func(tx *store.Repository) error {
		budgets, err := tx.Budgets(ctx)
		if err != nil {
			return fmt.Errorf("load budgets: %w", err)
		}
		kept, found := without(budgets, func(b core.Budget) bool { return b.ID == id })
		if !found {
			return core.NotFound("budget", id)
		}
		if err := tx.SetBudgets(ctx, kept); err != nil {
			return fmt.Errorf("save budgets: %w", err)
		}
		return nil
	}, store.Budgets)
	if err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *FinanceService) ListGoals(ctx context.Context) ([]finance.GoalProgress, error) {
	goals, err := s.repo.SavingsGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	now := s.today().Time
	out := make([]finance.GoalProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, finance.Progress(g, now))
	}
	return out, nil
}

// AddGoal requires the deadline to be after today.
func (s *FinanceService) AddGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if g.Priority == "" {
		g.Priority = core.PriorityMedium
	}
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	if !g.Deadline.After(s.today()) {
		return core.SavingsGoal{}, core.Invalidf("deadline", "must be in the future")
	}

	err := s.repo.Update(ctx, func(tx *store.Repository) error {
		goals, err := tx.SavingsGoals(ctx)
		if err != nil {
			return fmt.Errorf("load goals: %w", err)
		}
		g.ID = s.ids.NewID()
		if err := tx.SetSavingsGoals(ctx, append(goals, g)); err != nil {
			return fmt.Errorf("save goals: %w", err)
		}
		return nil
	}, store.SavingsGoals)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	s.invalidate()

	slog.InfoContext(ctx, "Savings goal added", "id", g.ID, "target", g.TargetAmount.String())
	return g, nil
}

// UpdateGoal replaces a goal. A past deadline is accepted so that overdue
// goals can still be edited.
func (s *FinanceService) UpdateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	return s.mutateGoal(ctx, g.ID, func(core.SavingsGoal) (core.SavingsGoal, error) { return g, nil })
}

// ContributeToGoal adds amount to the goal's current amount. The result may
// not exceed the target.
func (s *FinanceService) ContributeToGoal(ctx context.Context, id string, amount core.Money) (core.SavingsGoal, error) {
	if err := amount.Validate(); err != nil {
		return core.SavingsGoal{}, core.Invalid("amount", err)
	}
	return s.mutateGoal(ctx, id, func(g core.SavingsGoal) (core.SavingsGoal, error) {
		g.CurrentAmount = g.CurrentAmount.Add(amount)
		if err := g.Validate(); err != nil {
			return core.SavingsGoal{}, err
		}
		return g, nil
	})
}

func (s *FinanceService) mutateGoal(ctx context.Context, id string, fn func(core.SavingsGoal) (core.SavingsGoal, error)) (core.SavingsGoal, error) {
	var updated core.SavingsGoal
	err := s.repo.Update(ctx, func(tx *store.Repository) error {
		goals, err := tx.SavingsGoals(ctx)
		if err != nil {
			return fmt.Errorf("load goals: %w", err)
		}
		for i := range goals {
			if goals[i].ID != id {
				continue
			}
			if updated, err = fn(goals[i]); err != nil {
				return err
			}
			updated.ID = id
			goals[i] = updated
			if err := tx.SetSavingsGoals(ctx, goals); err != nil {
				return fmt.Errorf("save goals: %w", err)
			}
			return nil
		}
		return core.NotFound("savings goal", id)
	}, store.SavingsGoals)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	s.invalidate()
	return updated, nil
}

func (s *FinanceService) DeleteGoal(ctx context.Context, id string) error {
	err := s.repo.Update(ctx, func(tx *store.Repository) error {
		goals, err := tx.SavingsGoals(ctx)
		if err != nil {
			return fmt.Errorf("load goals: %w", err)
		}
		kept, found := without(goals, func(g core.SavingsGoal) bool { return g.ID == id })
		if !found {
			return core.NotFound("savings goal", id)
		}
		if err := tx.SetSavingsGoals(ctx, kept); err != nil {
			return fmt.Errorf("save goals: %w", err)
		}
		return nil
	}, store.SavingsGoals)
	if err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *FinanceService) AccountBalance(ctx context.Context) (core.Money, error) {
	return s.repo.AccountBalance(ctx)
}

// SetAccountBalance overrides the running balance, e.g. after reconciling
// with a bank statement.
func (s *FinanceService) SetAccountBalance(ctx context.Context, balance core.Money) error {
	if err := s.repo.SetAccountBalance(ctx, balance); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	s.invalidate()
	slog.InfoContext(ctx, "Account balance set", "balance", balance.String())
	return nil
}

// Dashboard computes the derived view for month, serving it from the cache
// when nothing has changed since the last computation.
func (s *FinanceService) Dashboard(ctx context.Context, month core.Month) (Dashboard, error) {
	if err := month.Validate(); err != nil {
		return Dashboard{}, core.Invalid("month", err)
	}

	today := s.today()
	key := dashboardKey(month, today)
	if d, ok := s.dashboards.Get(key); ok {
		s.metrics.IncrCacheHit(dashboardCache)
		return d, nil
	}
	s.metrics.IncrCacheMiss(dashboardCache)

	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	summary := finance.Summarize(snap.Transactions, month)
	expenseCount := 0
	for _, t := range snap.Transactions {
		if t.Type == core.Expense && t.Date.Month() == month {
			expenseCount++
		}
	}

	goals := make([]finance.GoalProgress, 0, len(snap.SavingsGoals))
	for _, g := range snap.SavingsGoals {
		goals = append(goals, finance.Progress(g, today.Time))
	}

	recent := append([]core.Transaction(nil), snap.Transactions...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Date.After(recent[j].Date) })
	if len(recent) > 5 {
		recent = recent[:5]
	}

	d := Dashboard{
		Month:                  month,
		Summary:                summary,
		AccountBalance:         snap.AccountBalance,
		Breakdown:              finance.CategoryBreakdown(snap.Transactions, snap.Categories, month),
		TopCategory:            finance.TopCategory(snap.Transactions, snap.Categories, month),
		Budgets:                finance.BudgetReport(snap.Budgets, snap.Transactions, snap.Categories, month),
		Goals:                  goals,
		Series:                 finance.MonthlySeries(snap.Transactions, seriesMonths),
		AverageMonthlyExpenses: finance.AverageMonthlyExpenses(snap.Transactions),
		AveragePerExpense:      finance.AveragePerEntry(summary.Expenses, expenseCount),
		RecentTransactions:     recent,
	}
	s.dashboards.Set(key, d)
	return d, nil
}

// dashboardKey includes today because goal countdowns change at midnight.
func dashboardKey(month core.Month, today core.Date) string {
	return string(month) + "|" + today.String()
}

// Snapshot returns every collection, e.g. for exports.
func (s *FinanceService) Snapshot(ctx context.Context) (core.Snapshot, error) {
	return s.repo.Snapshot(ctx)
}

func without[T any](items []T, drop func(T) bool) ([]T, bool) {
	out := make([]T, 0, len(items))
	found := false
	for _, it := range items {
		if drop(it) {
			found = true
			continue
		}
		out = append(out, it)
	}
	return out, found
}
