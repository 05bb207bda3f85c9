// Package store defines the persistence port and a typed repository over it.
//
// A backend only has to provide keyed blob access (KV). Repository encodes
// each named collection as JSON under its own key. Mutations that touch
// several collections go through Repository.Update so they land together.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

// ErrNotFound is returned by KV.Get for keys that were never written.
var ErrNotFound = errors.New("key not found")

// UpdateFunc receives the stored value of each requested key, keys never
// written being absent, and returns the values to store.
type UpdateFunc func(current map[string][]byte) (map[string][]byte, error)

// KV is the persistence port implemented by storage backends.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Update is an atomic read-modify-write over keys. No other writer, in
	// this process or another, can change the keys between the read and the
	// write, and either every returned value is stored or none is. An error
	// from fn stores nothing.
	Update(ctx context.Context, keys []string, fn UpdateFunc) error
	Close() error
}

// Kind names a stored collection.
type Kind string

const (
	Transactions   Kind = "transactions"
	Budgets        Kind = "budgets"
	SavingsGoals   Kind = "savingsGoals"
	Categories     Kind = "categories"
	Loans          Kind = "loans"
	LoanPayments   Kind = "loanPayments"
	AccountBalance Kind = "accountBalance"
)

// Kinds lists every collection in snapshot order.
func Kinds() []Kind {
	return []Kind{Transactions, Budgets, SavingsGoals, Categories, AccountBalance, Loans, LoanPayments}
}

// Repository reads and writes typed collections through a KV.
type Repository struct {
	kv                KV
	defaultCategories []core.Category
}

// Option configures a Repository.
type Option func(*Repository)

// WithDefaultCategories sets the categories returned while none are stored.
func WithDefaultCategories(cats []core.Category) Option {
	return func(r *Repository) {
		if len(cats) > 0 {
			r.defaultCategories = cats
		}
	}
}

// NewRepository wraps kv.
func NewRepository(kv KV, opts ...Option) *Repository {
	r := &Repository{kv: kv, defaultCategories: core.DefaultCategories()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close closes the underlying KV.
func (r *Repository) Close() error {
	return r.kv.Close()
}

// Read decodes the collection kind into dst. A collection that was never
// written leaves dst untouched and reports false.
func (r *Repository) Read(ctx context.Context, kind Kind, dst any) (bool, error) {
	raw, err := r.kv.Get(ctx, string(kind))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", kind, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", kind, err)
	}
	return true, nil
}

// Write encodes v and stores it as the collection kind.
func (r *Repository) Write(ctx context.Context, kind Kind, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	if err := r.kv.Set(ctx, string(kind), raw); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	return nil
}

func (r *Repository) Transactions(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	_, err := r.Read(ctx, Transactions, &out)
	return out, err
}

func (r *Repository) SetTransactions(ctx context.Context, txs []core.Transaction) error {
	return r.Write(ctx, Transactions, nonNil(txs))
}

func (r *Repository) Budgets(ctx context.Context) ([]core.Budget, error) {
	var out []core.Budget
	_, err := r.Read(ctx, Budgets, &out)
	return out, err
}

func (r *Repository) SetBudgets(ctx context.Context, budgets []core.Budget) error {
	return r.Write(ctx, Budgets, nonNil(budgets))
}

func (r *Repository) SavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	var out []core.SavingsGoal
	_, err := r.Read(ctx, SavingsGoals, &out)
	return out, err
}

func (r *Repository) SetSavingsGoals(ctx context.Context, goals []core.SavingsGoal) error {
	return r.Write(ctx, SavingsGoals, nonNil(goals))
}

// Categories returns the stored categories, or the default set when the
// collection was never written.
func (r *Repository) Categories(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	found, err := r.Read(ctx, Categories, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return append([]core.Category(nil), r.defaultCategories...), nil
	}
	return out, nil
}

func (r *Repository) SetCategories(ctx context.Context, cats []core.Category) error {
	return r.Write(ctx, Categories, nonNil(cats))
}

func (r *Repository) Loans(ctx context.Context) ([]core.Loan, error) {
	var out []core.Loan
	_, err := r.Read(ctx, Loans, &out)
	return out, err
}

func (r *Repository) SetLoans(ctx context.Context, loans []core.Loan) error {
	return r.Write(ctx, Loans, nonNil(loans))
}

func (r *Repository) LoanPayments(ctx context.Context) ([]core.LoanPayment, error) {
	var out []core.LoanPayment
	_, err := r.Read(ctx, LoanPayments, &out)
	return out, err
}

func (r *Repository) SetLoanPayments(ctx context.Context, payments []core.LoanPayment) error {
	return r.Write(ctx, LoanPayments, nonNil(payments))
}

// AccountBalance returns the stored balance, 0 when never set.
func (r *Repository) AccountBalance(ctx context.Context) (core.Money, error) {
	balance := core.Zero
	_, err := r.Read(ctx, AccountBalance, &balance)
	return balance, err
}

func (r *Repository) SetAccountBalance(ctx context.Context, balance core.Money) error {
	return r.Write(ctx, AccountBalance, balance)
}

// Snapshot reads every collection.
func (r *Repository) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var (
		s   core.Snapshot
		err error
	)
	if s.Transactions, err = r.Transactions(ctx); err != nil {
		return s, err
	}
	if s.Budgets, err = r.Budgets(ctx); err != nil {
		return s, err
	}
	if s.SavingsGoals, err = r.SavingsGoals(ctx); err != nil {
		return s, err
	}
	if s.Categories, err = r.Categories(ctx); err != nil {
		return s, err
	}
	if s.AccountBalance, err = r.AccountBalance(ctx); err != nil {
		return s, err
	}
	if s.Loans, err = r.Loans(ctx); err != nil {
		return s, err
	}
	if s.LoanPayments, err = r.LoanPayments(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
