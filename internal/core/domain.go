package core

import (
	"strings"
	"time"
)

const (
	Daily   RecurringPattern = "daily"
	Weekly  RecurringPattern = "weekly"
	Monthly RecurringPattern = "monthly"
	Yearly  RecurringPattern = "yearly"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	LoanKindLoan LoanKind = "loan"
	LoanKindDebt LoanKind = "debt"
)

const (
	LoanActive  LoanStatus = "active"
	LoanPaid    LoanStatus = "paid"
	LoanDefault LoanStatus = "default"
)

// DeletedCategoryName is shown wherever a referenced category no longer exists.
const DeletedCategoryName = "Deleted Category"

const maxDescriptionLen = 200

type (
	RecurringPattern string
	TransactionType  string
	Priority         string
	LoanKind         string
	LoanStatus       string

	Transaction struct {
		ID               string           `json:"id"`
		CategoryID       string           `json:"categoryId"`
		Amount           Money            `json:"amount"`
		Description      string           `json:"description"`
		Date             Date             `json:"date"`
		Type             TransactionType  `json:"type"`
		IsRecurring      bool             `json:"isRecurring"`
		RecurringPattern RecurringPattern `json:"recurringPattern,omitempty"`
	}

	Category struct {
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Icon  string          `json:"icon"`
		Color string          `json:"color"`
		Type  TransactionType `json:"type"`
	}

	Budget struct {
		ID         string `json:"id"`
		CategoryID string `json:"categoryId"`
		Limit      Money  `json:"limit"`
		Month      Month  `json:"month"`
	}

	SavingsGoal struct {
		ID            string   `json:"id"`
		Name          string   `json:"name"`
		TargetAmount  Money    `json:"targetAmount"`
		CurrentAmount Money    `json:"currentAmount"`
		Deadline      Date     `json:"deadline"`
		Priority      Priority `json:"priority"`
	}

	Loan struct {
		ID               string     `json:"id"`
		Name             string     `json:"name"`
		Type             LoanKind   `json:"type"`
		Principal        Money      `json:"principal"`
		InterestRate     Money      `json:"interestRate"`
		PaymentAmount    Money      `json:"paymentAmount"`
		RemainingBalance Money      `json:"remainingBalance"`
		StartDate        Date       `json:"startDate"`
		NextPaymentDate  *Date      `json:"nextPaymentDate,omitempty"`
		Status           LoanStatus `json:"status"`
		Notes            string     `json:"notes,omitempty"`
		CreatedAt        time.Time  `json:"createdAt"`
		UpdatedAt        time.Time  `json:"updatedAt"`
	}

	LoanPayment struct {
		ID     string `json:"id"`
		LoanID string `json:"loanId"`
		Amount Money  `json:"amount"`
		Date   Date   `json:"date"`
		Notes  string `json:"notes,omitempty"`
	}

	// Snapshot is the whole workspace as read from the store.
	Snapshot struct {
		Transactions   []Transaction `json:"transactions"`
		Budgets        []Budget      `json:"budgets"`
		SavingsGoals   []SavingsGoal `json:"savingsGoals"`
		Categories     []Category    `json:"categories"`
		AccountBalance Money         `json:"accountBalance"`
		Loans          []Loan        `json:"loans"`
		LoanPayments   []LoanPayment `json:"loanPayments"`
	}
)

// DefaultCategories is the category set a fresh workspace starts with.
func DefaultCategories() []Category {
	return []Category{
		{ID: "1", Name: "Food & Dining", Icon: "🍽️", Color: "#FF6B6B", Type: Expense},
		{ID: "2", Name: "Transportation", Icon: "🚗", Color: "#4ECDC4", Type: Expense},
		{ID: "3", Name: "Entertainment", Icon: "🎬", Color: "#FFE66D", Type: Expense},
		{ID: "4", Name: "Utilities", Icon: "💡", Color: "#95E1D3", Type: Expense},
		{ID: "5", Name: "Shopping", Icon: "🛍️", Color: "#F38181", Type: Expense},
		{ID: "6", Name: "Health & Fitness", Icon: "💪", Color: "#AA96DA", Type: Expense},
		{ID: "7", Name: "Salary", Icon: "💰", Color: "#52D2A3", Type: Income},
		{ID: "8", Name: "Freelance", Icon: "💼", Color: "#73C6F5", Type: Income},
		{ID: "9", Name: "Investment Returns", Icon: "📈", Color: "#FFB347", Type: Income},
	}
}

func (p RecurringPattern) IsValid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (t TransactionType) IsValid() bool {
	return t == Expense || t == Income
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (k LoanKind) IsValid() bool {
	return k == LoanKindLoan || k == LoanKindDebt
}

func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanActive, LoanPaid, LoanDefault:
		return true
	}
	return false
}

// Signed returns the amount as it affects the account balance.
func (t Transaction) Signed() Money {
	if t.Type == Income {
		return t.Amount
	}
	return t.Amount.Neg()
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.CategoryID) == "" {
		return Invalid("categoryId", ErrEmptyCategory)
	}
	if err := t.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return Invalid("description", ErrEmptyDescription)
	}
	if len(t.Description) > maxDescriptionLen {
		return Invalidf("description", "too long (max %d characters)", maxDescriptionLen)
	}
	if err := t.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	if !t.Type.IsValid() {
		return Invalidf("type", "must be expense or income, got %q", t.Type)
	}
	if t.IsRecurring && !t.RecurringPattern.IsValid() {
		return Invalidf("recurringPattern", "recurring transactions must specify a recurring pattern")
	}
	if !t.IsRecurring && t.RecurringPattern != "" {
		return Invalidf("recurringPattern", "only recurring transactions carry a pattern")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Invalid("name", ErrEmptyName)
	}
	if !c.Type.IsValid() {
		return Invalidf("type", "must be expense or income, got %q", c.Type)
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return Invalid("categoryId", ErrEmptyCategory)
	}
	if b.Limit.IsNegative() {
		return Invalidf("limit", "must not be negative")
	}
	if err := b.Month.Validate(); err != nil {
		return Invalid("month", err)
	}
	return nil
}

// Validate checks the goal invariants that hold at any time. The deadline
// being in the future is only enforced at creation by the caller.
func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return Invalid("name", ErrEmptyName)
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return Invalid("targetAmount", err)
	}
	if g.CurrentAmount.IsNegative() || g.CurrentAmount.GreaterThan(g.TargetAmount.Decimal) {
		return Invalidf("currentAmount", "must be between 0 and target amount")
	}
	if err := g.Deadline.Validate(); err != nil {
		return Invalid("deadline", err)
	}
	if !g.Priority.IsValid() {
		return Invalidf("priority", "must be low, medium or high, got %q", g.Priority)
	}
	return nil
}

func (l Loan) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return Invalid("name", ErrEmptyName)
	}
	if !l.Type.IsValid() {
		return Invalidf("type", "must be loan or debt, got %q", l.Type)
	}
	if err := l.Principal.Validate(); err != nil {
		return Invalid("principal", err)
	}
	if l.InterestRate.IsNegative() {
		return Invalidf("interestRate", "must not be negative")
	}
	if l.PaymentAmount.IsNegative() {
		return Invalidf("paymentAmount", "must not be negative")
	}
	if l.RemainingBalance.IsNegative() || l.RemainingBalance.GreaterThan(l.Principal.Decimal) {
		return Invalidf("remainingBalance", "must be between 0 and principal")
	}
	if err := l.StartDate.Validate(); err != nil {
		return Invalid("startDate", err)
	}
	if !l.Status.IsValid() {
		return Invalidf("status", "must be active, paid or default, got %q", l.Status)
	}
	return nil
}

func (p LoanPayment) Validate() error {
	if strings.TrimSpace(p.LoanID) == "" {
		return Invalidf("loanId", "required")
	}
	if err := p.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if err := p.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	return nil
}

// CategoryName resolves a category id to its name, falling back to the
// deleted-category placeholder.
func CategoryName(categories []Category, id string) string {
	for _, c := range categories {
		if c.ID == id {
			return c.Name
		}
	}
	return DeletedCategoryName
}
