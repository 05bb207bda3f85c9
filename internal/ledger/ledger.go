// Package ledger tracks loans and debts and the payments made against them.
//
// Every mutating operation is a transition over an explicit State: it takes
// the current state and returns the next one. Input is validated before
// anything is built, so an error always comes back with the input state
// untouched. Returned states never share backing arrays with their inputs.
package ledger

import (
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ids"
)

// State is the full loan ledger.
type State struct {
	Loans    []core.Loan        `json:"loans"`
	Payments []core.LoanPayment `json:"loanPayments"`
}

// LoanInput carries the caller-supplied fields of a new loan.
type LoanInput struct {
	Name            string          `json:"name"`
	Type            core.LoanKind   `json:"type"`
	Principal       core.Money      `json:"principal"`
	InterestRate    core.Money      `json:"interestRate"`
	PaymentAmount   core.Money      `json:"paymentAmount"`
	StartDate       core.Date       `json:"startDate"`
	NextPaymentDate *core.Date      `json:"nextPaymentDate,omitempty"`
	Status          core.LoanStatus `json:"status,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// PaymentInput carries the caller-supplied fields of a payment.
type PaymentInput struct {
	LoanID string     `json:"loanId"`
	Amount core.Money `json:"amount"`
	Date   core.Date  `json:"date"`
	Notes  string     `json:"notes,omitempty"`
}

// Overview aggregates the active loans.
type Overview struct {
	ActiveCount    int        `json:"activeCount"`
	TotalCount     int        `json:"totalCount"`
	Outstanding    core.Money `json:"outstanding"`
	TotalPrincipal core.Money `json:"totalPrincipal"`
	// NextPayment is nil when no active loan has a payment scheduled.
	NextPayment *core.Date `json:"nextPayment"`
}

// Drift reports a loan whose stored balance disagrees with its payments.
type Drift struct {
	LoanID   string     `json:"loanId"`
	Stored   core.Money `json:"stored"`
	Expected core.Money `json:"expected"`
}

func (s State) clone() State {
	return State{
		Loans:    append([]core.Loan(nil), s.Loans...),
		Payments: append([]core.LoanPayment(nil), s.Payments...),
	}
}

func (s State) indexOf(id string) int {
	for i, l := range s.Loans {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Loan returns the loan with the given id.
func (s State) Loan(id string) (core.Loan, error) {
	i := s.indexOf(id)
	if i < 0 {
		return core.Loan{}, core.NotFound("loan", id)
	}
	return s.Loans[i], nil
}

// CreateLoan adds a new loan with its remaining balance set to the principal.
// Status defaults to active.
func CreateLoan(s State, in LoanInput, gen ids.Generator, now time.Time) (State, core.Loan, error) {
	status := in.Status
	if status == "" {
		status = core.LoanActive
	}
	now = now.UTC()
	loan := core.Loan{
		Name:             strings.TrimSpace(in.Name),
		Type:             in.Type,
		Principal:        in.Principal,
		InterestRate:     in.InterestRate,
		PaymentAmount:    in.PaymentAmount,
		RemainingBalance: in.Principal,
		StartDate:        in.StartDate,
		NextPaymentDate:  in.NextPaymentDate,
		Status:           status,
		Notes:            strings.TrimSpace(in.Notes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := loan.Validate(); err != nil {
		return s, core.Loan{}, err
	}
	loan.ID = gen.NewID()

	next := s.clone()
	next.Loans = append(next.Loans, loan)
	return next, loan, nil
}

// UpdateLoan replaces the editable fields of a loan by id. Principal,
// RemainingBalance and CreatedAt are kept from the stored loan: only
// ApplyPayment moves the balance. Status changes, including marking a loan
// paid, are made here.
func UpdateLoan(s State, loan core.Loan, now time.Time) (State, core.Loan, error) {
	i := s.indexOf(loan.ID)
	if i < 0 {
		return s, core.Loan{}, core.NotFound("loan", loan.ID)
	}
	stored := s.Loans[i]
	loan.Name = strings.TrimSpace(loan.Name)
	loan.Principal = stored.Principal
	loan.RemainingBalance = stored.RemainingBalance
	loan.CreatedAt = stored.CreatedAt
	loan.UpdatedAt = now.UTC()
	if err := loan.Validate(); err != nil {
		return s, core.Loan{}, err
	}

	next := s.clone()
	next.Loans[i] = loan
	return next, loan, nil
}

// ApplyPayment records a payment and lowers the loan's remaining balance,
// never below zero. The loan status is left alone even when the balance
// reaches zero.
func ApplyPayment(s State, in PaymentInput, gen ids.Generator, now time.Time) (State, core.LoanPayment, error) {
	payment := core.LoanPayment{
		LoanID: in.LoanID,
		Amount: in.Amount,
		Date:   in.Date,
		Notes:  strings.TrimSpace(in.Notes),
	}
	if err := payment.Validate(); err != nil {
		return s, core.LoanPayment{}, err
	}
	i := s.indexOf(in.LoanID)
	if i < 0 {
		return s, core.LoanPayment{}, core.NotFound("loan", in.LoanID)
	}
	payment.ID = gen.NewID()

	next := s.clone()
	loan := next.Loans[i]
	loan.RemainingBalance = loan.RemainingBalance.Sub(in.Amount).Max(core.Zero)
	loan.UpdatedAt = now.UTC()
	next.Loans[i] = loan
	next.Payments = append(next.Payments, payment)
	return next, payment, nil
}

// DeleteLoan removes a loan together with every payment made against it.
func DeleteLoan(s State, id string) (State, error) {
	i := s.indexOf(id)
	if i < 0 {
		return s, core.NotFound("loan", id)
	}

	next := State{
		Loans:    make([]core.Loan, 0, len(s.Loans)-1),
		Payments: make([]core.LoanPayment, 0, len(s.Payments)),
	}
	next.Loans = append(next.Loans, s.Loans[:i]...)
	next.Loans = append(next.Loans, s.Loans[i+1:]...)
	for _, p := range s.Payments {
		if p.LoanID != id {
			next.Payments = append(next.Payments, p)
		}
	}
	return next, nil
}

// ListLoans returns the loans, most recently created first.
func ListLoans(s State) []core.Loan {
	out := append([]core.Loan(nil), s.Loans...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ListPayments returns the payments for loanID, or all payments when loanID
// is empty, newest payment date first.
func ListPayments(s State, loanID string) []core.LoanPayment {
	var out []core.LoanPayment
	for _, p := range s.Payments {
		if loanID == "" || p.LoanID == loanID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// Summarize computes the overview over the active loans.
func Summarize(loans []core.Loan) Overview {
	o := Overview{TotalCount: len(loans), Outstanding: core.Zero, TotalPrincipal: core.Zero}
	for _, l := range loans {
		if l.Status != core.LoanActive {
			continue
		}
		o.ActiveCount++
		o.Outstanding = o.Outstanding.Add(l.RemainingBalance)
		o.TotalPrincipal = o.TotalPrincipal.Add(l.Principal)
		if l.NextPaymentDate == nil || l.NextPaymentDate.IsZero() {
			continue
		}
		if o.NextPayment == nil || l.NextPaymentDate.Before(*o.NextPayment) {
			d := *l.NextPaymentDate
			o.NextPayment = &d
		}
	}
	return o
}

// ExpectedBalance derives a loan's balance from its payments:
// max(0, principal - sum of payments).
func ExpectedBalance(loan core.Loan, payments []core.LoanPayment) core.Money {
	paid := core.Zero
	for _, p := range payments {
		if p.LoanID == loan.ID {
			paid = paid.Add(p.Amount)
		}
	}
	return loan.Principal.Sub(paid).Max(core.Zero)
}

// Reconcile lists every loan whose stored remaining balance differs from the
// balance derived from its payments.
func Reconcile(s State) []Drift {
	var drifts []Drift
	for _, l := range s.Loans {
		want := ExpectedBalance(l, s.Payments)
		if !l.RemainingBalance.Equal(want) {
			drifts = append(drifts, Drift{LoanID: l.ID, Stored: l.RemainingBalance, Expected: want})
		}
	}
	return drifts
}
