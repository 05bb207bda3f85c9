package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.svc.Loans.ListLoans(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(loans))
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var in ledger.LoanInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Notes = sanitizeInput(in.Notes)

	loan, err := s.svc.Loans.CreateLoan(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := s.svc.Loans.GetLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// loanUpdateRequest lists the editable fields. Principal and remaining
// balance are not among them; payments move the balance.
type loanUpdateRequest struct {
	Name            string          `json:"name"`
	Type            core.LoanKind   `json:"type"`
	InterestRate    core.Money      `json:"interestRate"`
	PaymentAmount   core.Money      `json:"paymentAmount"`
	StartDate       core.Date       `json:"startDate"`
	NextPaymentDate *core.Date      `json:"nextPaymentDate"`
	Status          core.LoanStatus `json:"status"`
	Notes           string          `json:"notes"`
}

func (s *Server) handleUpdateLoan(w http.ResponseWriter, r *http.Request) {
	var req loanUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	loan, err := s.svc.Loans.UpdateLoan(r.Context(), core.Loan{
		ID:              chi.URLParam(r, "id"),
		Name:            sanitizeInput(req.Name),
		Type:            req.Type,
		InterestRate:    req.InterestRate,
		PaymentAmount:   req.PaymentAmount,
		StartDate:       req.StartDate,
		NextPaymentDate: req.NextPaymentDate,
		Status:          req.Status,
		Notes:           sanitizeInput(req.Notes),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) handleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Loans.DeleteLoan(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.svc.Loans.ListPayments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(payments))
}

type paymentRequest struct {
	Amount core.Money `json:"amount"`
	Date   *core.Date `json:"date"`
	Notes  string     `json:"notes"`
}

// handleApplyPayment records a payment against the loan in the path. The
// date defaults to today.
func (s *Server) handleApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date := s.today()
	if req.Date != nil {
		date = *req.Date
	}

	p, err := s.svc.Loans.ApplyPayment(r.Context(), ledger.PaymentInput{
		LoanID: chi.URLParam(r, "id"),
		Amount: req.Amount,
		Date:   date,
		Notes:  sanitizeInput(req.Notes),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleLoanOverview(w http.ResponseWriter, r *http.Request) {
	o, err := s.svc.Loans.Overview(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type reconcileResponse struct {
	CheckedAt time.Time      `json:"checkedAt"`
	Drifts    []ledger.Drift `json:"drifts"`
}

func (s *Server) handleLoanReconcile(w http.ResponseWriter, r *http.Request) {
	drifts, err := s.svc.Loans.Reconcile(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if drifts == nil {
		drifts = []ledger.Drift{}
	}
	writeJSON(w, http.StatusOK, reconcileResponse{CheckedAt: s.now().UTC(), Drifts: drifts})
}
