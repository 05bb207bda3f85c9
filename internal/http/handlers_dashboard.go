package http

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/report"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.svc.Finance.Dashboard(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleMonthlyReport streams the month as an XLSX workbook. The workbook is
// rendered into memory first so a failure still yields a JSON error.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.svc.Finance.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteMonthly(&buf, snap, month); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition("fintrack-"+string(month)+".xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentReport).
			WarnContext(r.Context(), "Report download interrupted", applog.FieldError, err)
	}
}

type balanceResponse struct {
	Balance core.Money `json:"balance"`
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Finance.AccountBalance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: b})
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceResponse
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Finance.SetAccountBalance(r.Context(), req.Balance); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type budgetRequest struct {
	CategoryID string     `json:"categoryId"`
	Limit      core.Money `json:"limit"`
	Month      core.Month `json:"month"`
}

func (req budgetRequest) budget(id string) core.Budget {
	return core.Budget{ID: id, CategoryID: sanitizeInput(req.CategoryID), Limit: req.Limit, Month: req.Month}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := optionalMonthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budgets, err := s.svc.Finance.ListBudgets(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(budgets))
}

func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lines, err := s.svc.Finance.BudgetReport(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(lines))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Month == "" {
		req.Month = s.today().Month()
	}
	b, err := s.svc.Finance.CreateBudget(r.Context(), req.budget(""))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Finance.UpdateBudget(r.Context(), req.budget(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Finance.DeleteBudget(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type goalRequest struct {
	Name          string        `json:"name"`
	TargetAmount  core.Money    `json:"targetAmount"`
	CurrentAmount core.Money    `json:"currentAmount"`
	Deadline      core.Date     `json:"deadline"`
	Priority      core.Priority `json:"priority"`
}

func (req goalRequest) goal(id string) core.SavingsGoal {
	return core.SavingsGoal{
		ID:            id,
		Name:          sanitizeInput(req.Name),
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      req.Deadline,
		Priority:      req.Priority,
	}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.Finance.ListGoals(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(goals))
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.Finance.AddGoal(r.Context(), req.goal(""))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.Finance.UpdateGoal(r.Context(), req.goal(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type contributionRequest struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handleContributeGoal(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.Finance.ContributeToGoal(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Finance.DeleteGoal(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
