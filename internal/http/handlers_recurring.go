package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleRecurringDue(w http.ResponseWriter, r *http.Request) {
	due, err := s.svc.Recurring.Due(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(due))
}

// handleRecurringConfirm records one projected occurrence. Confirming an
// occurrence that is no longer due is a 404.
func (s *Server) handleRecurringConfirm(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Recurring.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleRecurringConfirmAll(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Recurring.ConfirmAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(txs))
}

func (s *Server) handleRecurringUpcoming(w http.ResponseWriter, r *http.Request) {
	upcoming, err := s.svc.Recurring.Upcoming(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(upcoming))
}

func (s *Server) handleRecurringStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Recurring.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
