package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

type userKey struct{}

// userFrom returns the authenticated user name, empty when auth is disabled.
func userFrom(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}

// requireAuth accepts requests carrying a valid Bearer token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, r, auth.ErrInvalidToken)
			return
		}
		claims, err := s.auth.Validate(strings.TrimSpace(token))
		if err != nil {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
				WarnContext(r.Context(), "Rejected token", applog.FieldError, err)
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, claims.Subject)
		ctx = applog.WithContext(ctx, applog.FromContext(ctx).With(applog.FieldUser, claims.Subject))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the store can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.svc.Finance.AccountBalance(ctx); err != nil {
		applog.FromContext(r.Context()).LogError(r.Context(), "Readiness check failed", err, applog.OpRead, nil)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "authentication is disabled"})
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, expires, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
			WarnContext(r.Context(), "Login failed", applog.FieldUser, req.Username)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, TokenType: "Bearer", ExpiresAt: expires})
}

type transactionRequest struct {
	CategoryID       string                `json:"categoryId"`
	Amount           core.Money            `json:"amount"`
	Description      string                `json:"description"`
	Date             *core.Date            `json:"date"`
	Type             core.TransactionType  `json:"type"`
	IsRecurring      bool                  `json:"isRecurring"`
	RecurringPattern core.RecurringPattern `json:"recurringPattern"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := optionalMonthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	typ, err := typeParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recurring, err := boolParam(r, "recurring")
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.svc.Finance.ListTransactions(r.Context(), services.TransactionFilter{
		Month:      month,
		Type:       typ,
		CategoryID: strings.TrimSpace(r.URL.Query().Get("categoryId")),
		Recurring:  recurring,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(txs))
}

// handleCreateTransaction records a transaction; the date defaults to today.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date := s.today()
	if req.Date != nil {
		date = *req.Date
	}

	t, err := s.svc.Finance.AddTransaction(r.Context(), core.Transaction{
		CategoryID:       sanitizeInput(req.CategoryID),
		Amount:           req.Amount,
		Description:      sanitizeInput(req.Description),
		Date:             date,
		Type:             req.Type,
		IsRecurring:      req.IsRecurring,
		RecurringPattern: req.RecurringPattern,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Finance.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Finance.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(cats))
}

type categoryRequest struct {
	Name  string               `json:"name"`
	Icon  string               `json:"icon"`
	Color string               `json:"color"`
	Type  core.TransactionType `json:"type"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Finance.AddCategory(r.Context(), core.Category{
		Name:  sanitizeInput(req.Name),
		Icon:  sanitizeInput(req.Icon),
		Color: sanitizeInput(req.Color),
		Type:  req.Type,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Finance.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
