// Package http exposes the finance, recurring and loan services as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Services groups the application services served over HTTP.
type Services struct {
	Finance   *services.FinanceService
	Recurring *services.RecurringService
	Loans     *services.LoanService
}

// Options configures optional server behaviour. The zero value serves
// without authentication, metrics or rate limiting.
type Options struct {
	Auth      *auth.Authenticator
	Metrics   *metrics.Metrics
	Logger    *applog.Logger
	RateLimit int // requests per minute per client
	Location  *time.Location
	Now       func() time.Time
}

// Server wraps http.Server with the API handlers and middleware state.
type Server struct {
	http.Server

	svc      Services
	auth     *auth.Authenticator
	metrics  *metrics.Metrics
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	location *time.Location
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	s := &Server{
		svc:      svc,
		auth:     opts.Auth,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		detector: security.NewDetector(),
		location: opts.Location,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.RateLimit > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit})
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.metrics)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(applog.Middleware(s.logger))
	r.Use(s.tracer.Handler)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)
	if s.limiter != nil {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			if s.auth != nil {
				r.Use(s.requireAuth)
			}

			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Get("/categories", s.handleListCategories)
			r.Post("/categories", s.handleCreateCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)

			r.Get("/budgets", s.handleListBudgets)
			r.Post("/budgets", s.handleCreateBudget)
			r.Get("/budgets/report", s.handleBudgetReport)
			r.Put("/budgets/{id}", s.handleUpdateBudget)
			r.Delete("/budgets/{id}", s.handleDeleteBudget)

			r.Get("/goals", s.handleListGoals)
			r.Post("/goals", s.handleCreateGoal)
			r.Put("/goals/{id}", s.handleUpdateGoal)
			r.Delete("/goals/{id}", s.handleDeleteGoal)
			r.Post("/goals/{id}/contribute", s.handleContributeGoal)

			r.Get("/balance", s.handleGetBalance)
			r.Put("/balance", s.handleSetBalance)

			r.Get("/dashboard", s.handleDashboard)
			r.Get("/reports/monthly", s.handleMonthlyReport)

			r.Get("/recurring/due", s.handleRecurringDue)
			r.Post("/recurring/due/{id}/confirm", s.handleRecurringConfirm)
			r.Post("/recurring/confirm-all", s.handleRecurringConfirmAll)
			r.Get("/recurring/upcoming", s.handleRecurringUpcoming)
			r.Get("/recurring/stats", s.handleRecurringStats)

			r.Get("/loans", s.handleListLoans)
			r.Post("/loans", s.handleCreateLoan)
			r.Get("/loans/overview", s.handleLoanOverview)
			r.Get("/loans/reconcile", s.handleLoanReconcile)
			r.Get("/loans/{id}", s.handleGetLoan)
			r.Put("/loans/{id}", s.handleUpdateLoan)
			r.Delete("/loans/{id}", s.handleDeleteLoan)
			r.Get("/loans/{id}/payments", s.handleListPayments)
			r.Post("/loans/{id}/payments", s.handleApplyPayment)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	return r
}

// today is the current date in the configured time zone.
func (s *Server) today() core.Date {
	return core.DateOf(s.now().In(s.location))
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
