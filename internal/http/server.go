// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"truecost/internal/core"
	applog "truecost/internal/log"
	"truecost/internal/middleware/ratelimit"
	"truecost/internal/middleware/security"
	"truecost/internal/middleware/trace"
	"truecost/internal/report"
	"truecost/internal/services"
)

type (
	// LedgerService is the boundary the handlers drive.
	// *services.ExpenseService satisfies it.
	LedgerService interface {
		RecordExpense(ctx context.Context, in services.ExpenseInput) (services.RecordResult, error)
		GetTransaction(ctx context.Context, id string) (core.Entry, error)
		ListTransactions(ctx context.Context, from, to core.Date) ([]core.Transaction, error)
		EditTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Entry, error)
		DeleteTransaction(ctx context.Context, id string) error
		ListAssets(ctx context.Context) ([]core.Asset, error)
		GetAsset(ctx context.Context, id string) (core.Asset, error)
		GetReport(ctx context.Context, m core.Month, basis report.Basis) (core.Money, error)
		Summary(ctx context.Context, m core.Month) (report.MonthlyReport, error)
		Compare(ctx context.Context, m core.Month) (report.Comparison, error)
		BalanceSheet(ctx context.Context, asOf core.Month) (report.BalanceSheet, error)
		ReportRange(ctx context.Context, from, to core.Month) ([]report.MonthlyReport, error)
	}

	// Pinger backs the readiness probe.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	Options struct {
		RateLimitPerMinute int
		// Ready is optional; without it /readyz always succeeds.
		Ready  Pinger
		Logger *applog.Logger
	}
)

type Server struct {
	http.Server
	svc         LedgerService
	ready       Pinger
	logger      *applog.Logger
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	now         func() core.Date

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc LedgerService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		svc:    svc,
		ready:  opts.Ready,
		logger: logger,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		tracer: trace.NewMiddleware(),
		now:    core.Today,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleEditTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/assets", s.handleListAssets)
	mux.HandleFunc("GET /api/assets/{id}", s.handleGetAsset)

	mux.HandleFunc("GET /api/reports/summary", s.handleSummary)
	mux.HandleFunc("GET /api/reports/compare", s.handleCompare)
	mux.HandleFunc("GET /api/reports/balance", s.handleBalance)
	mux.HandleFunc("GET /api/reports/range", s.handleRange)
	mux.HandleFunc("GET /api/reports/{basis}", s.handleReport)

	clientIP := security.NewClientIP()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	// outermost first
	var h http.Handler = mux
	h = s.recoverer(h)
	h = s.rateLimiter.Middleware(clientIP.Extract, handleRateLimited)(h)
	h = headers.Middleware(h)
	h = applog.Middleware(logger, trace.FromRequest, clientIP.Extract)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// recoverer turns a handler panic into a 500 instead of a dropped connection.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				applog.FromContext(r.Context()).Error("Handler panic",
					"panic", rec,
					applog.FieldPath, r.URL.Path)
				writeJSONError(w, http.StatusInternalServerError, applog.ErrorTypeInternal, "internal error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later", "")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).Warn("Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
