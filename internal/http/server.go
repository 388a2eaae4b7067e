package http

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/services"
	appweb "tally/web"
)

// Account is the application service the handlers drive.
type Account interface {
	State(ctx context.Context) (core.AccountState, error)
	Summary(ctx context.Context) (services.Summary, error)
	AddExpense(ctx context.Context, e core.Expense) (core.AccountState, error)
	DeleteExpense(ctx context.Context, index int) (core.AccountState, error)
	AdjustBalance(ctx context.Context, amount decimal.Decimal) (core.AccountState, error)
	Export(ctx context.Context, w io.Writer) (int, error)
	ExportAndReset(ctx context.Context, w io.Writer) (int, error)
}

var _ Account = (*services.AccountService)(nil)

// Options configures the server.
type Options struct {
	Addr               string
	RateLimitPerMinute int
	// BalanceStep is the amount added or removed by the balance buttons.
	BalanceStep decimal.Decimal
	// SweepInterval drives the janitor; zero leaves sweeping to the caller.
	SweepInterval time.Duration
	// Cleaners are swept alongside the rate limiter, e.g. the backend cache.
	Cleaners []cache.Cleaner
	// Now defaults to time.Now and supplies the date of undated expenses.
	Now func() time.Time
}

// Server wraps http.Server with the account handlers and their middleware.
type Server struct {
	http.Server

	account     Account
	templates   *template.Template
	detector    *security.Detector
	limiter     *ratelimit.Limiter
	tracer      *trace.Middleware
	janitor     *cache.Janitor
	balanceStep decimal.Decimal
	now         func() time.Time
	logger      *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options, account Account, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BalanceStep.IsZero() {
		opts.BalanceStep = decimal.NewFromInt(100)
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	httpLogger := logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector(logger)
	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		account:     account,
		templates:   t,
		detector:    detector,
		limiter:     ratelimit.NewLimiter(limitCfg),
		tracer:      trace.NewMiddleware(logger, detector.ExtractClientIP),
		balanceStep: opts.BalanceStep,
		now:         opts.Now,
		logger:      httpLogger,
	}

	cacheLogger := logger.WithComponent(log.ComponentCache)
	s.janitor = cache.NewJanitor(func(removed int) {
		cacheLogger.Debug("Cache cleanup completed", log.FieldCount, removed)
	})
	s.janitor.Register(s.limiter)
	for _, c := range opts.Cleaners {
		s.janitor.Register(c)
	}
	if opts.SweepInterval > 0 {
		s.janitor.Start(opts.SweepInterval)
	}

	s.Handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.detector.Middleware)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(chimw.Recoverer)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)

		r.Get("/", s.handleDashboard)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/expenses", s.handleExpensesPage)
		r.Post("/expenses", s.handleCreateExpense)
		r.Post("/expenses/{index}/delete", s.handleDeleteExpense)
		r.Post("/balance", s.handleAdjustBalance)
		r.Get("/export", s.handleExport)
		r.Post("/export/reset", s.handleExportReset)

		r.Route("/api", func(r chi.Router) {
			r.Get("/account", s.handleAPIAccount)
			r.Get("/summary", s.handleAPISummary)
			r.Post("/expenses", s.handleAPICreateExpense)
			r.Delete("/expenses/{index}", s.handleAPIDeleteExpense)
			r.Post("/balance", s.handleAPIAdjustBalance)
		})
	})

	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).Warn("Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// Sweep runs one janitor pass immediately.
func (s *Server) Sweep() int {
	return s.janitor.Sweep()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		m := s.tracer.GetMetrics()
		s.logger.LogFields(ctx, slog.LevelInfo, "HTTP server stopped",
			log.NewFields().
				WithOperation(log.OpShutdown).
				With("total_requests", m.TotalRequests).
				With("server_errors", m.ServerErrors).
				With("rate_limited", s.limiter.GetMetrics().TotalHits).
				With("probes_blocked", s.detector.GetMetrics().BlockedRequests))
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the backend answers a load.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.account.State(ctx); err != nil {
		log.FromContext(r.Context()).Warn("Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
