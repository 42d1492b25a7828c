package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/stats"
)

// Ledger is the part of services.LedgerService the API needs.
type Ledger interface {
	CurrentPeriod() stats.Period
	List(ctx context.Context) ([]core.Bill, error)
	Create(ctx context.Context, b core.Bill) (core.Bill, error)
	Update(ctx context.Context, b core.Bill) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Reset(ctx context.Context, confirm string) (bool, error)
	Summary(ctx context.Context, p stats.Period) (stats.Summary, error)
	CategoryBreakdown(ctx context.Context, p stats.Period, typ core.TransactionType) ([]stats.CategorySum, error)
	Series(ctx context.Context, p stats.Period, typ core.TransactionType) (stats.Series, error)
	Days(ctx context.Context, p stats.Period) ([]stats.DayGroup, error)
	Categories(t core.TransactionType) []core.Category
	Ready(ctx context.Context) error
}

// Options configures a Server. Zero values pick defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	Version            string
}

// appMetrics holds application-level counters exposed on /metrics.
type appMetrics struct {
	started      time.Time
	billsCreated int64
	billsUpdated int64
	billsDeleted int64
	resets       int64
}

type Server struct {
	http.Server
	ledger  Ledger
	logger  *log.Logger
	version string

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// The middleware order is trace, security headers, detection, then rate
// limiting for /api routes only.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		ledger:           ledger,
		logger:           logger,
		version:          opts.Version,
		securityDetector: security.NewDetector(opts.Logger),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		appMetrics:       appMetrics{started: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(opts.Logger, s.securityDetector.ExtractClientIP)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/bills", s.handleListBills)
	api.HandleFunc("POST /api/bills", s.handleCreateBill)
	api.HandleFunc("PUT /api/bills/{id}", s.handleUpdateBill)
	api.HandleFunc("DELETE /api/bills/{id}", s.handleDeleteBill)
	api.HandleFunc("GET /api/days", s.handleDays)
	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /api/stats/categories", s.handleCategoryStats)
	api.HandleFunc("GET /api/stats/series", s.handleSeries)
	api.HandleFunc("GET /api/categories", s.handleCategories)
	api.HandleFunc("POST /api/reset", s.handleReset)
	api.HandleFunc("/api/", handleNotFound)

	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", limited(log.ComponentMiddleware(log.ComponentLedger)(api)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("/", handleNotFound)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.traceMiddleware.Middleware(headers.Middleware(s.securityDetector.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
