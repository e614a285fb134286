// Package api serves the dashboard's read-only JSON API over the record
// store, plus an endpoint that triggers a sync.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/Veraticus/tablero/internal/common"
	"github.com/Veraticus/tablero/internal/ingest"
	"github.com/Veraticus/tablero/internal/metrics"
	"github.com/Veraticus/tablero/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// SyncFunc runs the ingestion pipeline over every configured source.
type SyncFunc func(ctx context.Context) (ingest.RunSummary, error)

// Options configures a Server.
type Options struct {
	Store       service.Storage
	Sync        SyncFunc
	Logger      *slog.Logger
	CORSOrigins []string
	// RateLimit is the sustained number of API requests per second. Zero
	// disables limiting.
	RateLimit float64
	RateBurst int
	Metrics   bool
}

// Server holds the API dependencies.
type Server struct {
	store   service.Storage
	sync    SyncFunc
	logger  *slog.Logger
	limiter *rate.Limiter
	opts    Options
	syncMu  sync.Mutex
}

// New creates a Server. A nil Sync leaves POST /api/sync unregistered.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:  opts.Store,
		sync:   opts.Sync,
		logger: logger,
		opts:   opts,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         7200,
	})

	return corsHandler.Handler(metrics.Middleware(s.rateLimit(mux)))
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/records", s.handleListRecords)
	mux.HandleFunc("GET /api/records/{fingerprint}", s.handleGetRecord)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/officials", s.handleOfficials)
	mux.HandleFunc("GET /api/sync-runs", s.handleSyncRuns)
	if s.sync != nil {
		mux.HandleFunc("POST /api/sync", s.handleSync)
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	if s.opts.Metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
}

// TriggerSync runs the sync function unless a run is already in progress,
// in which case it returns common.ErrSyncInProgress at once.
func (s *Server) TriggerSync(ctx context.Context) (ingest.RunSummary, error) {
	if s.sync == nil {
		return ingest.RunSummary{}, common.ErrNoSources
	}
	if !s.syncMu.TryLock() {
		return ingest.RunSummary{}, common.ErrSyncInProgress
	}
	defer s.syncMu.Unlock()
	return s.sync(ctx)
}

// rateLimit applies the shared limiter to /api/ routes only, so probes and
// scrapes are never rejected.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
