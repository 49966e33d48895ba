// Package http serves the JSON API: the dashboard and ledger reads, the
// transaction and investment mutations, and the backup endpoints.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

type Server struct {
	http.Server
	svc         *services.FinanceService
	rateLimiter *rateLimiter
	metrics     securityMetrics
	now         func() time.Time
	httpLog     *applog.StructuredLogger

	// Dashboard and ledger payloads are cached between mutations.
	dashboardCache *cache.LRUCache[[]byte]
	ledgerCache    *cache.LRUCache[[]byte]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.FinanceService, cacheSize int, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()
	logger := applog.New(applog.Config{Component: applog.ComponentHTTP})

	s := &Server{
		Server: http.Server{
			Addr: addr,
			Handler: applog.Middleware(logger)(
				applog.RequestIDMiddleware(requestIDFor)(mux)),
		},
		svc:              svc,
		rateLimiter:      newRateLimiter(),
		now:              time.Now,
		httpLog:          applog.NewStructuredLogger(logger),
		dashboardCache:   cache.NewLRUCache[[]byte](cacheSize, cacheTTL),
		ledgerCache:      cache.NewLRUCache[[]byte](cacheSize, cacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("GET /api/ledger", s.withMiddleware(s.handleLedger))

	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withMiddleware(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/transactions/{id}/pay", s.withMiddleware(s.handleMarkPaid))
	mux.HandleFunc("POST /api/transactions/{id}/adjust", s.withMiddleware(s.handleAdjustAmount))
	mux.HandleFunc("DELETE /api/groups/{groupID}", s.withMiddleware(s.handleDeleteGroup))

	mux.HandleFunc("POST /api/investments", s.withMiddleware(s.handleCreateInvestment))
	mux.HandleFunc("DELETE /api/investments/{id}", s.withMiddleware(s.handleDeleteInvestment))

	mux.HandleFunc("GET /api/export", s.withMiddleware(s.handleExport))
	mux.HandleFunc("POST /api/import", s.withMiddleware(s.handleImport))

	return s
}

// withMiddleware adds security headers, rate limiting, and structured
// request logging. Request ids come from the surrounding log middleware.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientIP := extractClientIP(r)
		requestID := applog.RequestIDFromContext(ctx)

		s.httpLog.LogHTTPStart(ctx, r, clientIP, requestID)

		// Rate limiting applies to mutating methods only.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, &s.metrics) {
			applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP, requestID)
	}
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestIDFor honors an inbound X-Request-ID header, minting a fresh id
// otherwise.
func requestIDFor(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// invalidateViews drops the cached read payloads after a mutation.
func (s *Server) invalidateViews() {
	s.dashboardCache.Clear()
	s.ledgerCache.Clear()
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			dashCleaned := s.dashboardCache.CleanExpired()
			ledgerCleaned := s.ledgerCache.CleanExpired()
			if dashCleaned > 0 || ledgerCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"dashboard_entries_removed", dashCleaned,
					"ledger_entries_removed", ledgerCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
