// Package web exposes the import/export engine over HTTP.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/roster/internal/blob"
	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core"
	mw "github.com/JonMunkholm/roster/internal/web/middleware"
)

// Server is the HTTP server of the roster API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	sink    blob.Sink // destination of saved exports, may be nil
	router  *chi.Mux
	server  *http.Server

	limiter       *rateLimiter
	importLimiter *rateLimiter
	now           func() time.Time
}

// NewServer creates a Server. sink receives exports requested with save=true;
// a nil sink disables saving.
func NewServer(service *core.Service, cfg *config.Config, sink blob.Sink) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		sink:    sink,
		router:  chi.NewRouter(),
		now:     time.Now,
	}
	if cfg.Rate.Enabled {
		s.limiter = newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
		s.importLimiter = newRateLimiter(cfg.Rate.ImportLimit, time.Minute)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)

	// Security hardening
	s.router.Use(securityHeaders)

	if s.limiter != nil {
		s.router.Use(s.limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		// Progress streams stay open for the whole run, so only the
		// request/response routes get a deadline.
		r.Get("/runs/{runID}/progress", s.handleImportProgress)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout()))

			r.Get("/kinds", s.handleListKinds)

			// Imports
			r.With(s.importRateLimit).Post("/import/{kind}", s.handleImport)
			r.Get("/import/status", s.handleImportStatus)
			r.Get("/runs/{runID}", s.handleImportResult)
			r.Post("/runs/{runID}/cancel", s.handleCancelImport)

			// Exports
			r.Get("/export/{target}", s.handleExport)

			// Templates and field reference
			r.Get("/template/{kind}", s.handleDownloadTemplate)
			r.Get("/reference/{kind}", s.handleFieldReference)
		})
	})
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.Server.RequestTimeout > 0 {
		return s.cfg.Server.RequestTimeout
	}
	return 60 * time.Second
}

func (s *Server) importRateLimit(next http.Handler) http.Handler {
	if s.importLimiter == nil {
		return next
	}
	return s.importLimiter.middleware(next)
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // 0 keeps SSE streams open
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Close()
		s.importLimiter.Close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
