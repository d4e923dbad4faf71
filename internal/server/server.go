// Package server exposes pick generation over HTTP.
//
// Routes:
//
//	GET /api/pick  JSON batch for the web client: {"picks": [[[n1..n5], special], ...]}
//	GET /          HTML page rendering a fresh batch
//	GET /health    liveness probe
//
// Every request goes through request-ID, real-IP, panic recovery, request
// logging, CORS and (optionally) a global rate limiter.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/powerpick/internal/config"
	"github.com/rewired-gh/powerpick/internal/logger"
	"github.com/rewired-gh/powerpick/internal/models"
)

// PickGenerator produces a batch of picks per call.
type PickGenerator interface {
	Generate(ctx context.Context) (*models.Batch, error)
}

// Server is the HTTP front end of the pick generator.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	cfg        config.ServerConfig
	generator  PickGenerator
	version    string
}

// New creates a server for the given generator. Routes are registered immediately;
// call Start to begin listening or use Handler directly.
func New(cfg config.ServerConfig, generator PickGenerator, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		generator: generator,
		version:   version,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Batch-ID", "X-Request-ID"},
		MaxAge:         300,
	}))

	if s.cfg.RateLimit.RPS > 0 {
		limiter := rate.NewLimiter(rate.Limit(s.cfg.RateLimit.RPS), s.cfg.RateLimit.Burst)
		s.router.Use(rateLimit(limiter))
	}
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/", s.handleIndex)
	s.router.Get("/api/pick", s.handlePick)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, errors.New("no route for "+r.URL.Path))
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening in a goroutine. Listener errors other than a clean
// shutdown are logged.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening on %s", s.cfg.Addr())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	logger.Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs one line per request with status and latency.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Info("%s %s -> %d (%d bytes) in %v [%s]",
			r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}

// rateLimit rejects requests with 429 once the shared token bucket is empty.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodOptions && !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded, retry shortly"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
