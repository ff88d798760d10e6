// Package api provides HTTP REST endpoints for the analysis pipeline.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/uxray-ai/uxray/internal/core"
	"github.com/uxray-ai/uxray/internal/events"
	"github.com/uxray-ai/uxray/internal/logging"
	"github.com/uxray-ai/uxray/internal/metrics"
	"github.com/uxray-ai/uxray/internal/service"
)

// Server exposes the pipeline over HTTP.
type Server struct {
	router       chi.Router
	orchestrator *service.RecoveryOrchestrator
	store        core.Store
	breakers     *service.BreakerRegistry
	bus          *events.Bus
	metrics      *metrics.Metrics
	logger       *logging.Logger
	origins      []string
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithAllowedOrigins sets the CORS origin allowlist.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.origins = origins
	}
}

// NewServer creates the API server.
func NewServer(orchestrator *service.RecoveryOrchestrator, store core.Store, breakers *service.BreakerRegistry, bus *events.Bus, m *metrics.Metrics, logger *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		orchestrator: orchestrator,
		store:        store,
		breakers:     breakers,
		bus:          bus,
		metrics:      m,
		logger:       logger,
		origins:      []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.handleAnalyze)
			r.Get("/{requestKey}", s.handleGetResult)
		})
		r.Get("/breakers", s.handleBreakers)
		r.Get("/events", s.handleSSE)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).String(),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe starts the HTTP server and shuts it down when the
// context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
