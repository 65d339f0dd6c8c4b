// Package http exposes a WorkflowService as a JSON REST API.
//
// Routes use the trailing-slash form ("/workflows/{id}/run/"); requests
// without the slash reach the same handlers.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Server serves the REST API.
type Server struct {
	svc     ports.WorkflowService
	router  chi.Router
	logger  *slog.Logger
	events  *StreamManager
	metrics prometheus.Gatherer
	origins []string
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithEvents mounts GET /events, streaming what the given manager broadcasts.
// Feed the manager by registering its Hooks on the engine.
func WithEvents(sm *StreamManager) ServerOption {
	return func(s *Server) {
		s.events = sm
	}
}

// WithMetrics mounts GET /metrics for the given gatherer.
func WithMetrics(g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.metrics = g
	}
}

// WithAllowedOrigins restricts CORS. The default allows any origin.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		s.origins = origins
	}
}

// NewServer creates an API server for svc.
func NewServer(svc ports.WorkflowService, opts ...ServerOption) *Server {
	s := &Server{
		svc:     svc,
		logger:  logging.NewNop(),
		origins: []string{"*"},
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
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	r.Get("/openapi.yaml", s.handleOpenAPI)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
	if s.events != nil {
		r.Get("/events", s.handleEvents)
	}

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", s.handleListWorkflows)
		r.Post("/", s.handleCreateWorkflow)
		r.Route("/{workflowID}", func(r chi.Router) {
			r.Get("/", s.handleGetWorkflow)
			r.Delete("/", s.handleDeleteWorkflow)
			r.Post("/nodes", s.handleCreateNode)
			r.Post("/edges", s.handleCreateEdge)
			r.Post("/run", s.handleRunWorkflow)
			r.Get("/path", s.handleShortestPath)
			r.Get("/validate", s.handleValidateWorkflow)
		})
	})

	r.Route("/nodes", func(r chi.Router) {
		r.Get("/", s.handleListNodes)
		r.Get("/{nodeID}", s.handleGetNode)
		r.Put("/{nodeID}", s.handleUpdateNode)
		r.Delete("/{nodeID}", s.handleDeleteNode)
	})

	r.Route("/edges", func(r chi.Router) {
		r.Get("/", s.handleListEdges)
		r.Get("/{edgeID}", s.handleGetEdge)
		r.Put("/{edgeID}", s.handleUpdateEdge)
		r.Delete("/{edgeID}", s.handleDeleteEdge)
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
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "err", err)
		}
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// page reads skip and limit query parameters. Missing values fall back to the service
// defaults; malformed or negative ones are rejected.
func page(r *http.Request) (skip, limit int, err error) {
	q := r.URL.Query()
	if skip, err = pageParam(q.Get("skip")); err != nil {
		return 0, 0, fmt.Errorf("skip %w", err)
	}
	if limit, err = pageParam(q.Get("limit")); err != nil {
		return 0, 0, fmt.Errorf("limit %w", err)
	}
	return skip, limit, nil
}

func pageParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("must be a non-negative integer")
	}
	return n, nil
}
