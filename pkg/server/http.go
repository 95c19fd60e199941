package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dasmlab/vaani/pkg/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// DefaultMaxUploadBytes caps an upload when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// Config holds the collaborators of the HTTP server.
type Config struct {
	Port           int
	MaxUploadBytes int64

	Service  *service.TranslationService
	JobQueue *service.JobQueue

	// Auth is mounted at /api/auth when set.
	Auth http.Handler

	// Health is reported by /health and gates /ready.
	Health *HealthMonitor

	Logger *logrus.Logger
}

// HTTPServer provides the upload API, async jobs, health and metrics endpoints.
type HTTPServer struct {
	service        *service.TranslationService
	jobQueue       *service.JobQueue
	auth           http.Handler
	health         *HealthMonitor
	logger         *logrus.Logger
	port           int
	maxUploadBytes int64

	server *http.Server
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(cfg Config) *HTTPServer {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Health == nil {
		cfg.Health = NewHealthMonitor(nil, 0, cfg.Logger)
	}

	return &HTTPServer{
		service:        cfg.Service,
		jobQueue:       cfg.JobQueue,
		auth:           cfg.Auth,
		health:         cfg.Health,
		logger:         cfg.Logger,
		port:           cfg.Port,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Handler builds the router.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/languages", s.handleLanguages)

		if s.jobQueue != nil {
			r.Post("/jobs", s.handleCreateJob)
			r.Get("/jobs/{jobID}", s.handleJobStatus)
			r.Get("/jobs/{jobID}/events", s.handleJobEvents)
		}

		if s.auth != nil {
			r.Mount("/auth", s.auth)
		}
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithFields(logrus.Fields{
		"port": s.port,
	}).Info("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleHealth is the liveness endpoint; dependency failures are reported but
// do not fail it.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks, healthy := s.health.Status(r.Context())

	status := "healthy"
	if !healthy {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// handleReady fails while the last dependency refresh failed.
func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	checks, healthy := s.health.Status(r.Context())

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"ready":  healthy,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(message))
}
