// Package api exposes the HTTP interface for the landing-page ingestion
// service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comparee-ai/landing-ingest/internal/config"
	"github.com/comparee-ai/landing-ingest/internal/ingest"
	"github.com/comparee-ai/landing-ingest/internal/metrics"
	"github.com/comparee-ai/landing-ingest/internal/ping"
	"github.com/comparee-ai/landing-ingest/internal/store"
)

// Server wires HTTP handlers to the ingestion pipeline and stores.
type Server struct {
	router   chi.Router
	service  *ingest.Service
	auth     *ingest.Authenticator
	pages    store.LandingPageRepository
	idem     store.IdempotencyRepository
	logs     store.WebhookLogRepository
	products store.ProductRepository
	queue    store.ReviewQueueRepository
	pinger   *ping.Pinger
	logger   *zap.Logger
	cfg      config.Config
}

// Deps carries the Server's collaborators.
type Deps struct {
	Service  *ingest.Service
	Auth     *ingest.Authenticator
	Pages    store.LandingPageRepository
	Idem     store.IdempotencyRepository
	Logs     store.WebhookLogRepository
	Products store.ProductRepository
	Queue    store.ReviewQueueRepository
	Pinger   *ping.Pinger
	Logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(d Deps, cfg config.Config) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service:  d.Service,
		auth:     d.Auth,
		pages:    d.Pages,
		idem:     d.Idem,
		logs:     d.Logs,
		products: d.Products,
		queue:    d.Queue,
		pinger:   d.Pinger,
		logger:   logger,
		cfg:      cfg,
	}

	metrics.Init()

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout()))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/landing-pages", func(r chi.Router) {
			r.Post("/", s.createLandingPage)
			r.Get("/", s.listLandingPages)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getLandingPage)
				r.Put("/", s.updateLandingPage)
				r.Delete("/", s.deleteLandingPage)
			})
		})
		r.Get("/ingest/health", s.ingestHealth)
		r.Route("/admin/ingest-logs", func(r chi.Router) {
			r.Get("/", s.listIngestLogs)
			r.Get("/export", s.exportIngestLogs)
		})
		r.Route("/products", func(r chi.Router) {
			r.Post("/", s.createProduct)
			r.Get("/", s.listProducts)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getProduct)
				r.Put("/", s.updateProduct)
				r.Delete("/", s.deleteProduct)
			})
		})
		r.Route("/review-queue", func(r chi.Router) {
			r.Get("/", s.listReviewQueue)
			r.Post("/{id}/approve", s.approveCandidate)
			r.Post("/{id}/reject", s.rejectCandidate)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.pages != nil {
		if err := s.pages.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type requestIDKey struct{}

// RequestID returns the request id assigned by the middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", RequestID(r.Context())),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}
