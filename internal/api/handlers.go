// Package api exposes the bridge over HTTP for companion apps and operators.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/healthsync/internal/auth"
	"example.com/healthsync/internal/bridge"
	"example.com/healthsync/internal/domain"
)

type syncer interface {
	SyncNow(ctx context.Context, force bool, prefs *domain.Preferences) bridge.Outcome
	Export(ctx context.Context, req bridge.ExportRequest) bridge.Outcome
}

type statusReporter interface {
	Snapshot(ctx context.Context) bridge.Snapshot
}

type resetter interface {
	Reset(ctx context.Context) error
}

// Handler coordinates HTTP requests with the bridge.
type Handler struct {
	syncer      syncer
	status      statusReporter
	resetter    resetter
	authn       *auth.Middleware
	corsOrigins []string
	rateLimiter *rateLimiter
	logger      *slog.Logger
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithAuth requires bearer tokens with the health:sync scope on /v1 routes.
func WithAuth(m auth.Middleware) Option {
	return func(h *Handler) { h.authn = &m }
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) Option {
	return func(h *Handler) { h.corsOrigins = origins }
}

// WithRateLimit enables per-client rate limiting. Non-positive values disable it.
func WithRateLimit(requestsPerSec float64, burst int) Option {
	return func(h *Handler) { h.rateLimiter = newRateLimiter(requestsPerSec, burst) }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler builds a Handler.
func NewHandler(s syncer, status statusReporter, reset resetter, opts ...Option) *Handler {
	h := &Handler{syncer: s, status: status, resetter: reset, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns the HTTP routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	if len(h.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.corsOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/health", func(r chi.Router) {
		if h.rateLimiter != nil {
			r.Use(h.rateLimiter.Middleware)
		}
		if h.authn != nil {
			r.Use(h.authn.Wrap, auth.RequireScope(auth.ScopeHealthSync))
		}
		r.Get("/availability", h.availability)
		r.Get("/status", h.snapshot)
		r.Post("/sync", h.sync)
		r.Post("/export", h.export)
		r.Post("/reset", h.reset)
	})
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.InfoContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Snapshot(r.Context()).Availability)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Snapshot(r.Context()))
}

// SyncRequest is the optional body of POST /v1/health/sync.
type SyncRequest struct {
	Force       bool                `json:"force"`
	Preferences *domain.Preferences `json:"preferences,omitempty"`
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	writeOutcome(w, h.syncer.SyncNow(r.Context(), req.Force, req.Preferences))
}

// ExportRequest is the body of POST /v1/health/export.
type ExportRequest struct {
	SessionID   string             `json:"sessionId"`
	StartedAt   string             `json:"startedAt"`
	FinishedAt  string             `json:"finishedAt"`
	Name        string             `json:"name"`
	EnergyKcal  *float64           `json:"energyKcal,omitempty"`
	Enabled     *bool              `json:"enabled,omitempty"`
	Preferences domain.Preferences `json:"preferences"`
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	enabled := req.Enabled == nil || *req.Enabled
	writeOutcome(w, h.syncer.Export(r.Context(), bridge.ExportRequest{
		SessionID:   req.SessionID,
		StartedAt:   req.StartedAt,
		FinishedAt:  req.FinishedAt,
		Name:        req.Name,
		EnergyKcal:  req.EnergyKcal,
		Enabled:     enabled,
		Preferences: req.Preferences,
	}))
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.resetter.Reset(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "reset failed", slog.Any("error", err))
		writeError(w, http.StatusBadGateway, "reset_incomplete", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeOutcome maps unavailable onto 503 and every other terminal status onto 200.
func writeOutcome(w http.ResponseWriter, out bridge.Outcome) {
	status := http.StatusOK
	if out.Status == bridge.StatusUnavailable {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, out)
}

func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{
		"type":   code,
		"detail": detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
