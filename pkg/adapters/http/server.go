// Package http exposes a small admin API over the persisted sessions.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aretw0/sticky/internal/logging"
	"github.com/aretw0/sticky/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sessions is the slice of the persistence service the API needs.
type Sessions interface {
	IsEnabled() bool
	ListUserIDs(ctx context.Context) []string
	Get(ctx context.Context, userID string) (*domain.Record, bool)
	Exists(ctx context.Context, userID string) bool
	Delete(ctx context.Context, userID string)
}

// Server serves the admin routes.
type Server struct {
	Sessions Sessions
	Logger   *slog.Logger
}

// Option configures the handler.
type Option func(*handlerConfig)

type handlerConfig struct {
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// WithLogger configures request error logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *handlerConfig) {
		c.logger = logger
	}
}

// WithGatherer mounts /metrics for the given gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *handlerConfig) {
		c.gatherer = g
	}
}

// NewHandler creates the admin HTTP handler.
func NewHandler(sessions Sessions, opts ...Option) http.Handler {
	cfg := handlerConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	server := &Server{Sessions: sessions, Logger: cfg.logger}

	r := chi.NewRouter()
	r.Get("/healthz", server.Health)
	r.Route("/users", func(r chi.Router) {
		r.Get("/", server.ListUsers)
		r.Get("/{userID}", server.GetUser)
		r.Head("/{userID}", server.HeadUser)
		r.Delete("/{userID}", server.DeleteUser)
	})
	if cfg.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Enabled bool `json:"enabled"`
}

// UsersResponse is the body of GET /users.
type UsersResponse struct {
	UserIDs []string `json:"userIds"`
}

// Health reports whether persistence is currently enabled.
// It always answers 200: a disabled store is a degraded mode, not a failure.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Enabled: s.Sessions.IsEnabled()})
}

// ListUsers handles GET /users.
func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, UsersResponse{UserIDs: s.Sessions.ListUserIDs(r.Context())})
}

// GetUser handles GET /users/{userID}. Reading a record refreshes its TTL.
func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.Sessions.Get(r.Context(), chi.URLParam(r, "userID"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// HeadUser handles HEAD /users/{userID} without touching the TTL.
func (s *Server) HeadUser(w http.ResponseWriter, r *http.Request) {
	if !s.Sessions.Exists(r.Context(), chi.URLParam(r, "userID")) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteUser handles DELETE /users/{userID}. Deleting a missing user is not an error.
func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Delete(r.Context(), chi.URLParam(r, "userID"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}
