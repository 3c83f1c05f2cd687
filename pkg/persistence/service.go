package persistence

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/sticky/internal/logging"
	"github.com/aretw0/sticky/pkg/domain"
	"github.com/aretw0/sticky/pkg/ports"
)

// Service persists per-user browser session state with a sliding TTL.
//
// Every method is safe to call whatever the health of the backing store:
// failures are logged and turned into the "no persistence" result
// (nothing saved, absent, false, empty). Callers never need to check
// IsEnabled first.
type Service struct {
	backend   ports.Backend
	namespace string
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNamespace sets the key prefix. Keys become "<namespace>:<userId>".
func WithNamespace(namespace string) Option {
	return func(s *Service) {
		s.namespace = namespace
	}
}

// WithTTL sets the sliding expiry window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics records operation outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a Service on top of backend. A nil backend yields a
// permanently disabled service.
func New(backend ports.Backend, opts ...Option) *Service {
	s := &Service{
		backend:   backend,
		namespace: domain.DefaultNamespace,
		ttl:       domain.DefaultTTL,
		now:       time.Now,
		logger:    logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsEnabled reports whether the backing store is ready right now.
// Readiness can flip at any time, so it is never cached.
func (s *Service) IsEnabled() bool {
	return s.backend != nil && s.backend.IsReady()
}

// Save stores a snapshot for userID, keeping the original createdAt if a
// record already exists. Best effort: errors are logged, never returned.
func (s *Service) Save(ctx context.Context, userID string, data domain.SessionData, fingerprint map[string]any, userAgent string) {
	start := time.Now()
	if userID == "" {
		s.logger.Debug("save skipped: empty user id")
		return
	}
	result := s.mode().save(ctx, userID, snapshot{
		data:        data,
		fingerprint: fingerprint,
		userAgent:   userAgent,
	})
	s.metrics.observe(opSave, result, start, s.IsEnabled())
}

// Get returns the record for userID and refreshes its TTL to the full window.
// The boolean is false when nothing usable is stored or persistence is off.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Record, bool) {
	start := time.Now()
	if userID == "" {
		return nil, false
	}
	rec, result := s.mode().get(ctx, userID)
	s.metrics.observe(opGet, result, start, s.IsEnabled())
	return rec, rec != nil
}

// Delete removes the record for userID, if any.
func (s *Service) Delete(ctx context.Context, userID string) {
	start := time.Now()
	if userID == "" {
		return
	}
	result := s.mode().remove(ctx, userID)
	s.metrics.observe(opDelete, result, start, s.IsEnabled())
}

// Exists reports whether a value is stored under userID's key, without
// refreshing it. It checks key presence only: for a malformed or foreign
// value it returns true while Get reports absent. Failures count as false.
func (s *Service) Exists(ctx context.Context, userID string) bool {
	start := time.Now()
	if userID == "" {
		return false
	}
	ok, result := s.mode().exists(ctx, userID)
	s.metrics.observe(opExists, result, start, s.IsEnabled())
	return ok
}

// ListUserIDs enumerates the user identifiers that currently have a record.
// Order is store-defined. Returns an empty slice when disabled or on failure.
func (s *Service) ListUserIDs(ctx context.Context) []string {
	start := time.Now()
	ids, result := s.mode().list(ctx)
	s.metrics.observe(opList, result, start, s.IsEnabled())
	return ids
}

// prefix is shared by key and list; they must never diverge.
func (s *Service) prefix() string {
	return s.namespace + domain.KeySeparator
}

func (s *Service) key(userID string) string {
	return s.prefix() + userID
}

// mode resolves the operating state for one call.
func (s *Service) mode() mode {
	if s.IsEnabled() {
		return &enabled{svc: s, store: s.backend}
	}
	return disabled{logger: s.logger}
}
