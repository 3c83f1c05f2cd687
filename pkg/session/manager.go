package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/sticky/internal/logging"
	"github.com/aretw0/sticky/pkg/domain"
	"github.com/aretw0/sticky/pkg/ports"
	"github.com/google/uuid"
)

// Persistence is the slice of persistence.Service the manager relies on.
type Persistence interface {
	Get(ctx context.Context, userID string) (*domain.Record, bool)
	Save(ctx context.Context, userID string, data domain.SessionData, fingerprint map[string]any, userAgent string)
}

// Live is a browser session owned by the caller between Create and Release.
// The caller mutates Data, Fingerprint and UserAgent while the session runs.
type Live struct {
	ID          string
	UserID      string
	Data        domain.SessionData
	Fingerprint map[string]any
	UserAgent   string

	// Restored is true when the session was seeded from a persisted record.
	Restored  bool
	StartedAt time.Time
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager creates and releases live sessions, restoring and saving
// per-user state through Persistence at those two points only.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store Persistence

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks, keyed by user ID

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	newID   func() string
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking of a user's create/release.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithIDGenerator replaces the random session ID source.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates a new session Manager on top of the given persistence.
func NewManager(store Persistence, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(), // Default to no-op
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a live session. With a user ID, persisted state for that
// user (if any) seeds cookies, storage, fingerprint and user agent.
func (m *Manager) Create(ctx context.Context, userID string) *Live {
	live := &Live{
		ID:        m.newID(),
		UserID:    userID,
		Data:      domain.SessionData{}.Normalize(),
		StartedAt: m.now(),
	}
	if userID == "" {
		return live
	}

	m.WithLock(ctx, userID, func(ctx context.Context) {
		rec, ok := m.store.Get(ctx, userID)
		if !ok {
			return
		}
		live.Data = rec.SessionData.Normalize()
		live.Fingerprint = rec.Fingerprint
		live.UserAgent = rec.UserAgent
		live.Restored = true
	})

	m.logger.Debug("session created",
		"session_id", live.ID,
		"user_id", userID,
		"restored", live.Restored,
	)
	return live
}

// Release hands the final snapshot of a live session to persistence.
// Anonymous sessions are not saved.
func (m *Manager) Release(ctx context.Context, live *Live) {
	if live == nil || live.UserID == "" {
		return
	}

	m.WithLock(ctx, live.UserID, func(ctx context.Context) {
		m.store.Save(ctx, live.UserID, live.Data, live.Fingerprint, live.UserAgent)
	})

	m.logger.Debug("session released",
		"session_id", live.ID,
		"user_id", live.UserID,
		"duration", m.now().Sub(live.StartedAt),
	)
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(userID) after unlocking.
func (m *Manager) acquire(userID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// WithLock runs fn while holding the per-user lock.
// A distributed lock failure is logged and fn runs anyway: coordination is
// best effort, like persistence itself.
func (m *Manager) WithLock(ctx context.Context, userID string, fn func(context.Context)) {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, userID, m.lockTTL)
		if err != nil {
			m.logger.Warn("Failed to acquire distributed lock, continuing without it",
				"user_id", userID,
				"err", err,
			)
		} else {
			defer func() {
				if err := unlock(ctx); err != nil {
					m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
						"user_id", userID,
						"err", err,
					)
				}
			}()
		}
	}

	fn(ctx)
}
