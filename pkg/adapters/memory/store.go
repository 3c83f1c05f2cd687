package memory

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/sticky/pkg/domain"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Store implements ports.Backend in memory, emulating key expiry.
// Safe for concurrent use.
type Store struct {
	data map[string]entry
	mu   sync.RWMutex

	now   func() time.Time
	ready atomic.Bool

	errMu sync.RWMutex
	err   error
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, letting tests move time forward.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory store that is ready.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]entry),
		now:  time.Now,
	}
	s.ready.Store(true)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsReady reports the readiness flag set with SetReady (true by default).
func (s *Store) IsReady() bool {
	return s.ready.Load()
}

// SetReady simulates the store going away or coming back.
func (s *Store) SetReady(ready bool) {
	s.ready.Store(ready)
}

// FailWith makes every subsequent operation return err until called with nil.
func (s *Store) FailWith(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.err = err
}

func (s *Store) failure() error {
	s.errMu.RLock()
	defer s.errMu.RUnlock()
	return s.err
}

// TTL returns the remaining lifetime of key, or 0 when it is missing or has no expiry.
func (s *Store) TTL(key string) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || e.expiresAt.IsZero() {
		return 0
	}
	return e.expiresAt.Sub(s.now())
}

// lookup returns the live entry; caller holds at least a read lock.
func (s *Store) lookup(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		return entry{}, false
	}
	return e, true
}

// Get retrieves a copy of the value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.failure(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.lookup(key)
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	// Copy on read so caller can't mutate store state directly
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a copy of the value and arms its expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.failure(); err != nil {
		return err
	}

	e := entry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = e
	return nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.failure(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Exists reports whether a live value is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.failure(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lookup(key)
	return ok, nil
}

// Keys returns live keys under prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := s.failure(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, ok := s.lookup(k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
