package middleware

import (
	"context"
	"time"

	"github.com/aretw0/sticky/pkg/ports"
)

type timeoutMiddleware struct {
	next    ports.Backend
	timeout time.Duration
}

// NewTimeoutMiddleware bounds every store round-trip with timeout, so a hung
// store cannot hold a caller (or shutdown) indefinitely. A non-positive
// timeout disables the middleware.
func NewTimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next ports.Backend) ports.Backend {
		if timeout <= 0 {
			return next
		}
		return &timeoutMiddleware{next: next, timeout: timeout}
	}
}

func (m *timeoutMiddleware) IsReady() bool {
	return m.next.IsReady()
}

func (m *timeoutMiddleware) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.next.Get(ctx, key)
}

func (m *timeoutMiddleware) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.next.Set(ctx, key, value, ttl)
}

func (m *timeoutMiddleware) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.next.Delete(ctx, key)
}

func (m *timeoutMiddleware) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.next.Exists(ctx, key)
}

func (m *timeoutMiddleware) Keys(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.next.Keys(ctx, prefix)
}
