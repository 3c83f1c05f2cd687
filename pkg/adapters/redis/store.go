package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/sticky/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// ErrNotConnected is returned when the connector has no client.
var ErrNotConnected = errors.New("redis client not connected")

// Store implements ports.Backend on top of a Connector.
type Store struct {
	conn      *Connector
	scanCount int64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithScanCount sets the COUNT hint used when scanning keys.
func WithScanCount(count int64) StoreOption {
	return func(s *Store) {
		s.scanCount = count
	}
}

// NewStore creates a Redis store sharing the connector's client.
func NewStore(conn *Connector, opts ...StoreOption) *Store {
	store := &Store{
		conn:      conn,
		scanCount: 100,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// IsReady delegates to the connector.
func (s *Store) IsReady() bool {
	return s.conn.IsReady()
}

func (s *Store) client() (*backend.Client, error) {
	client := s.conn.Client()
	if client == nil {
		return nil, ErrNotConnected
	}
	return client, nil
}

// Get retrieves the raw value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	client, err := s.client()
	if err != nil {
		return nil, err
	}

	val, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// Set writes the value and its expiry in a single SET ... PX command.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	client, err := s.client()
	if err != nil {
		return err
	}

	if err := client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	client, err := s.client()
	if err != nil {
		return err
	}

	if err := client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Exists reports whether the key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	client, err := s.client()
	if err != nil {
		return false, err
	}

	n, err := client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key in redis: %w", err)
	}
	return n > 0, nil
}

// Keys walks the keyspace with SCAN (never KEYS) and returns every key
// under prefix. SCAN may yield a key more than once; duplicates are dropped.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	client, err := s.client()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	keys := make([]string, 0)

	iter := client.Scan(ctx, 0, escapeGlob(prefix)+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan redis keys: %w", err)
	}
	return keys, nil
}

// Close shuts the underlying connector down.
func (s *Store) Close(ctx context.Context) {
	s.conn.Shutdown(ctx)
}

var globReplacer = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// escapeGlob quotes the characters SCAN MATCH treats as glob syntax.
func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
