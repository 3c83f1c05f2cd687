package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost", cfg.RedisHost)
	assert.Equal(t, 6379, cfg.RedisPort)
	assert.Equal(t, 10, cfg.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryBase)
	assert.Equal(t, 2*time.Second, cfg.RetryCeiling)
	assert.Equal(t, "sticky:session", cfg.Namespace)
	assert.Equal(t, 30*24*time.Hour, cfg.TTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_PERSISTENCE_ENABLED", "true")
	t.Setenv("REDIS_URL", "redis://:secret@cache:6380/2")
	t.Setenv("REDIS_MAX_RETRIES", "3")
	t.Setenv("REDIS_RETRY_CEILING", "500ms")
	t.Setenv("SESSION_NAMESPACE", "app:sessions")

	cfg, err := Load()
	require.NoError(t, err)

	rc := cfg.Redis()
	assert.True(t, rc.Enabled)
	assert.Equal(t, "redis://:secret@cache:6380/2", rc.URL)
	assert.Equal(t, 3, rc.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, rc.RetryCeiling)
	assert.Equal(t, "app:sessions", cfg.Namespace)

	opts, err := rc.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad int", "REDIS_PORT", "not-a-port"},
		{"bad bool", "SESSION_PERSISTENCE_ENABLED", "maybe"},
		{"bad duration", "REDIS_RETRY_BASE", "soon"},
		{"zero ttl", "SESSION_TTL", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
