package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/sticky/pkg/adapters/redis"
	"github.com/stretchr/testify/require"
)

// fastConfig returns a config pointed at mr with timings shrunk for tests.
func fastConfig(mr *miniredis.Miniredis) redis.Config {
	return redis.Config{
		Enabled:        true,
		URL:            "redis://" + mr.Addr(),
		MaxRetries:     5,
		RetryBase:      5 * time.Millisecond,
		RetryCeiling:   20 * time.Millisecond,
		HealthInterval: 20 * time.Millisecond,
		PingTimeout:    200 * time.Millisecond,
	}
}

// newConnector starts miniredis and returns a ready connector against it.
func newConnector(t *testing.T) (*miniredis.Miniredis, *redis.Connector) {
	t.Helper()

	mr := miniredis.RunT(t)
	conn := redis.NewConnector(fastConfig(mr))
	conn.Initialize(context.Background())
	require.True(t, conn.IsReady(), "connector should be ready against miniredis")

	t.Cleanup(func() {
		conn.Shutdown(context.Background())
	})
	return mr, conn
}
