package persistence_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/sticky/internal/logging"
	"github.com/aretw0/sticky/pkg/adapters/memory"
	"github.com/aretw0/sticky/pkg/adapters/redis"
	"github.com/aretw0/sticky/pkg/codec"
	"github.com/aretw0/sticky/pkg/domain"
	"github.com/aretw0/sticky/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryService(t *testing.T, opts ...persistence.Option) (*persistence.Service, *memory.Store, *clock) {
	t.Helper()
	clk := newClock()
	store := memory.NewStore(memory.WithClock(clk.Now))
	opts = append([]persistence.Option{persistence.WithClock(clk.Now)}, opts...)
	return persistence.New(store, opts...), store, clk
}

func cookies(pairs ...string) domain.SessionData {
	data := domain.SessionData{}
	for i := 0; i+1 < len(pairs); i += 2 {
		data.Cookies = append(data.Cookies, domain.Cookie{Name: pairs[i], Value: pairs[i+1]})
	}
	return data
}

func TestService_SaveThenGet_RoundTrip(t *testing.T) {
	svc, _, clk := newMemoryService(t)
	ctx := context.Background()

	data := domain.SessionData{
		Cookies: []domain.Cookie{{Name: "a", Value: "1"}},
		LocalStorage: domain.OriginStorage{
			"https://example.com": {"token": "abc"},
		},
		SessionStorage: domain.OriginStorage{
			"https://example.com": {"step": "2"},
		},
	}
	fingerprint := map[string]any{"platform": "Win32", "screenWidth": float64(1280)}

	savedAt := clk.Now()
	svc.Save(ctx, "u1", data, fingerprint, "Mozilla/5.0 (X11)")

	clk.Advance(time.Minute)
	rec, ok := svc.Get(ctx, "u1")
	require.True(t, ok)

	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, data, rec.SessionData)
	assert.Equal(t, fingerprint, rec.Fingerprint)
	assert.Equal(t, "Mozilla/5.0 (X11)", rec.UserAgent)
	assert.True(t, rec.CreatedAt.Equal(savedAt))
	assert.False(t, rec.LastAccessed.Before(savedAt))
	assert.True(t, rec.LastAccessed.Equal(clk.Now()), "get bumps lastAccessed")
}

func TestService_Scenario_SingleCookie(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	ctx := context.Background()

	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")

	rec, ok := svc.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, []domain.Cookie{{Name: "a", Value: "1"}}, rec.SessionData.Cookies)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Nil(t, rec.Fingerprint)
	assert.Empty(t, rec.UserAgent)
}

func TestService_CreatedAtPreservedAcrossSaves(t *testing.T) {
	svc, _, clk := newMemoryService(t)
	ctx := context.Background()

	first := clk.Now()
	svc.Save(ctx, "u1", cookies("a", "A"), nil, "")

	clk.Advance(time.Hour)
	svc.Save(ctx, "u1", cookies("b", "B"), nil, "ua-2")

	rec, ok := svc.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, []domain.Cookie{{Name: "b", Value: "B"}}, rec.SessionData.Cookies, "second save wins")
	assert.Equal(t, "ua-2", rec.UserAgent)
	assert.True(t, rec.CreatedAt.Equal(first), "createdAt comes from the first save")
	assert.True(t, rec.LastAccessed.Equal(clk.Now()))
}

func TestService_GetUnknownUser(t *testing.T) {
	svc, _, _ := newMemoryService(t)

	rec, ok := svc.Get(context.Background(), "nobody")
	assert.False(t, ok)
	assert.Nil(t, rec)
}

func TestService_DeleteThenGet(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	ctx := context.Background()

	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")
	require.True(t, svc.Exists(ctx, "u1"))

	svc.Delete(ctx, "u1")

	_, ok := svc.Get(ctx, "u1")
	assert.False(t, ok)
	assert.False(t, svc.Exists(ctx, "u1"))

	// Deleting again is harmless.
	assert.NotPanics(t, func() { svc.Delete(ctx, "u1") })
}

func TestService_ExistsMatchesGet(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	ctx := context.Background()

	svc.Save(ctx, "present", cookies("a", "1"), nil, "")

	for _, id := range []string{"present", "absent"} {
		exists := svc.Exists(ctx, id)
		_, found := svc.Get(ctx, id)
		assert.Equal(t, found, exists, "exists/get disagree for %q", id)
	}
}

func TestService_ListUserIDs(t *testing.T) {
	svc, store, _ := newMemoryService(t)
	ctx := context.Background()

	assert.Empty(t, svc.ListUserIDs(ctx))

	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")
	svc.Save(ctx, "u2", cookies("b", "2"), nil, "")
	// Keys from other namespaces are ignored.
	require.NoError(t, store.Set(ctx, "other:u3", []byte("{}"), 0))

	assert.ElementsMatch(t, []string{"u1", "u2"}, svc.ListUserIDs(ctx))
}

func TestService_KeyLayout(t *testing.T) {
	svc, store, _ := newMemoryService(t, persistence.WithNamespace("custom:ns"))
	ctx := context.Background()

	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")

	ok, err := store.Exists(ctx, "custom:ns:u1")
	require.NoError(t, err)
	assert.True(t, ok, "key must be <namespace>:<userId>")
	assert.Equal(t, []string{"u1"}, svc.ListUserIDs(ctx))
}

func TestService_SlidingTTL(t *testing.T) {
	svc, store, clk := newMemoryService(t)
	ctx := context.Background()

	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")
	assert.Equal(t, domain.DefaultTTL, store.TTL("sticky:session:u1"))

	// Each read inside the window restarts it.
	for i := 0; i < 3; i++ {
		clk.Advance(domain.DefaultTTL - time.Hour)
		_, ok := svc.Get(ctx, "u1")
		require.True(t, ok, "read %d should land inside the window", i)
		assert.Equal(t, domain.DefaultTTL, store.TTL("sticky:session:u1"))
	}

	// No access for a full window: gone.
	clk.Advance(domain.DefaultTTL)
	_, ok := svc.Get(ctx, "u1")
	assert.False(t, ok)
	assert.Empty(t, svc.ListUserIDs(ctx))
}

func TestService_CustomTTL(t *testing.T) {
	svc, store, _ := newMemoryService(t, persistence.WithTTL(time.Hour))

	svc.Save(context.Background(), "u1", cookies("a", "1"), nil, "")
	assert.Equal(t, time.Hour, store.TTL("sticky:session:u1"))
}

func TestService_MalformedRecordIsAbsent(t *testing.T) {
	svc, store, clk := newMemoryService(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sticky:session:u1", []byte("not-json"), 0))

	_, ok := svc.Get(ctx, "u1")
	assert.False(t, ok)
	assert.True(t, svc.Exists(ctx, "u1"), "exists checks key presence only")

	// A save over a malformed value starts fresh.
	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")
	rec, ok := svc.Get(ctx, "u1")
	require.True(t, ok)
	assert.True(t, rec.CreatedAt.Equal(clk.Now()))
}

func TestService_ForeignRecordUnderKeyIsAbsent(t *testing.T) {
	svc, store, clk := newMemoryService(t)
	ctx := context.Background()

	svc.Save(ctx, "u2", cookies("owner", "u2"), nil, "UA/u2")
	u2Before, err := store.Get(ctx, "sticky:session:u2")
	require.NoError(t, err)

	foreign, err := codec.Encode(&domain.Record{
		UserID:       "u2",
		SessionData:  cookies("leak", "x"),
		LastAccessed: clk.Now().Add(-48 * time.Hour),
		CreatedAt:    clk.Now().Add(-72 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "sticky:session:u1", foreign, time.Hour))

	rec, ok := svc.Get(ctx, "u1")
	assert.False(t, ok)
	assert.Nil(t, rec)

	u2After, err := store.Get(ctx, "sticky:session:u2")
	require.NoError(t, err)
	assert.Equal(t, u2Before, u2After, "another user's record must not be rewritten")
	assert.ElementsMatch(t, []string{"u1", "u2"}, svc.ListUserIDs(ctx))

	// Saving over it starts a fresh record owned by u1.
	svc.Save(ctx, "u1", cookies("sid", "1"), nil, "")
	rec, ok = svc.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, "u1", rec.UserID)
	assert.True(t, rec.CreatedAt.Equal(clk.Now()))
	assert.Equal(t, domain.DefaultTTL, store.TTL("sticky:session:u1"))
}

func TestService_Disabled(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewWithWriter(&logs, slog.LevelDebug)

	svc, store, _ := newMemoryService(t, persistence.WithLogger(logger))
	ctx := context.Background()

	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")
	store.SetReady(false)

	assert.False(t, svc.IsEnabled())
	assert.NotPanics(t, func() {
		svc.Save(ctx, "u2", cookies("b", "2"), nil, "")
		svc.Delete(ctx, "u1")
	})

	_, ok := svc.Get(ctx, "u1")
	assert.False(t, ok)
	assert.False(t, svc.Exists(ctx, "u1"))
	ids := svc.ListUserIDs(ctx)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	assert.NotContains(t, logs.String(), "level=ERROR", "disabled is not an error")

	// Disabled calls never touched the store: u1 survived, u2 never landed.
	store.SetReady(true)
	assert.True(t, svc.IsEnabled())
	assert.True(t, svc.Exists(ctx, "u1"))
	assert.False(t, svc.Exists(ctx, "u2"))
}

func TestService_NilBackend(t *testing.T) {
	svc := persistence.New(nil)
	ctx := context.Background()

	assert.False(t, svc.IsEnabled())
	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")
	_, ok := svc.Get(ctx, "u1")
	assert.False(t, ok)
	assert.Empty(t, svc.ListUserIDs(ctx))
}

func TestService_TransientFailuresAreSwallowed(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewWithWriter(&logs, slog.LevelDebug)

	svc, store, _ := newMemoryService(t, persistence.WithLogger(logger))
	ctx := context.Background()
	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")

	store.FailWith(errors.New("connection reset"))
	assert.True(t, svc.IsEnabled(), "store is up but failing")

	assert.NotPanics(t, func() {
		svc.Save(ctx, "u1", cookies("b", "2"), nil, "")
		svc.Delete(ctx, "u1")
	})
	_, ok := svc.Get(ctx, "u1")
	assert.False(t, ok)
	assert.False(t, svc.Exists(ctx, "u1"))
	assert.Empty(t, svc.ListUserIDs(ctx))

	assert.Contains(t, logs.String(), "user_id=u1", "failures are logged with the user id")
	assert.Contains(t, logs.String(), "connection reset")

	store.FailWith(nil)
	rec, ok := svc.Get(ctx, "u1")
	require.True(t, ok, "failed save and delete left the record untouched")
	assert.Equal(t, "1", rec.SessionData.Cookies[0].Value)
}

func TestService_EmptyUserID(t *testing.T) {
	svc, store, _ := newMemoryService(t)
	ctx := context.Background()

	svc.Save(ctx, "", cookies("a", "1"), nil, "")
	_, ok := svc.Get(ctx, "")
	assert.False(t, ok)
	assert.False(t, svc.Exists(ctx, ""))

	keys, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestService_ConcurrentUsers(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", i)
			svc.Save(ctx, id, cookies("n", id), nil, "")
			rec, ok := svc.Get(ctx, id)
			if assert.True(t, ok) {
				assert.Equal(t, id, rec.SessionData.Cookies[0].Value)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, svc.ListUserIDs(ctx), 20)
}

// Redis-backed scenarios, exercising real expiry and SCAN.

func newRedisService(t *testing.T) (*persistence.Service, *miniredis.Miniredis, *redis.Connector) {
	t.Helper()

	mr := miniredis.RunT(t)
	conn := redis.NewConnector(redis.Config{
		Enabled:        true,
		URL:            "redis://" + mr.Addr(),
		MaxRetries:     2,
		RetryBase:      time.Millisecond,
		RetryCeiling:   5 * time.Millisecond,
		HealthInterval: 20 * time.Millisecond,
		PingTimeout:    200 * time.Millisecond,
	})
	conn.Initialize(context.Background())
	require.True(t, conn.IsReady())
	t.Cleanup(func() { conn.Shutdown(context.Background()) })

	return persistence.New(redis.NewStore(conn)), mr, conn
}

func TestService_Redis_Scenarios(t *testing.T) {
	svc, mr, _ := newRedisService(t)
	ctx := context.Background()

	svc.Save(ctx, "u1", cookies("a", "A"), nil, "")
	first, ok := svc.Get(ctx, "u1")
	require.True(t, ok)

	svc.Save(ctx, "u1", cookies("b", "B"), map[string]any{"platform": "MacIntel"}, "ua")
	svc.Save(ctx, "u2", cookies("c", "C"), nil, "")

	rec, ok := svc.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, []domain.Cookie{{Name: "b", Value: "B"}}, rec.SessionData.Cookies)
	assert.True(t, rec.CreatedAt.Equal(first.CreatedAt))

	assert.ElementsMatch(t, []string{"u1", "u2"}, svc.ListUserIDs(ctx))
	assert.True(t, mr.Exists("sticky:session:u1"))
	assert.Equal(t, domain.DefaultTTL, mr.TTL("sticky:session:u1"))
}

func TestService_Redis_RefreshOnRead(t *testing.T) {
	svc, mr, _ := newRedisService(t)
	ctx := context.Background()

	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")

	mr.FastForward(10 * 24 * time.Hour)
	assert.Equal(t, 20*24*time.Hour, mr.TTL("sticky:session:u1"))

	_, ok := svc.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, domain.DefaultTTL, mr.TTL("sticky:session:u1"), "get resets the TTL")

	mr.FastForward(domain.DefaultTTL + time.Second)
	_, ok = svc.Get(ctx, "u1")
	assert.False(t, ok, "record expires after a full window without access")
}

func TestService_Redis_StoreUnavailable(t *testing.T) {
	svc, mr, conn := newRedisService(t)
	ctx := context.Background()

	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")

	mr.Close()
	require.Eventually(t, func() bool { return !conn.IsReady() }, 3*time.Second, 10*time.Millisecond)

	assert.False(t, svc.IsEnabled())
	assert.NotPanics(t, func() {
		svc.Save(ctx, "u1", cookies("b", "2"), nil, "")
		svc.Delete(ctx, "u1")
	})
	_, ok := svc.Get(ctx, "u1")
	assert.False(t, ok)
	assert.False(t, svc.Exists(ctx, "u1"))
	assert.Empty(t, svc.ListUserIDs(ctx))
}

func TestService_Redis_DisabledByConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	conn := redis.NewConnector(redis.Config{Enabled: false, URL: "redis://" + mr.Addr()})
	conn.Initialize(context.Background())
	svc := persistence.New(redis.NewStore(conn))
	ctx := context.Background()

	svc.Save(ctx, "u1", cookies("a", "1"), nil, "")

	assert.False(t, svc.IsEnabled())
	assert.Empty(t, mr.Keys(), "nothing is written while disabled")
}
