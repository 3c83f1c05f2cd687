package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/sticky/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRecordStoreContract runs a suite of tests to verify that a RecordStore implementation
// adheres to the defined interface contract.
func RunRecordStoreContract(t *testing.T, store RecordStore) {
	t.Helper()

	ctx := context.Background()
	prefix := "contract:" + time.Now().Format("20060102150405") + ":"
	key := prefix + "user"

	t.Run("Set and Get", func(t *testing.T) {
		err := store.Set(ctx, key, []byte(`{"userId":"user"}`), time.Hour)
		require.NoError(t, err, "Set should not return error")

		value, err := store.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, `{"userId":"user"}`, string(value))
	})

	t.Run("Set Overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, []byte("first"), time.Hour))
		require.NoError(t, store.Set(ctx, key, []byte("second"), time.Hour))

		value, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", string(value))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"missing")
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Exists", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, []byte("x"), time.Hour))

		ok, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Exists(ctx, prefix+"missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, []byte("x"), time.Hour))

		err := store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound, "Get after Delete should return ErrRecordNotFound")

		// Deleting twice is fine.
		assert.NoError(t, store.Delete(ctx, key))
	})

	t.Run("Keys", func(t *testing.T) {
		k1 := prefix + "u1"
		k2 := prefix + "u2"
		other := "contract-other:" + time.Now().Format("20060102150405")
		require.NoError(t, store.Set(ctx, k1, []byte("1"), time.Hour))
		require.NoError(t, store.Set(ctx, k2, []byte("2"), time.Hour))
		require.NoError(t, store.Set(ctx, other, []byte("3"), time.Hour))

		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
			_ = store.Delete(ctx, other)
		}()

		keys, err := store.Keys(ctx, prefix)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{k1, k2}, keys)
	})
}
