package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore wires a RedisStore against an in-process miniredis server.
func newTestStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client)
}

func TestRedisStore_SaveLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("Should round-trip a record including metadata", func(t *testing.T) {
		store := newTestStore(t)

		fetchedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		rec := DatafileRecord{
			Raw:       []byte(`{"version":"4","revision":"42"}`),
			Revision:  "42",
			ETag:      `"abc123"`,
			FetchedAt: fetchedAt,
		}

		require.NoError(t, store.Save(ctx, "sdk-key-1", rec))

		got, err := store.Load(ctx, "sdk-key-1")
		require.NoError(t, err)

		assert.Equal(t, rec.Raw, got.Raw)
		assert.Equal(t, "42", got.Revision)
		assert.Equal(t, `"abc123"`, got.ETag)
		assert.True(t, fetchedAt.Equal(got.FetchedAt))
	})

	t.Run("Should return ErrDatafileNotFound for an unknown key", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.Load(ctx, "nope")

		assert.ErrorIs(t, err, ErrDatafileNotFound)
	})

	t.Run("Should overwrite the previous record on save", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.Save(ctx, "sdk-key-1", DatafileRecord{
			Raw:      []byte(`{"revision":"1"}`),
			Revision: "1",
		}))
		require.NoError(t, store.Save(ctx, "sdk-key-1", DatafileRecord{
			Raw:      []byte(`{"revision":"2"}`),
			Revision: "2",
		}))

		got, err := store.Load(ctx, "sdk-key-1")
		require.NoError(t, err)
		assert.Equal(t, "2", got.Revision)
		assert.Equal(t, []byte(`{"revision":"2"}`), got.Raw)
	})

	t.Run("Should isolate records by SDK key", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.Save(ctx, "key-a", DatafileRecord{Raw: []byte("a"), Revision: "1"}))
		require.NoError(t, store.Save(ctx, "key-b", DatafileRecord{Raw: []byte("b"), Revision: "2"}))

		gotA, err := store.Load(ctx, "key-a")
		require.NoError(t, err)
		gotB, err := store.Load(ctx, "key-b")
		require.NoError(t, err)

		assert.Equal(t, []byte("a"), gotA.Raw)
		assert.Equal(t, []byte("b"), gotB.Raw)
	})
}

func TestRedisStore_HealthCheck(t *testing.T) {
	t.Run("Should succeed against a reachable server", func(t *testing.T) {
		store := newTestStore(t)

		assert.NoError(t, store.HealthCheck(context.Background()))
	})

	t.Run("Should fail when the server is gone", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		store := NewRedisStore(client)

		mr.Close()

		assert.Error(t, store.HealthCheck(context.Background()))
	})
}

func TestNewRedisStore(t *testing.T) {
	t.Run("Should panic on nil client", func(t *testing.T) {
		assert.Panics(t, func() {
			NewRedisStore(nil)
		})
	})
}
