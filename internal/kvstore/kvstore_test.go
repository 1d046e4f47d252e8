package kvstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *RedisStore {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, "conjugo")
}

func TestStores_RoundTrip(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  setupRedis(t),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, "usage:u1", []byte(`{"total_requests":1}`)))
			got, err := store.Get(ctx, "usage:u1")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"total_requests":1}`), got)

			// overwrite
			require.NoError(t, store.Set(ctx, "usage:u1", []byte(`{"total_requests":2}`)))
			got, err = store.Get(ctx, "usage:u1")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"total_requests":2}`), got)

			require.NoError(t, store.Delete(ctx, "usage:u1"))
			_, err = store.Get(ctx, "usage:u1")
			assert.ErrorIs(t, err, ErrNotFound)

			// deleting a missing key is not an error
			assert.NoError(t, store.Delete(ctx, "usage:u1"))
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	val := []byte("original")
	require.NoError(t, store.Set(ctx, "k", val))
	val[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}
