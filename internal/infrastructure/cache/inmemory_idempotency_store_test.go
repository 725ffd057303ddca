package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_Lifecycle(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("unknown key", func(t *testing.T) {
		_, _, found, err := store.Lookup(ctx, "unknown")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("reserve then complete", func(t *testing.T) {
		ok, err := store.Reserve(ctx, "k1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Reserve(ctx, "k1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok, "reserved key cannot be claimed twice")

		_, pending, found, err := store.Lookup(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.True(t, pending)

		require.NoError(t, store.Complete(ctx, "k1", "tx-123", time.Hour))

		result, pending, found, err := store.Lookup(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.False(t, pending)
		assert.Equal(t, "tx-123", result)

		ok, err = store.Reserve(ctx, "k1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok, "completed key cannot be reserved")
	})

	t.Run("release frees a pending key", func(t *testing.T) {
		ok, err := store.Reserve(ctx, "k2", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, store.Release(ctx, "k2"))

		ok, err = store.Reserve(ctx, "k2", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("release keeps a completed key", func(t *testing.T) {
		require.NoError(t, store.Complete(ctx, "k3", "done", time.Hour))
		require.NoError(t, store.Release(ctx, "k3"))

		result, _, found, err := store.Lookup(ctx, "k3")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "done", result)
	})
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	ok, err := store.Reserve(ctx, "short", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Complete(ctx, "long", "r", time.Hour))

	time.Sleep(20 * time.Millisecond)

	_, _, found, err := store.Lookup(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err = store.Reserve(ctx, "short", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "expired key can be reserved again")

	require.NoError(t, store.Release(ctx, "short"))
	assert.Equal(t, 1, store.Size())

	store.cleanup()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentReserve(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const numGoroutines = 100

	results := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			ok, err := store.Reserve(ctx, "same-key", time.Hour)
			results <- err == nil && ok
		}()
	}

	won := 0
	for i := 0; i < numGoroutines; i++ {
		if <-results {
			won++
		}
	}
	assert.Equal(t, 1, won, "exactly one request should win the reservation")
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestIdempotencyStoreFactory_NoClient(t *testing.T) {
	store, err := NewIdempotencyStoreFactory(nil).CreateStore(context.Background())
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}
