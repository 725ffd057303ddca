package lock

import (
	"context"
	"testing"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLocker(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	l := NewRedisLocker(client, 5*time.Second, 100*time.Millisecond, WithRetryInterval(10*time.Millisecond))

	release, err := l.Acquire(ctx, "bom:test:k")
	require.NoError(t, err)

	t.Run("second holder times out", func(t *testing.T) {
		_, err := l.Acquire(ctx, "bom:test:k")
		assert.ErrorIs(t, err, shared.ErrLockTimeout)
	})

	t.Run("other keys are free", func(t *testing.T) {
		other, err := l.Acquire(ctx, "bom:test:other")
		require.NoError(t, err)
		require.NoError(t, other(ctx))
	})

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))

	t.Run("reacquire after release", func(t *testing.T) {
		again, err := l.Acquire(ctx, "bom:test:k")
		require.NoError(t, err)
		require.NoError(t, again(ctx))
	})
}
