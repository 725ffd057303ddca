package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker obtains locks through redislock so that every instance sharing
// the Redis server sees the same holder. A lock expires on its own after ttl
// if the holder dies without releasing it.
type RedisLocker struct {
	client     *redislock.Client
	ttl        time.Duration
	wait       time.Duration
	retryEvery time.Duration
	logger     *zap.Logger
}

// RedisLockerOption configures a RedisLocker
type RedisLockerOption func(*RedisLocker)

// WithRetryInterval sets how often a waiting writer polls for the lock
func WithRetryInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.retryEvery = d
		}
	}
}

// WithLogger sets the logger used for release failures
func WithLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisLocker creates a RedisLocker on an existing client
func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:     redislock.New(client),
		ttl:        ttl,
		wait:       wait,
		retryEvery: 25 * time.Millisecond,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire obtains the lock for key, polling until the wait timeout
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	held, err := l.client.Obtain(waitCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.retryEvery),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
			return nil, shared.ErrLockTimeout
		}
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var releaseErr error
		once.Do(func() {
			// The caller's ctx may already be cancelled; releasing must still happen.
			relCtx, relCancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer relCancel()
			if err := held.Release(relCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
				releaseErr = err
			}
		})
		return releaseErr
	}, nil
}

var _ Locker = (*RedisLocker)(nil)
