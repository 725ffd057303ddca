// Package lock serializes stock writers per material. RedisLocker coordinates
// several service instances through Redis; LocalLocker covers a single
// process when no Redis server is configured.
package lock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Release gives a held lock back. Calling it more than once is harmless.
type Release func(ctx context.Context) error

// Locker hands out exclusive locks by key. Acquire waits a bounded time and
// returns shared.ErrLockTimeout when the lock stays taken; a cancelled ctx
// returns ctx.Err().
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// MaterialKey is the lock key for writes to one material
func MaterialKey(tenantID, materialID uuid.UUID) string {
	return fmt.Sprintf("bom:lock:material:%s:%s", tenantID, materialID)
}
