package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers the outcome of a client-keyed request so that a
// retried request replays the original result instead of executing twice.
type IdempotencyStore interface {
	// Reserve claims the key for an in-flight request.
	// Returns false if the key is already reserved or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete stores the result reference for a reserved key
	Complete(ctx context.Context, key, result string, ttl time.Duration) error

	// Lookup returns the stored result. pending is true while the original
	// request has reserved the key but not completed it.
	Lookup(ctx context.Context, key string) (result string, pending bool, found bool, err error)

	// Release drops a reservation after a failed request
	Release(ctx context.Context, key string) error

	Close() error
}
