package lock

import (
	"context"
	"sync"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
)

type keyedMutex struct {
	sem  chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex. Entries are dropped once no
// goroutine holds or waits for them, so the map only grows with contention.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedMutex
	wait  time.Duration
}

// NewLocalLocker creates a LocalLocker that waits at most wait for a key
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		locks: make(map[string]*keyedMutex),
		wait:  wait,
	}
}

// Acquire takes the lock for key
func (l *LocalLocker) Acquire(ctx context.Context, key string) (Release, error) {
	km := l.ref(key)

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	select {
	case km.sem <- struct{}{}:
	case <-waitCtx.Done():
		l.unref(key, km)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, shared.ErrLockTimeout
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-km.sem
			l.unref(key, km)
		})
		return nil
	}, nil
}

// Len returns how many keys are currently held or waited on
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *LocalLocker) ref(key string) *keyedMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	km, ok := l.locks[key]
	if !ok {
		km = &keyedMutex{sem: make(chan struct{}, 1)}
		l.locks[key] = km
	}
	km.refs++
	return km
}

func (l *LocalLocker) unref(key string, km *keyedMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	km.refs--
	if km.refs == 0 {
		delete(l.locks, key)
	}
}

var _ Locker = (*LocalLocker)(nil)
