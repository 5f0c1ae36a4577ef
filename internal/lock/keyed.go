// Package lock serializes work on a single entity inside this process.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when the lock could not be taken in time. Callers
// should retry later.
var ErrBusy = errors.New("resource is busy, retry later")

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Keyed hands out one exclusive lock per key. Idle keys are dropped.
type Keyed struct {
	Timeout time.Duration

	mu    sync.Mutex
	locks map[string]*entry
}

func NewKeyed(timeout time.Duration) *Keyed {
	return &Keyed{Timeout: timeout, locks: make(map[string]*entry)}
}

// Acquire blocks until key is free, ctx is done or Timeout elapses. The
// returned func releases the lock and must be called exactly once.
func (k *Keyed) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	waitCtx := ctx
	if k.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, k.Timeout)
		defer cancel()
	}
	if err := e.sem.Acquire(waitCtx, 1); err != nil {
		k.drop(key, e)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			k.drop(key, e)
		})
	}, nil
}

func (k *Keyed) drop(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
