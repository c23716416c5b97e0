// Package lock serializes work on sets of keys.
//
// A Coordinator owns one lock per key. Locks are created on first use and
// kept for the lifetime of the Coordinator, so every caller contending for
// a key contends on the same lock. Multi-key acquisition always proceeds
// in ascending key order, which rules out lock-order deadlocks; a bounded
// wait is the only liveness rule and there is no fairness guarantee.
package lock

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when a lock could not be acquired within the timeout.
var ErrBusy = errors.New("lock busy")

// Coordinator hands out per-key mutual exclusion.
// The zero value is not usable; use New.
type Coordinator[K cmp.Ordered] struct {
	mu    sync.Mutex
	locks map[K]*semaphore.Weighted
}

// New creates an empty Coordinator.
func New[K cmp.Ordered]() *Coordinator[K] {
	return &Coordinator[K]{locks: make(map[K]*semaphore.Weighted)}
}

// Len returns the number of lock instances created so far.
func (c *Coordinator[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}

func (c *Coordinator[K]) lockFor(key K) *semaphore.Weighted {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = semaphore.NewWeighted(1)
		c.locks[key] = l
	}
	return l
}

// Do runs fn while holding the locks of every key.
//
// Keys are de-duplicated and acquired in ascending order. If a lock is not
// obtained within timeout, the locks already held are released and ErrBusy
// is returned without running fn. A timeout <= 0 tries each lock once.
// Locks are released in reverse order on every exit path, including a panic
// in fn, which is propagated to the caller.
func (c *Coordinator[K]) Do(ctx context.Context, timeout time.Duration, fn func() error, keys ...K) error {
	ordered := slices.Compact(slices.Sorted(slices.Values(keys)))

	held := make([]*semaphore.Weighted, 0, len(ordered))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, key := range ordered {
		l := c.lockFor(key)
		if !acquire(waitCtx, l, timeout) {
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrBusy
		}
		held = append(held, l)
	}
	return fn()
}

func acquire(ctx context.Context, l *semaphore.Weighted, timeout time.Duration) bool {
	if l.TryAcquire(1) {
		return true
	}
	if timeout <= 0 {
		return false
	}
	return l.Acquire(ctx, 1) == nil
}

// ExecuteUnderLocks runs action while holding the locks of a and b and
// returns its result. The boolean is false when the locks could not be
// acquired in time, in which case action did not run.
func ExecuteUnderLocks[K cmp.Ordered, T any](
	ctx context.Context,
	c *Coordinator[K],
	a, b K,
	timeout time.Duration,
	action func() T,
) (T, bool) {
	var result T
	err := c.Do(ctx, timeout, func() error {
		result = action()
		return nil
	}, a, b)
	if err != nil {
		var zero T
		return zero, false
	}
	return result, true
}
