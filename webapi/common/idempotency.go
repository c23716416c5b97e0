package common

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// IdempotencyHeader names the request header carrying the client's key.
const IdempotencyHeader = "Idempotency-Key"

// ErrIdempotencyKeyReused is returned when a key comes back with a
// different request than the one it was first used for.
var ErrIdempotencyKeyReused = errors.New("idempotency key was already used for a different request")

type processedEntry struct {
	result      any
	fingerprint string
	at          time.Time
}

// IdempotencyTracker makes commands keyed by an idempotency key run at
// most once successfully. Concurrent calls with one key share a single
// execution, and a successful result is replayed to later calls until it
// is older than the tracker's TTL. Failures are never remembered, so a
// failed command may be retried with the same key.
//
// Every key is bound to the fingerprint of the request that first used
// it. A call presenting the same key with another fingerprint gets
// ErrIdempotencyKeyReused and its fn is not run.
type IdempotencyTracker struct {
	processed sync.Map
	inflight  singleflight.Group
	ttl       time.Duration
	stores    atomic.Int64
	now       func() time.Time
	logger    *slog.Logger
}

const sweepEvery = 1024

// NewIdempotencyTracker creates a tracker remembering results for ttl.
func NewIdempotencyTracker(ttl time.Duration, logger *slog.Logger) *IdempotencyTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyTracker{ttl: ttl, now: time.Now, logger: logger}
}

// Do runs fn once for key. fingerprint identifies the request behind the
// key. replayed reports whether the result came from an earlier or
// concurrent execution rather than from this call's fn. An empty key runs
// fn without any tracking.
func (t *IdempotencyTracker) Do(key, fingerprint string, fn func() (any, error)) (result any, replayed bool, err error) {
	if key == "" {
		result, err = fn()
		return result, false, err
	}
	log := t.logger.With("idempotency_key", key)

	if entry, ok := t.load(key); ok {
		if entry.fingerprint != fingerprint {
			log.Warn("Idempotency key reused for a different request")
			return nil, false, ErrIdempotencyKeyReused
		}
		log.Info("🔁 [SKIP] Request already processed")
		return entry.result, true, nil
	}

	executed := false
	v, err, _ := t.inflight.Do(key, func() (any, error) {
		// Another call may have completed while we waited.
		if entry, ok := t.load(key); ok {
			return entry, nil
		}
		executed = true
		res, err := fn()
		entry := processedEntry{result: res, fingerprint: fingerprint, at: t.now()}
		if err != nil {
			return entry, err
		}
		t.store(key, entry)
		return entry, nil
	})
	// Waiters receive the entry of whichever call ran, even on failure.
	if entry, ok := v.(processedEntry); ok && entry.fingerprint != fingerprint {
		log.Warn("Idempotency key reused for a different request")
		return nil, false, ErrIdempotencyKeyReused
	}
	if err != nil {
		return nil, !executed, err
	}
	return v.(processedEntry).result, !executed, nil
}

// Delete forgets the result stored for key.
func (t *IdempotencyTracker) Delete(key string) {
	t.processed.Delete(key)
}

func (t *IdempotencyTracker) load(key string) (processedEntry, bool) {
	v, ok := t.processed.Load(key)
	if !ok {
		return processedEntry{}, false
	}
	entry := v.(processedEntry)
	if t.ttl > 0 && t.now().Sub(entry.at) > t.ttl {
		t.processed.Delete(key)
		return processedEntry{}, false
	}
	return entry, true
}

func (t *IdempotencyTracker) store(key string, entry processedEntry) {
	now := entry.at
	t.processed.Store(key, entry)
	if t.ttl > 0 && t.stores.Add(1)%sweepEvery == 0 {
		t.processed.Range(func(k, v any) bool {
			if now.Sub(v.(processedEntry).at) > t.ttl {
				t.processed.Delete(k)
			}
			return true
		})
	}
}
