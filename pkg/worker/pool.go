// Package worker bounds how many commands execute at once.
//
// Every account and transfer command served over HTTP runs through a Pool,
// so a burst of requests queues for a slot instead of fanning out into
// unbounded concurrent lock contention.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrTaskPanicked is returned when a submitted task panics.
	ErrTaskPanicked = errors.New("worker: task panicked")

	// ErrPoolClosed is returned by Submit after Close.
	ErrPoolClosed = errors.New("worker: pool closed")
)

// Pool runs tasks with at most Size of them in flight.
type Pool struct {
	sem      *semaphore.Weighted
	size     int64
	inFlight atomic.Int64
	closed   atomic.Bool
	logger   *slog.Logger
}

// NewPool creates a pool with size slots. size must be positive.
func NewPool(size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		panic(fmt.Sprintf("worker: pool size must be positive, got %d", size))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   int64(size),
		logger: logger,
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return int(p.size)
}

// InFlight returns the number of tasks currently running.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Submit waits for a free slot, runs fn in it and returns fn's error.
// If ctx is done before a slot frees up, fn does not run and ctx.Err() is
// returned. A panic in fn is recovered and reported as ErrTaskPanicked.
// A call still queued when Close starts gets ErrPoolClosed once its slot
// frees up, and fn does not run.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if p.closed.Load() {
		p.sem.Release(1)
		return ErrPoolClosed
	}
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.sem.Release(1)
	}()

	defer func() {
		if recovered := recover(); recovered != nil {
			p.logger.Error("Task panicked",
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, recovered)
		}
	}()
	return fn(ctx)
}

// Run submits fn to p and returns its result.
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Submit(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Close stops accepting tasks and waits for running ones to finish or for
// ctx to be done.
func (p *Pool) Close(ctx context.Context) error {
	p.closed.Store(true)
	if err := p.sem.Acquire(ctx, p.size); err != nil {
		return fmt.Errorf("worker: waiting for %d tasks: %w", p.InFlight(), err)
	}
	p.sem.Release(p.size)
	return nil
}
