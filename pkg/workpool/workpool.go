// Package workpool bounds the number of CPU-bound jobs, such as model builds
// and sampling, that run at the same time.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool runs at most Size jobs concurrently. The zero value is not usable; use New.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New creates a Pool with the given number of workers. A size of 0 or less uses
// runtime.GOMAXPROCS(0).
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

type result[T any] struct {
	value T
	err   error
}

// Do runs fn on the pool and waits for its result. If ctx ends first, Do returns
// ctx.Err() and stops waiting; fn, once started, still runs to completion and
// its result is discarded.
func Do[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	done := make(chan result[T], 1)
	go func() {
		defer p.sem.Release(1)
		v, err := fn()
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
