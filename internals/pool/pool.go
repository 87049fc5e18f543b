// Package pool bounds how many blocking operations run at the same time.
// Handlers run one goroutine per update; everything that can stall (metadata
// probes, downloads, file I/O) goes through a pool permit.
package pool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

const DefaultSize = 4

type Pool struct {
	sem *semaphore.Weighted
}

func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Outcome is the result of a submitted task.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Submit runs f once a permit is available and delivers the outcome on the
// returned channel. The channel is buffered, so the task goroutine never
// leaks even if the caller walks away. Waiting for a permit respects ctx.
func Submit[T any](ctx context.Context, p *Pool, f func(ctx context.Context) (T, error)) <-chan Outcome[T] {
	out := make(chan Outcome[T], 1)
	go func() {
		defer close(out)
		if err := p.sem.Acquire(ctx, 1); err != nil {
			out <- Outcome[T]{Err: err}
			return
		}
		defer p.sem.Release(1)
		v, err := f(ctx)
		out <- Outcome[T]{Value: v, Err: err}
	}()
	return out
}
