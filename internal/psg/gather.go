// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package psg

import (
	"context"
)

// A GatherFunc processes the result of a completed [TaskFunc]. It runs on the
// goroutine that owns the job, within a call to [Gather.Scatter],
// [Job.GatherOne] or [Job.GatherAll]. A non-nil return stops that call and is
// returned from it. Unlike a TaskFunc, a GatherFunc may call Scatter.
type GatherFunc[T any] = func(context.Context, T, error) error

type Gather[T any] struct {
	gatherFunc GatherFunc[T]
}

func NewGather[T any](
	gatherFunc GatherFunc[T],
) *Gather[T] {
	if gatherFunc == nil {
		panic("gather function must be non-nil")
	}
	return &Gather[T]{
		gatherFunc: gatherFunc,
	}
}

// Scatter runs taskFunc in a new goroutine within pool and arranges for its
// result to be passed to the Gather's function by a later gathering call. If
// the pool is full, Scatter gathers completed tasks until a slot frees up.
//
// Scatter returns a non-nil error if a context is canceled or if a gather
// function it ran returned an error. In that case taskFunc was not launched.
func (g *Gather[T]) Scatter(
	ctx context.Context,
	pool *Pool,
	taskFunc TaskFunc[T],
) error {
	if taskFunc == nil {
		panic("task function must be non-nil")
	}
	j := pool.job
	return pool.launch(ctx, func(ctx context.Context) {
		// Skip tasks whose job was canceled before they started.
		if ctx.Err() != nil {
			return
		}

		value, err := taskFunc(ctx)

		// Free the slot before posting so that the gather function may
		// scatter into the same pool.
		pool.decrementInFlight()

		gather := func(ctx context.Context) error {
			return g.gatherFunc(ctx, value, err)
		}
		select {
		case j.gatherChannel <- gather:
		case <-j.ctx.Done():
		}
	})
}
