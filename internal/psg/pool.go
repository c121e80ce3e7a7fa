// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package psg

import (
	"context"
	"sync/atomic"
)

// A Pool defines a virtual set of task execution slots. A Pool must be bound
// to a [Job] with [NewJob] before a task can be launched into it.
type Pool struct {
	limit    int
	job      *Job
	inFlight atomic.Int64
}

// NewPool creates a pool that runs at most limit tasks at a time. A negative
// limit means no limit. NewPool panics if limit is zero, since no task could
// ever be launched.
func NewPool(limit int) *Pool {
	if limit == 0 {
		panic("pool limit must be non-zero")
	}
	return &Pool{limit: limit}
}

func (p *Pool) launch(ctx context.Context, task boundTaskFunc) error {
	j := p.job
	if j == nil {
		panic("pool not bound to a job")
	}

	if j.isTaskContext(ctx) {
		// Scattering from a task may deadlock once the limit is reached.
		panic("Scatter called from within TaskFunc; move call to GatherFunc instead")
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := j.ctx.Err(); err != nil {
		return err
	}

	// Gather completed tasks until a slot frees up. The pool count never
	// exceeds the job count, so an empty job always leaves room.
	for !p.incrementInFlightIfUnderLimit() {
		if _, err := j.GatherOne(ctx); err != nil {
			return err
		}
	}

	j.inFlight++
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		task(j.ctx)
	}()
	return nil
}

func (p *Pool) incrementInFlightIfUnderLimit() bool {
	if p.limit < 0 {
		p.inFlight.Add(1)
		return true
	}
	for {
		n := p.inFlight.Load()
		if n >= int64(p.limit) {
			return false
		}
		if p.inFlight.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (p *Pool) decrementInFlight() {
	if p.inFlight.Add(-1) < 0 {
		panic("pool in-flight count went negative")
	}
}
