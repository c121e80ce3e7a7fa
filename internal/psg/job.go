// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package psg

import (
	"context"
	"slices"
	"sync"
)

// Job represents a single-threaded scatter-gather execution environment. It
// tracks tasks launched with [Gather.Scatter] across a set of [Pool] instances
// and provides [Job.GatherOne] and [Job.GatherAll] for gathering their
// results. [Job.Cancel] terminates the environment early.
//
// All calls to Scatter and the gathering methods must come from the same
// goroutine.
type Job struct {
	ctx           context.Context
	cancelFunc    context.CancelFunc
	pools         []*Pool
	inFlight      int
	gatherChannel chan boundGatherFunc
	wg            sync.WaitGroup
}

type boundGatherFunc = func(ctx context.Context) error

// NewJob creates a job bound to the given pools. The context passed to NewJob
// is the root of the context passed to every task function.
//
// Each call to NewJob should typically be followed by a deferred call to
// [Job.CancelAndWait] so that an early return leaves no task running.
func NewJob(
	ctx context.Context,
	pools ...*Pool,
) *Job {
	ctx, cancelFunc := context.WithCancel(ctx)
	j := &Job{
		cancelFunc:    cancelFunc,
		pools:         slices.Clone(pools),
		gatherChannel: make(chan boundGatherFunc),
	}
	j.ctx = context.WithValue(ctx, taskContextMarkerKey, j)
	for _, p := range j.pools {
		if p.job != nil {
			panic("pool was already registered")
		}
		p.job = j
	}
	return j
}

type taskContextMarkerType struct{}

var taskContextMarkerKey any = taskContextMarkerType{}

func (j *Job) isTaskContext(ctx context.Context) bool {
	return ctx.Value(taskContextMarkerKey) == j
}

// Cancel terminates any in-flight tasks and forfeits any ungathered results.
// Outstanding and later calls to Scatter and the gathering methods fail with
// [context.Canceled]. Calling Cancel more than once has no additional effect.
func (j *Job) Cancel() {
	j.cancelFunc()
}

// CancelAndWait cancels the job and waits for every launched task function to
// return.
func (j *Job) CancelAndWait() {
	j.Cancel()
	j.wg.Wait()
}

// GatherOne processes at most a single result from a task previously launched
// in one of the job's pools, blocking until one is available:
//
//   - true, nil: a task completed and was successfully gathered
//   - true, non-nil: a task completed but the gather function returned an error
//   - false, nil: there were no tasks in flight
//   - false, non-nil: the argument or job context was canceled
func (j *Job) GatherOne(ctx context.Context) (bool, error) {
	if j.inFlight == 0 {
		return false, nil
	}
	select {
	case gather := <-j.gatherChannel:
		return true, j.executeGather(ctx, gather)
	case <-ctx.Done():
		return false, ctx.Err()
	case <-j.ctx.Done():
		return false, j.ctx.Err()
	}
}

// GatherAll processes results until no tasks remain in flight. It returns nil
// unless a context is canceled or a gather function returns an error.
func (j *Job) GatherAll(ctx context.Context) error {
	for {
		ok, err := j.GatherOne(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

func (j *Job) executeGather(ctx context.Context, gather boundGatherFunc) error {
	// Decrement only after the gather function returns so that the count never
	// reaches zero while it may still scatter follow-up tasks.
	defer func() { j.inFlight-- }()
	return gather(ctx)
}
