// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package psg

import (
	"context"
)

// A TaskFunc represents a task to be executed asynchronously within the context
// of a [Pool]. Inputs are captured by closure. The provided context is
// canceled when the job is, and should be respected.
//
// Each TaskFunc runs in its own goroutine and must therefore be thread-safe.
// A TaskFunc must not call [Gather.Scatter] for its own job; scatter follow-up
// work from the associated [GatherFunc] instead.
type TaskFunc[T any] = func(context.Context) (T, error)

type boundTaskFunc func(ctx context.Context)
