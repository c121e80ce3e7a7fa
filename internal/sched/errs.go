// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sched

import "github.com/petenewcomb/appmodel-go/internal/cerr"

const (
	ErrRedundancyDepth = cerr.Error("more than one redundant node per active node is not supported")
	ErrConfig          = cerr.Error("invalid scheduler parameters")
	ErrInvariant       = cerr.Error("scheduler invariant violated")
	ErrKeyCollision    = cerr.Error("could not draw a unique time of death")
	ErrReplayEnded     = cerr.Error("fault input ended before the application finished")
	ErrNonMonotonic    = cerr.Error("fault input times are not ascending")
)
