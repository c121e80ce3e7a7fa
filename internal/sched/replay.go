// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sched

import (
	"io"

	"github.com/petenewcomb/appmodel-go/internal/faultlog"
	"github.com/petenewcomb/appmodel-go/internal/stats"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FaultReader yields recorded fault times in minutes, returning io.EOF once
// exhausted.
type FaultReader interface {
	Next() (float64, error)
}

// Replay interrupts the application at recorded fault times instead of
// simulating nodes. Every recorded fault is one interrupt.
type Replay struct {
	reader FaultReader
	stats  *stats.Stats
	sink   faultlog.Sink
	logger *zap.Logger

	started  bool
	previous float64
}

var _ Interrupter = (*Replay)(nil)

func NewReplay(reader FaultReader, st *stats.Stats, opts ...Option) *Replay {
	o := buildOptions(opts)
	return &Replay{
		reader: reader,
		stats:  st,
		sink:   o.sink,
		logger: o.logger,
	}
}

func (r *Replay) Advance(elapsed float64) (float64, error) {
	next, err := r.reader.Next()
	if errors.Is(err, io.EOF) {
		return 0, errors.Wrapf(ErrReplayEnded, "at elapsed %.3f", elapsed)
	}
	if err != nil {
		return 0, err
	}
	if next < r.previous {
		return 0, errors.Wrapf(ErrNonMonotonic, "%.3f follows %.3f", next, r.previous)
	}
	// The first fault only opens the run. One extra fault is read past the
	// end of the run and counted in its place.
	if r.started {
		r.stats.Faults++
		r.stats.NodeFailures++
		r.stats.Repaired++
		r.sink.Fault(next)
		r.sink.Interrupt(r.previous, 1)
	}
	r.started = true
	r.previous = next
	if ce := r.logger.Check(zap.DebugLevel, "replayed interrupt"); ce != nil {
		ce.Write(zap.Float64("at", next), zap.Float64("elapsed", elapsed))
	}
	return next, nil
}

// CountDeadNodes reports no additional failures; every replayed fault is
// accounted as it is read.
func (r *Replay) CountDeadNodes(float64) (int, error) {
	return 0, nil
}
