// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package phase advances simulated time through the restart, rework, work
// and checkpoint phases of an application up to a known interrupt.
//
// Every method takes the instant of the next interrupt and the current
// elapsed time and returns the new elapsed time. When a phase is cut short
// the returned elapsed time is exactly the interrupt instant.
package phase

import (
	"github.com/petenewcomb/appmodel-go/internal/cerr"
	"github.com/petenewcomb/appmodel-go/internal/stats"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const ErrNegativeDuration = cerr.Error("negative phase duration")

// Tolerance absorbs floating point residue when durations that should be
// zero are computed by subtraction.
const Tolerance = 1e-9

type Machine struct {
	RestartTime    float64
	CheckpointTime float64
	Tau            float64
	RequiredWork   float64

	Stats  *stats.Stats
	Logger *zap.Logger
}

func (m *Machine) debug(msg string, fields ...zap.Field) {
	if m.Logger == nil {
		return
	}
	if ce := m.Logger.Check(zap.DebugLevel, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (m *Machine) Restart(next, elapsed float64) (float64, error) {
	if next > elapsed+m.RestartTime {
		elapsed += m.RestartTime
		m.Stats.Restart.Succeed(m.RestartTime)
		m.debug("restart done", zap.Float64("elapsed", elapsed))
		return elapsed, nil
	}
	wasted := next - elapsed
	if wasted < -Tolerance {
		return elapsed, errors.Wrapf(ErrNegativeDuration, "restart at %v after interrupt at %v", elapsed, next)
	}
	m.Stats.Restart.Fail(max(wasted, 0))
	m.debug("restart interrupted", zap.Float64("elapsed", next), zap.Float64("wasted", wasted))
	return next, nil
}

// Rework redoes up to owed minutes of progress lost at the previous
// interrupt. The returned done is credited to the following Work call and
// only committed with its checkpoint.
func (m *Machine) Rework(next, elapsed, owed float64) (float64, float64, error) {
	if owed < 0 {
		return elapsed, 0, errors.Wrapf(ErrNegativeDuration, "rework owed %v", owed)
	}
	reach := next - elapsed
	if reach < -Tolerance {
		return elapsed, 0, errors.Wrapf(ErrNegativeDuration, "rework at %v after interrupt at %v", elapsed, next)
	}
	if reach <= owed {
		done := max(reach, 0)
		m.Stats.Rework.Fail(done)
		m.debug("rework interrupted", zap.Float64("elapsed", next), zap.Float64("done", done), zap.Float64("owed", owed))
		return next, done, nil
	}
	m.Stats.Rework.Succeed(owed)
	m.debug("rework done", zap.Float64("elapsed", elapsed+owed), zap.Float64("done", owed))
	return elapsed + owed, owed, nil
}

// Segment describes where Work picks up within a checkpoint interval.
type Segment struct {
	// Rework is progress already made in this interval and not yet saved.
	Rework float64
	// TimeLeft is the time until the next checkpoint is due.
	TimeLeft float64
}

type WorkResult struct {
	Elapsed float64
	// Rework is the unsaved progress owed after an interrupt.
	Rework float64
	Done   bool
}

// Work computes and checkpoints until the interrupt arrives or the required
// work has been committed.
func (m *Machine) Work(next, elapsed float64, seg Segment) (WorkResult, error) {
	st := m.Stats
	timeLeft := seg.TimeLeft
	first := true
	for {
		left := m.RequiredWork - st.CompletedWork
		if first {
			left -= seg.Rework
		}
		if left < 0 && left > -Tolerance {
			left = 0
		}
		reach := next - elapsed
		span := min(timeLeft, left)
		interrupted := reach <= span
		if interrupted {
			span = reach
		}
		if span < -Tolerance {
			return WorkResult{Elapsed: elapsed}, errors.Wrapf(ErrNegativeDuration,
				"work span %v at %v (time left %v, work left %v, interrupt %v)", span, elapsed, timeLeft, left, next)
		}
		span = max(span, 0)

		done := span
		if first {
			done += seg.Rework
			first = false
		}

		if interrupted {
			st.Work.Fail(span)
			m.debug("work interrupted", zap.Float64("elapsed", next), zap.Float64("unsaved", done))
			return WorkResult{Elapsed: next, Rework: done}, nil
		}
		elapsed += span

		if next > elapsed+m.CheckpointTime {
			st.Work.Succeed(span)
			st.CompletedWork += done
			if m.RequiredWork-st.CompletedWork <= 0 {
				m.debug("work complete", zap.Float64("elapsed", elapsed), zap.Float64("committed", st.CompletedWork))
				return WorkResult{Elapsed: elapsed, Done: true}, nil
			}
			elapsed += m.CheckpointTime
			st.Checkpoint.Succeed(m.CheckpointTime)
			m.debug("checkpoint written", zap.Float64("elapsed", elapsed), zap.Float64("committed", st.CompletedWork))
			timeLeft = m.Tau
			continue
		}

		// The interrupt arrives while the checkpoint is being written.
		consumed := next - elapsed
		st.Checkpoint.Fail(consumed)
		st.Work.Wasted += span
		m.debug("checkpoint interrupted", zap.Float64("elapsed", next), zap.Float64("unsaved", done))
		return WorkResult{Elapsed: next, Rework: done}, nil
	}
}
