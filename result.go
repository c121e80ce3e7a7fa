// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package appmodel

import (
	"time"

	"github.com/petenewcomb/appmodel-go/internal/stats"
)

type Stats = stats.Stats

type PhaseStats = stats.Phase

type Result struct {
	Config    Config
	Estimates Estimates
	// Elapsed is the simulated wall-clock time in minutes.
	Elapsed float64
	Stats   Stats

	// Replayed is set when interrupts came from a recorded fault log.
	Replayed bool
	Seed     uint64

	// Draw and read counters describe the cost of the run.
	FailureDraws     int
	ProbabilityDraws int
	ReplayRead       int
	ReplayAccepted   int
	Advances         int
	ModelTime        time.Duration
}

// Overhead is the percentage of elapsed time beyond the required work.
func (r *Result) Overhead() float64 {
	return 100/r.Config.WorkTime*r.Elapsed - 100
}

// MeasuredSystemMTBF is elapsed time per fault, or zero without faults.
func (r *Result) MeasuredSystemMTBF() float64 {
	if r.Stats.Faults == 0 {
		return 0
	}
	return r.Elapsed / float64(r.Stats.Faults)
}

// MeasuredAppMTBI is elapsed time per interrupt, or zero without
// interrupts.
func (r *Result) MeasuredAppMTBI() float64 {
	if r.Stats.Interrupts == 0 {
		return 0
	}
	return r.Elapsed / float64(r.Stats.Interrupts)
}

// FaultsPerInterrupt is the measured average, or zero without interrupts.
func (r *Result) FaultsPerInterrupt() float64 {
	if r.Stats.Interrupts == 0 {
		return 0
	}
	return float64(r.Stats.Faults) / float64(r.Stats.Interrupts)
}
