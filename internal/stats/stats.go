// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package stats accumulates the time and event counts of a single simulated
// run. Every engine receives the same *Stats explicitly.
package stats

// Phase accumulates one kind of execution phase. Total is time spent in
// phases that completed; Wasted is time lost to phases that were interrupted.
type Phase struct {
	Total     float64
	Wasted    float64
	Completed int
	Failed    int
}

func (p *Phase) Succeed(d float64) {
	p.Total += d
	p.Completed++
}

func (p *Phase) Fail(d float64) {
	p.Wasted += d
	p.Failed++
}

// Stats is reset by allocating a new value at the start of each run.
type Stats struct {
	Restart    Phase
	Rework     Phase
	Work       Phase
	Checkpoint Phase

	// RASDelay is the time charged for coalescing bursts of interrupts.
	RASDelay float64
	// CompletedWork is the work committed by successful checkpoints.
	CompletedWork float64

	Interrupts   int
	Faults       int
	NodeFailures int
	Repaired     int

	SoftRebootSuccesses int
	SoftRebootFailures  int
}

// TimeAccounted sums every bucket that simulated time can be charged to. At
// the end of a run it equals the elapsed time.
func (s *Stats) TimeAccounted() float64 {
	t := s.RASDelay
	for _, p := range s.phases() {
		t += p.Total + p.Wasted
	}
	return t
}

// FailedPhases counts interrupted phases. Each accepted interrupt fails
// exactly one phase.
func (s *Stats) FailedPhases() int {
	n := 0
	for _, p := range s.phases() {
		n += p.Failed
	}
	return n
}

func (s *Stats) Wasted() float64 {
	w := 0.0
	for _, p := range s.phases() {
		w += p.Wasted
	}
	return w
}

func (s *Stats) phases() [4]*Phase {
	return [4]*Phase{&s.Restart, &s.Rework, &s.Work, &s.Checkpoint}
}
