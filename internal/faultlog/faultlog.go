// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package faultlog records interrupts and individual node faults as they
// are accounted by the scheduler.
//
// The text format is one record per line: an interrupt record is the
// interrupt time followed by the number of faults it carried, and a fault
// record is the failure time alone. Times are minutes printed as %15.3f.
package faultlog

import (
	"fmt"
	"io"
)

type Sink interface {
	Interrupt(at float64, faults int)
	Fault(at float64)
}

// Writer formats records onto an underlying stream. Either stream may be
// nil to suppress that kind of record. The first write error is retained and
// further writes are skipped.
type Writer struct {
	interrupts io.Writer
	faults     io.Writer
	err        error
}

func NewWriter(interrupts, faults io.Writer) *Writer {
	return &Writer{interrupts: interrupts, faults: faults}
}

func (w *Writer) Interrupt(at float64, faults int) {
	if w.interrupts == nil || w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.interrupts, "%15.3f %d\n", at, faults)
}

func (w *Writer) Fault(at float64) {
	if w.faults == nil || w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.faults, "%15.3f\n", at)
}

func (w *Writer) Err() error {
	return w.err
}

type InterruptRecord struct {
	At     float64
	Faults int
}

// Recorder keeps every record in memory.
type Recorder struct {
	Interrupts []InterruptRecord
	Faults     []float64
}

func (r *Recorder) Interrupt(at float64, faults int) {
	r.Interrupts = append(r.Interrupts, InterruptRecord{At: at, Faults: faults})
}

func (r *Recorder) Fault(at float64) {
	r.Faults = append(r.Faults, at)
}

// FaultsReported sums the fault counts of all interrupt records.
func (r *Recorder) FaultsReported() int {
	n := 0
	for _, ir := range r.Interrupts {
		n += ir.Faults
	}
	return n
}

type tee []Sink

func (t tee) Interrupt(at float64, faults int) {
	for _, s := range t {
		s.Interrupt(at, faults)
	}
}

func (t tee) Fault(at float64) {
	for _, s := range t {
		s.Fault(at)
	}
}

// Tee duplicates records onto every non-nil sink.
func Tee(sinks ...Sink) Sink {
	var t tee
	for _, s := range sinks {
		if s != nil {
			t = append(t, s)
		}
	}
	if len(t) == 1 {
		return t[0]
	}
	return t
}

type discard struct{}

func (discard) Interrupt(float64, int) {}
func (discard) Fault(float64)          {}

var Discard Sink = discard{}
