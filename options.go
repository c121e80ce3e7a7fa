// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package appmodel

import (
	"io"

	"github.com/petenewcomb/appmodel-go/internal/faultlog"
	"github.com/petenewcomb/appmodel-go/internal/sched"
	"go.uber.org/zap"
)

// Recorder collects interrupt and fault records in memory.
type Recorder = faultlog.Recorder

type InterruptRecord = faultlog.InterruptRecord

// Source supplies node failure times and reboot probabilities.
type Source = sched.Source

type options struct {
	logger     *zap.Logger
	interrupts io.Writer
	faults     io.Writer
	recorder   *Recorder
	replay     io.Reader
	source     Source
}

type Option func(*options)

// WithLogger sets the logger. The default is zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithInterruptLog writes one line per interrupt: the interrupt time and
// the number of faults accounted with it.
func WithInterruptLog(w io.Writer) Option {
	return func(o *options) {
		o.interrupts = w
	}
}

// WithFaultLog writes the time of every accounted node fault.
func WithFaultLog(w io.Writer) Option {
	return func(o *options) {
		o.faults = w
	}
}

func WithRecorder(r *Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithReplay takes interrupts from a recorded fault log instead of
// simulating node failures. Redundant nodes cannot be combined with replay.
func WithReplay(r io.Reader) Option {
	return func(o *options) {
		o.replay = r
	}
}

// WithSource replaces the seeded random source built from the
// configuration.
func WithSource(src Source) Option {
	return func(o *options) {
		o.source = src
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.L()
	}
	return o
}
