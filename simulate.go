// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package appmodel

import (
	"context"
	"math"
	"time"

	"github.com/petenewcomb/appmodel-go/internal/faultlog"
	"github.com/petenewcomb/appmodel-go/internal/phase"
	"github.com/petenewcomb/appmodel-go/internal/replay"
	"github.com/petenewcomb/appmodel-go/internal/rnd"
	"github.com/petenewcomb/appmodel-go/internal/sched"
	"github.com/petenewcomb/appmodel-go/internal/stats"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Simulate runs the application described by cfg to completion and returns
// its accounting. Runs with a fixed seed are reproducible.
func Simulate(ctx context.Context, cfg Config, opts ...Option) (res *Result, err error) {
	o := buildOptions(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.replay != nil && cfg.RedundantNodes > 0 {
		return nil, errors.Wrap(ErrConfig, "redundant nodes are not supported with replayed faults")
	}
	est, err := cfg.Estimate()
	if err != nil {
		return nil, err
	}

	ctx, span := tracer().Start(ctx, "appmodel.Simulate", trace.WithAttributes(configAttributes(&cfg, &est)...))
	defer func() { endSpan(span, err) }()

	res = &Result{Config: cfg, Estimates: est, Replayed: o.replay != nil}
	st := &res.Stats
	writer := faultlog.NewWriter(o.interrupts, o.faults)
	var sink faultlog.Sink = writer
	if o.recorder != nil {
		sink = faultlog.Tee(writer, o.recorder)
	}
	logger := o.logger.With(zap.String("component", "appmodel"))

	var (
		intr   sched.Interrupter
		src    *rnd.Source
		reader *replay.Reader
	)
	switch {
	case o.replay != nil:
		reader = replay.NewReader(o.replay, cfg.ActiveNodes)
		intr = sched.NewReplay(reader, st, sched.WithSink(sink), sched.WithLogger(logger))
	default:
		source := o.source
		if source == nil {
			src, err = rnd.New(cfg.randomParams())
			if err != nil {
				return nil, invalidConfig(err)
			}
			source = src
			res.Seed = src.Seed()
		}
		intr, err = sched.New(cfg.schedParams(), source, st, sched.WithSink(sink), sched.WithLogger(logger))
		if err != nil {
			return nil, err
		}
	}

	d := &driver{
		intr: intr,
		machine: &phase.Machine{
			RestartTime:    cfg.RestartTime,
			CheckpointTime: cfg.CheckpointTime,
			Tau:            est.Tau,
			RequiredWork:   cfg.WorkTime,
			Stats:          st,
			Logger:         logger,
		},
		stats:    st,
		sink:     sink,
		logger:   logger,
		rasDelay: cfg.RASDelay,
		tau:      est.Tau,
	}

	start := time.Now()
	if err := d.run(ctx); err != nil {
		return nil, err
	}
	res.ModelTime = time.Since(start)
	res.Elapsed = d.elapsed
	res.Advances = d.advances
	if src != nil {
		res.FailureDraws, res.ProbabilityDraws = src.Draws()
	}
	if reader != nil {
		res.ReplayRead, res.ReplayAccepted = reader.Counts()
	}
	if err := writer.Err(); err != nil {
		return nil, errors.Wrap(err, "writing logs")
	}
	if err := res.check(); err != nil {
		return nil, err
	}

	span.SetAttributes(resultAttributes(res)...)
	newInstruments().record(ctx, res)
	logger.Info("simulation complete",
		zap.Float64("elapsed_hours", res.Elapsed/60),
		zap.Float64("overhead_percent", res.Overhead()),
		zap.Int("interrupts", st.Interrupts),
		zap.Int("faults", st.Faults),
		zap.Duration("model_time", res.ModelTime))
	return res, nil
}

// check verifies the books of a completed run.
func (r *Result) check() error {
	st := &r.Stats
	if failed := st.FailedPhases(); failed != st.Interrupts {
		return errors.Wrapf(ErrAccounting, "%d failed phases for %d interrupts", failed, st.Interrupts)
	}
	if sum := st.TimeAccounted(); math.Abs(sum-r.Elapsed) > 1e-6*max(1, r.Elapsed) {
		return errors.Wrapf(ErrAccounting, "accounted %v minutes of %v elapsed", sum, r.Elapsed)
	}
	if r.Config.RedundantNodes == 0 && r.Config.RASDelay == 0 && st.Faults != st.Interrupts {
		return errors.Wrapf(ErrAccounting, "%d faults for %d interrupts without redundancy", st.Faults, st.Interrupts)
	}
	return nil
}

type driver struct {
	intr     sched.Interrupter
	machine  *phase.Machine
	stats    *stats.Stats
	sink     faultlog.Sink
	logger   *zap.Logger
	rasDelay float64
	tau      float64

	elapsed   float64
	lastEvent float64
	accepted  int
	advances  int
}

func (d *driver) advance() (float64, error) {
	d.advances++
	return d.intr.Advance(d.elapsed)
}

// nextInterrupt fetches the next interrupt, folding any that arrive within
// the RAS delay of the previous one into it.
func (d *driver) nextInterrupt() (float64, error) {
	next, err := d.advance()
	if err != nil {
		return 0, err
	}
	for next < d.lastEvent+d.rasDelay {
		if next, err = d.advance(); err != nil {
			return 0, err
		}
	}
	d.elapsed += d.rasDelay
	d.stats.RASDelay += d.rasDelay
	d.lastEvent = next
	d.accepted++
	if ce := d.logger.Check(zap.DebugLevel, "interrupt"); ce != nil {
		ce.Write(zap.Int("number", d.accepted), zap.Float64("at", next), zap.Float64("elapsed", d.elapsed))
	}
	return next, nil
}

func (d *driver) run(ctx context.Context) error {
	m := d.machine
	if err := ctx.Err(); err != nil {
		return err
	}

	next, err := d.nextInterrupt()
	if err != nil {
		return err
	}
	res, err := m.Work(next, d.elapsed, phase.Segment{TimeLeft: d.tau})
	if err != nil {
		return err
	}
	d.elapsed = res.Elapsed
	owed := res.Rework

	for !res.Done {
		if err := ctx.Err(); err != nil {
			return err
		}
		if next, err = d.nextInterrupt(); err != nil {
			return err
		}

		if d.elapsed, err = m.Restart(next, d.elapsed); err != nil {
			return err
		}
		if d.elapsed >= next {
			continue
		}

		var redone float64
		if d.elapsed, redone, err = m.Rework(next, d.elapsed, owed); err != nil {
			return err
		}
		if d.elapsed >= next {
			continue
		}

		timeLeft := d.tau - redone
		if timeLeft < 0 {
			if timeLeft < -phase.Tolerance {
				return errors.Wrapf(phase.ErrNegativeDuration, "rework %v exceeds checkpoint interval %v", redone, d.tau)
			}
			timeLeft = 0
		}
		if res, err = m.Work(next, d.elapsed, phase.Segment{Rework: redone, TimeLeft: timeLeft}); err != nil {
			return err
		}
		d.elapsed = res.Elapsed
		owed = res.Rework
	}

	// Correct for overshooting the required work.
	if delta := m.RequiredWork - d.stats.CompletedWork; delta < 0 {
		d.logger.Warn("correcting elapsed time for overshoot", zap.Float64("minutes", delta))
		d.elapsed += delta
		d.stats.Work.Total += delta
		d.stats.CompletedWork = m.RequiredWork
	} else if delta > 0 {
		d.logger.Warn("work fell short", zap.Float64("minutes", delta))
	}

	dead, err := d.intr.CountDeadNodes(d.elapsed)
	if err != nil {
		return err
	}
	// The last interrupt marks the end of the job rather than a failure.
	d.sink.Interrupt(d.lastEvent, dead)
	d.stats.Interrupts = d.accepted - 1
	return nil
}
