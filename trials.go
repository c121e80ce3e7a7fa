// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package appmodel

import (
	"context"
	"slices"
	"time"

	"github.com/petenewcomb/appmodel-go/internal/psg"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// RunTrials simulates cfg n times with at most workers trials running at
// once. Trial i uses seed base+i, where base is cfg.Seed when cfg.FixedSeed
// is set and the current time otherwise. Results are returned in trial order.
// The first failed trial cancels the rest.
//
// Only WithLogger is honored; options that attach per-run logs or sources
// are rejected.
func RunTrials(ctx context.Context, cfg Config, n, workers int, opts ...Option) (results []*Result, err error) {
	o := buildOptions(opts)
	if o.interrupts != nil || o.faults != nil || o.recorder != nil || o.replay != nil || o.source != nil {
		return nil, errors.Wrap(ErrConfig, "trials accept only a logger option")
	}
	if n < 1 {
		return nil, errors.Wrapf(ErrConfig, "trial count must be > 0, got %d", n)
	}
	workers = min(max(workers, 1), n)
	base := cfg.Seed
	if !cfg.FixedSeed {
		base = uint64(time.Now().UnixNano())
	}

	ctx, span := tracer().Start(ctx, "appmodel.RunTrials", trace.WithAttributes(
		attribute.Int("appmodel.trials", n),
		attribute.Int("appmodel.workers", workers),
		attribute.Int64("appmodel.base_seed", int64(base)),
	))
	defer func() { endSpan(span, err) }()

	pool := psg.NewPool(workers)
	job := psg.NewJob(ctx, pool)
	defer job.CancelAndWait()

	results = make([]*Result, n)
	gather := psg.NewGather(func(ctx context.Context, t trial, err error) error {
		if err != nil {
			return errors.WithMessagef(err, "trial %d", t.index)
		}
		results[t.index] = t.result
		return nil
	})
	for i := range n {
		tc := cfg
		tc.FixedSeed = true
		tc.Seed = base + uint64(i)
		logger := o.logger.With(zap.Int("trial", i))
		err := gather.Scatter(ctx, pool, func(ctx context.Context) (trial, error) {
			res, err := Simulate(ctx, tc, WithLogger(logger))
			return trial{index: i, result: res}, err
		})
		if err != nil {
			return nil, err
		}
	}
	if err := job.GatherAll(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

type trial struct {
	index  int
	result *Result
}

// Range summarizes one measure across trials.
type Range struct {
	Min    float64
	Median float64
	Max    float64
	Mean   float64
	StdDev float64
}

func newRange(values []float64) Range {
	if len(values) == 0 {
		return Range{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	return Range{
		Min:    sorted[0],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		StdDev: std,
	}
}

type Summary struct {
	Trials             int
	Elapsed            Range
	Overhead           Range
	Interrupts         Range
	Faults             Range
	FaultsPerInterrupt Range
}

// Summarize reduces trial results to ranges. Nil results are skipped.
func Summarize(results []*Result) Summary {
	var elapsed, overhead, interrupts, faults, fpi []float64
	for _, r := range results {
		if r == nil {
			continue
		}
		elapsed = append(elapsed, r.Elapsed)
		overhead = append(overhead, r.Overhead())
		interrupts = append(interrupts, float64(r.Stats.Interrupts))
		faults = append(faults, float64(r.Stats.Faults))
		fpi = append(fpi, r.FaultsPerInterrupt())
	}
	return Summary{
		Trials:             len(elapsed),
		Elapsed:            newRange(elapsed),
		Overhead:           newRange(overhead),
		Interrupts:         newRange(interrupts),
		Faults:             newRange(faults),
		FaultsPerInterrupt: newRange(fpi),
	}
}
