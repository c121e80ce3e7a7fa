// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package appmodel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/petenewcomb/appmodel-go"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func configAttributes(cfg *Config, est *Estimates) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("appmodel.active_nodes", cfg.ActiveNodes),
		attribute.Int("appmodel.redundant_nodes", cfg.RedundantNodes),
		attribute.String("appmodel.distribution", string(cfg.Distribution.Kind)),
		attribute.Float64("appmodel.work_minutes", cfg.WorkTime),
		attribute.Float64("appmodel.tau_minutes", est.Tau),
	}
}

func resultAttributes(res *Result) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Float64("appmodel.elapsed_minutes", res.Elapsed),
		attribute.Int("appmodel.interrupts", res.Stats.Interrupts),
		attribute.Int("appmodel.faults", res.Stats.Faults),
		attribute.Int("appmodel.node_failures", res.Stats.NodeFailures),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// instruments are created per run from the global meter provider. Any that
// fail to register are left nil and skipped.
type instruments struct {
	runs         metric.Int64Counter
	interrupts   metric.Int64Counter
	faults       metric.Int64Counter
	nodeFailures metric.Int64Counter
	elapsed      metric.Float64Histogram
}

func newInstruments() instruments {
	meter := otel.GetMeterProvider().Meter(instrumentationName)
	var in instruments
	in.runs, _ = meter.Int64Counter("appmodel.runs")
	in.interrupts, _ = meter.Int64Counter("appmodel.interrupts")
	in.faults, _ = meter.Int64Counter("appmodel.faults")
	in.nodeFailures, _ = meter.Int64Counter("appmodel.node_failures")
	in.elapsed, _ = meter.Float64Histogram("appmodel.elapsed_minutes")
	return in
}

func (in instruments) record(ctx context.Context, res *Result) {
	add := func(c metric.Int64Counter, n int) {
		if c != nil {
			c.Add(ctx, int64(n))
		}
	}
	add(in.runs, 1)
	add(in.interrupts, res.Stats.Interrupts)
	add(in.faults, res.Stats.Faults)
	add(in.nodeFailures, res.Stats.NodeFailures)
	if in.elapsed != nil {
		in.elapsed.Record(ctx, res.Elapsed)
	}
}
