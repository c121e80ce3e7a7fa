// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package appmodel_test

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/petenewcomb/appmodel-go"
	"github.com/petenewcomb/appmodel-go/internal/simtest"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"
)

// waitSource adds scripted waits to each anchor. Once the script runs out
// it returns distinct waits far beyond any test horizon.
type waitSource struct {
	waits []float64
	far   float64
}

func (s *waitSource) NextFailure(anchor float64) float64 {
	if len(s.waits) > 0 {
		w := s.waits[0]
		s.waits = s.waits[1:]
		return anchor + w
	}
	s.far++
	return anchor + 1e9 + s.far
}

func (s *waitSource) Probability() float64 {
	return 0.5
}

func scriptedConfig() appmodel.Config {
	cfg := appmodel.DefaultConfig()
	cfg.ActiveNodes = 1
	cfg.WorkTime = 300
	cfg.CheckpointTime = 5
	cfg.RestartTime = 10
	cfg.Tau = 60
	return cfg
}

func TestSimulateWithoutFailures(t *testing.T) {
	chk := require.New(t)
	cfg := scriptedConfig()
	cfg.ActiveNodes = 4
	cfg.WorkTime = 600
	res, err := appmodel.Simulate(context.Background(), cfg,
		appmodel.WithSource(&waitSource{}), appmodel.WithLogger(zaptest.NewLogger(t)))
	chk.NoError(err)
	// Ten segments and a checkpoint after each but the last.
	chk.Equal(645.0, res.Elapsed)
	chk.Equal(0, res.Stats.Interrupts)
	chk.Equal(0, res.Stats.Faults)
	chk.Equal(10, res.Stats.Work.Completed)
	chk.Equal(9, res.Stats.Checkpoint.Completed)
	chk.Equal(600.0, res.Stats.CompletedWork)
	chk.InDelta(100.0/600*645-100, res.Overhead(), 1e-9)
}

func TestSimulateOneInterrupt(t *testing.T) {
	chk := require.New(t)
	var rec appmodel.Recorder
	var ints, faults bytes.Buffer
	res, err := appmodel.Simulate(context.Background(), scriptedConfig(),
		appmodel.WithSource(&waitSource{waits: []float64{100}}),
		appmodel.WithRecorder(&rec),
		appmodel.WithInterruptLog(&ints),
		appmodel.WithFaultLog(&faults),
		appmodel.WithLogger(zaptest.NewLogger(t)))
	chk.NoError(err)

	st := &res.Stats
	chk.Equal(365.0, res.Elapsed)
	chk.Equal(1, st.Interrupts)
	chk.Equal(1, st.Faults)
	chk.Equal(1, st.NodeFailures)
	chk.Equal(1, st.Repaired)
	chk.Equal(10.0, st.Restart.Total)
	chk.Equal(35.0, st.Rework.Total)
	chk.Equal(265.0, st.Work.Total)
	chk.Equal(35.0, st.Work.Wasted)
	chk.Equal(1, st.Work.Failed)
	chk.Equal(20.0, st.Checkpoint.Total)
	chk.Equal(300.0, st.CompletedWork)

	chk.Equal([]appmodel.InterruptRecord{{At: 100, Faults: 1}, {At: 100 + 1e9 + 1, Faults: 0}}, rec.Interrupts)
	chk.Equal([]float64{100}, rec.Faults)
	chk.Equal("        100.000 1\n 1000000101.000 0\n", ints.String())
	chk.Equal("        100.000\n", faults.String())
}

func TestSimulateDeterministic(t *testing.T) {
	chk := require.New(t)
	cfg := appmodel.DefaultConfig()
	cfg.ActiveNodes = 64
	cfg.RedundantNodes = 32
	cfg.WorkTime = 48 * 60
	cfg.Distribution.NodeMTBF = 300 * 60
	cfg.SoftReboot.SuccessRate = 60
	cfg.SoftReboot.Duration = 5
	cfg.FixedSeed = true
	cfg.Seed = 42

	runOnce := func() (*appmodel.Result, string, string) {
		var ints, faults bytes.Buffer
		res, err := appmodel.Simulate(context.Background(), cfg,
			appmodel.WithInterruptLog(&ints), appmodel.WithFaultLog(&faults), appmodel.WithLogger(zap.NewNop()))
		chk.NoError(err)
		return res, ints.String(), faults.String()
	}
	r1, i1, f1 := runOnce()
	r2, i2, f2 := runOnce()
	chk.Equal(i1, i2)
	chk.Equal(f1, f2)
	chk.Equal(r1.Elapsed, r2.Elapsed)
	chk.Equal(r1.Stats, r2.Stats)
	chk.Equal(uint64(42), r1.Seed)
	chk.Positive(r1.FailureDraws)
}

func TestSimulateProperties(t *testing.T) {
	gen := simtest.DefaultConfig
	var runs, interrupts int
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		cfg := gen.Draw(t)
		var rec appmodel.Recorder
		res, err := appmodel.Simulate(context.Background(), cfg,
			appmodel.WithRecorder(&rec), appmodel.WithLogger(zap.NewNop()))
		chk.NoError(err)

		st := &res.Stats
		chk.InDelta(res.Elapsed, st.TimeAccounted(), 1e-6*math.Max(1, res.Elapsed))
		chk.InDelta(cfg.WorkTime, st.CompletedWork, 1e-9*cfg.WorkTime)
		chk.GreaterOrEqual(res.Elapsed, cfg.WorkTime-1e-9*cfg.WorkTime)
		chk.Equal(st.Interrupts, st.FailedPhases())
		chk.Len(rec.Faults, st.NodeFailures)
		chk.Equal(st.NodeFailures, rec.FaultsReported())
		if cfg.RASDelay == 0 {
			chk.Len(rec.Interrupts, st.Interrupts+1)
		} else {
			chk.GreaterOrEqual(len(rec.Interrupts), st.Interrupts+1)
		}
		chk.GreaterOrEqual(st.NodeFailures, st.Repaired)
		for i := 1; i < len(rec.Interrupts); i++ {
			chk.GreaterOrEqual(rec.Interrupts[i].At, rec.Interrupts[i-1].At)
		}
		if cfg.RedundantNodes == 0 && cfg.RASDelay == 0 {
			chk.Equal(st.Interrupts, st.Faults)
		}
		if cfg.SoftReboot.SuccessRate < 0 {
			chk.Zero(st.SoftRebootSuccesses + st.SoftRebootFailures)
		}
		runs++
		interrupts += st.Interrupts
	})
	// Drawn runs must cycle through restart, rework and work repeatedly.
	require.GreaterOrEqual(t, float64(interrupts)/float64(runs), 3.0)
}

func TestSimulateRASDelayCharged(t *testing.T) {
	chk := require.New(t)
	cfg := scriptedConfig()
	cfg.RASDelay = 2
	// The failure at 100 is the only one before the job completes.
	res, err := appmodel.Simulate(context.Background(), cfg,
		appmodel.WithSource(&waitSource{waits: []float64{100}}), appmodel.WithLogger(zap.NewNop()))
	chk.NoError(err)
	// One charge opens the run, one follows the interrupt.
	chk.Equal(4.0, res.Stats.RASDelay)
	chk.InDelta(res.Elapsed, res.Stats.TimeAccounted(), 1e-9)
}

func TestSimulateRejectsReplayWithRedundancy(t *testing.T) {
	chk := require.New(t)
	cfg := appmodel.DefaultConfig()
	cfg.RedundantNodes = 1
	_, err := appmodel.Simulate(context.Background(), cfg, appmodel.WithReplay(strings.NewReader("0 0 x\n")))
	chk.ErrorIs(err, appmodel.ErrConfig)
}

func TestSimulateReplay(t *testing.T) {
	chk := require.New(t)
	cfg := scriptedConfig()
	cfg.ActiveNodes = 2
	input := "1000 0 a\n1060 5 b\n7000 1 c\n60000000 0 d\n"
	var rec appmodel.Recorder
	res, err := appmodel.Simulate(context.Background(), cfg,
		appmodel.WithReplay(strings.NewReader(input)), appmodel.WithRecorder(&rec), appmodel.WithLogger(zap.NewNop()))
	chk.NoError(err)
	chk.True(res.Replayed)
	chk.Equal(1, res.Stats.Interrupts)
	chk.Equal(1, res.Stats.Faults)
	chk.Equal(3, res.ReplayRead)
	chk.Equal(2, res.ReplayAccepted)
	chk.Equal([]float64{(60000000.0 - 1000) / 60}, rec.Faults)
}

func TestSimulateReplayTooShort(t *testing.T) {
	chk := require.New(t)
	_, err := appmodel.Simulate(context.Background(), scriptedConfig(),
		appmodel.WithReplay(strings.NewReader("0 0 a\n60 0 b\n")), appmodel.WithLogger(zap.NewNop()))
	chk.Error(err)
}

func TestSimulateInvalidConfig(t *testing.T) {
	chk := require.New(t)
	cfg := appmodel.DefaultConfig()
	cfg.WorkTime = 0
	_, err := appmodel.Simulate(context.Background(), cfg)
	chk.ErrorIs(err, appmodel.ErrConfig)
}

func TestSimulateCanceled(t *testing.T) {
	chk := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := appmodel.Simulate(ctx, scriptedConfig(), appmodel.WithSource(&waitSource{}), appmodel.WithLogger(zap.NewNop()))
	chk.ErrorIs(err, context.Canceled)
}

func TestSimulateLogsSummary(t *testing.T) {
	chk := require.New(t)
	core, logs := observer.New(zapcore.InfoLevel)
	_, err := appmodel.Simulate(context.Background(), scriptedConfig(),
		appmodel.WithSource(&waitSource{waits: []float64{100}}), appmodel.WithLogger(zap.New(core)))
	chk.NoError(err)
	entries := logs.FilterMessage("simulation complete").All()
	chk.Len(entries, 1)
	fields := entries[0].ContextMap()
	chk.Equal(int64(1), fields["interrupts"])
	chk.Equal("appmodel", fields["component"])
}

func TestSimulateSpan(t *testing.T) {
	chk := require.New(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, err := appmodel.Simulate(context.Background(), scriptedConfig(),
		appmodel.WithSource(&waitSource{waits: []float64{100}}), appmodel.WithLogger(zap.NewNop()))
	chk.NoError(err)

	cfg := scriptedConfig()
	cfg.WorkTime = -1
	_, err = appmodel.Simulate(context.Background(), cfg)
	chk.Error(err)

	spans := sr.Ended()
	chk.Len(spans, 1, "invalid configurations fail before a span starts")
	span := spans[0]
	chk.Equal("appmodel.Simulate", span.Name())
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	chk.Equal(int64(1), attrs["appmodel.active_nodes"].AsInt64())
	chk.Equal(365.0, attrs["appmodel.elapsed_minutes"].AsFloat64())
	chk.Equal(int64(1), attrs["appmodel.interrupts"].AsInt64())
}
