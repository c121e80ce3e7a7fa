// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petenewcomb/appmodel-go"
	"github.com/petenewcomb/appmodel-go/internal/rnd"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (appmodel.Config, error) {
	var f flags
	fs := newFlagSet(&f, io.Discard)
	require.NoError(t, fs.Parse(args))
	return configure(fs, &f)
}

func TestConfigureUnits(t *testing.T) {
	chk := require.New(t)
	cfg, err := parse(t, "-n", "128", "-r", "32", "-w", "10", "-m", "1000", "-scale", "2",
		"-distribution", "wei", "-shape", "0.7", "-soft_reboot", "80,2.5", "-hotswap", "-seed", "9", "-legacy")
	chk.NoError(err)
	chk.Equal(128, cfg.ActiveNodes)
	chk.Equal(32, cfg.RedundantNodes)
	chk.Equal(600.0, cfg.WorkTime)
	chk.Equal(60000.0, cfg.Distribution.NodeMTBF)
	chk.Equal(120.0, cfg.Distribution.Scale)
	chk.Equal(rnd.Weibull, cfg.Distribution.Kind)
	chk.Equal(0.7, cfg.Distribution.Shape)
	chk.Equal(80.0, cfg.SoftReboot.SuccessRate)
	chk.Equal(2.5, cfg.SoftReboot.Duration)
	chk.True(cfg.SoftReboot.Hotswap)
	chk.True(cfg.FixedSeed)
	chk.Equal(uint64(9), cfg.Seed)
	chk.True(cfg.LegacyOrder)
}

func TestConfigureDefaultsUntouched(t *testing.T) {
	chk := require.New(t)
	cfg, err := parse(t)
	chk.NoError(err)
	chk.Equal(appmodel.DefaultConfig(), cfg)
}

func TestConfigureFileThenFlags(t *testing.T) {
	chk := require.New(t)
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	chk.NoError(os.WriteFile(path, []byte("active_nodes: 16\nrestart_time: 3\n"), 0o644))
	cfg, err := parse(t, "-config", path, "-n", "8")
	chk.NoError(err)
	chk.Equal(8, cfg.ActiveNodes)
	chk.Equal(3.0, cfg.RestartTime)
}

func TestConfigureBadValues(t *testing.T) {
	chk := require.New(t)
	_, err := parse(t, "-soft_reboot", "lots")
	chk.ErrorIs(err, appmodel.ErrConfig)
	_, err = parse(t, "-distribution", "pareto")
	chk.ErrorIs(err, rnd.ErrDistribution)
}

func TestVerbosity(t *testing.T) {
	chk := require.New(t)
	var f flags
	fs := newFlagSet(&f, io.Discard)
	chk.NoError(fs.Parse([]string{"-v", "-v"}))
	chk.Equal(verbosity(2), f.verbose)
}

func TestRunReportsAndLogs(t *testing.T) {
	chk := require.New(t)
	dir := t.TempDir()
	ints := filepath.Join(dir, "ints.txt")
	faults := filepath.Join(dir, "faults.txt")
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-n", "32", "-w", "24", "-m", "400", "-s", "-p",
		"-fi", ints, "-ff", faults,
	}, &stdout, &stderr)
	chk.NoError(err)
	out := stdout.String()
	chk.Contains(out, "PARAMETERS\n")
	chk.Contains(out, "SIMULATION\n")
	chk.NotContains(out, "ERROR")

	ib, err := os.ReadFile(ints)
	chk.NoError(err)
	fb, err := os.ReadFile(faults)
	chk.NoError(err)
	// Without redundancy every interrupt but the last carries one fault,
	// and the last carries none.
	interrupts := strings.Count(string(ib), "\n")
	chk.Positive(interrupts)
	chk.Len(strings.Fields(string(fb)), interrupts-1)
}

func TestRunReplay(t *testing.T) {
	chk := require.New(t)
	input := filepath.Join(t.TempDir(), "faults.txt")
	chk.NoError(os.WriteFile(input, []byte("0 0 1\n600 1 1\n36000 2 1\n"), 0o644))
	var stdout bytes.Buffer
	err := run(context.Background(), []string{"-n", "4", "-w", "0.5", "-input", input}, &stdout, io.Discard)
	chk.NoError(err)
	chk.Contains(stdout.String(), "Cannot calculate node MTBF")
	chk.Contains(stdout.String(), "Cannot model elapsed time")
}

func TestRunTrials(t *testing.T) {
	chk := require.New(t)
	var stdout bytes.Buffer
	err := run(context.Background(), []string{"-n", "16", "-w", "12", "-m", "300", "-trials", "3", "-workers", "2"}, &stdout, io.Discard)
	chk.NoError(err)
	chk.Contains(stdout.String(), "TRIALS 3\n")

	err = run(context.Background(), []string{"-trials", "2", "-fi", "-"}, io.Discard, io.Discard)
	chk.ErrorIs(err, appmodel.ErrConfig)
}

func TestRunPlot(t *testing.T) {
	chk := require.New(t)
	path := filepath.Join(t.TempDir(), "chart.svg")
	err := run(context.Background(), []string{"-n", "16", "-w", "12", "-m", "300", "-s", "-plot", path}, io.Discard, io.Discard)
	chk.NoError(err)
	info, err := os.Stat(path)
	chk.NoError(err)
	chk.Positive(info.Size())
}

func TestRunRejectsArgs(t *testing.T) {
	chk := require.New(t)
	chk.Error(run(context.Background(), []string{"extra"}, io.Discard, io.Discard))
	err := run(context.Background(), []string{"-help"}, io.Discard, io.Discard)
	chk.True(errors.Is(err, flag.ErrHelp))
	err = run(context.Background(), []string{"-r", "600"}, io.Discard, io.Discard)
	chk.Error(err)
}
