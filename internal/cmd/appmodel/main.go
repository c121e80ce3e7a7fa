// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Command appmodel simulates a checkpointing application on a machine with
// failing and optionally redundant nodes, and reports where the time went.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/petenewcomb/appmodel-go"
	"github.com/petenewcomb/appmodel-go/internal/report"
	"github.com/petenewcomb/appmodel-go/internal/rnd"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "appmodel:", err)
		os.Exit(1)
	}
}

// verbosity counts repetitions of a boolean flag.
type verbosity int

func (v *verbosity) String() string {
	if v == nil {
		return "0"
	}
	return strconv.Itoa(int(*v))
}

func (v *verbosity) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		*v++
	}
	return nil
}

func (v *verbosity) IsBoolFlag() bool { return true }

func (v verbosity) level() zapcore.Level {
	switch {
	case v >= 2:
		return zap.DebugLevel
	case v == 1:
		return zap.InfoLevel
	}
	return zap.WarnLevel
}

type flags struct {
	active        int
	redundant     int
	checkpoint    float64
	restart       float64
	workHours     float64
	tau           float64
	nodeMTBFHours float64
	appMTBFHours  float64
	sysMTBFHours  float64
	rasDelay      float64
	interrupts    string
	faults        string
	input         string
	distribution  string
	shape         float64
	scaleHours    float64
	softReboot    string
	hotswap       bool
	fixedSeed     bool
	seed          uint64
	verbose       verbosity
	perf          bool
	legacy        bool
	configPath    string
	trials        int
	workers       int
	trace         bool
	plotPath      string
}

func newFlagSet(f *flags, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("appmodel", flag.ContinueOnError)
	fs.SetOutput(stderr)
	def := appmodel.DefaultConfig()
	fs.IntVar(&f.active, "n", def.ActiveNodes, "number of active nodes (bundles)")
	fs.IntVar(&f.redundant, "r", def.RedundantNodes, "number of redundant nodes")
	fs.Float64Var(&f.checkpoint, "c", def.CheckpointTime, "time to write a checkpoint (minutes)")
	fs.Float64Var(&f.restart, "R", def.RestartTime, "time to relaunch and read a checkpoint (minutes)")
	fs.Float64Var(&f.workHours, "w", def.WorkTime/60, "application work (hours)")
	fs.Float64Var(&f.tau, "t", 0, "compute time between checkpoints (minutes; computed if not given)")
	fs.Float64Var(&f.nodeMTBFHours, "m", def.Distribution.NodeMTBF/60, "node MTBF (hours)")
	fs.Float64Var(&f.appMTBFHours, "a", 0, "application MTBI used to compute tau (hours)")
	fs.Float64Var(&f.sysMTBFHours, "mtbf_sys", 0, "system MTBF for result comparisons (hours)")
	fs.Float64Var(&f.rasDelay, "d", def.RASDelay, "faults within this window count as one interrupt (minutes)")
	fs.StringVar(&f.interrupts, "fi", "", "file to write interrupt times to (- for stdout)")
	fs.StringVar(&f.faults, "ff", "", "file to write fault times to (- for stdout)")
	fs.StringVar(&f.input, "input", "", "file to read fault times from instead of generating them")
	fs.StringVar(&f.distribution, "distribution", string(def.Distribution.Kind), "failure distribution: exponential, gamma or weibull")
	fs.Float64Var(&f.shape, "shape", def.Distribution.Shape, "shape parameter for gamma and weibull")
	fs.Float64Var(&f.scaleHours, "scale", def.Distribution.Scale/60, "scale parameter for weibull (hours)")
	fs.StringVar(&f.softReboot, "soft_reboot", "", "soft reboot success rate in percent and reboot time in minutes, as rate,time")
	fs.BoolVar(&f.hotswap, "hotswap", false, "draw rebooted node lifetimes from the reboot instant")
	fs.BoolVar(&f.fixedSeed, "s", false, "use a fixed seed for repeatable runs")
	fs.Uint64Var(&f.seed, "seed", 0, "seed to use; implies -s")
	fs.Var(&f.verbose, "v", "increase verbosity; may be repeated")
	fs.BoolVar(&f.perf, "p", false, "display simulation performance data")
	fs.BoolVar(&f.legacy, "legacy", false, "re-arm failed nodes in ID order")
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file; flags override its settings")
	fs.IntVar(&f.trials, "trials", 1, "number of independent runs to summarize")
	fs.IntVar(&f.workers, "workers", runtime.GOMAXPROCS(0), "concurrent runs when -trials > 1")
	fs.BoolVar(&f.trace, "trace", false, "export trace spans to stderr")
	fs.StringVar(&f.plotPath, "plot", "", "chart cumulative interrupts and faults to this image file")
	return fs
}

func parseSoftReboot(s string) (rate, minutes float64, err error) {
	rateStr, timeStr, hasTime := strings.Cut(s, ",")
	if rate, err = strconv.ParseFloat(strings.TrimSpace(rateStr), 64); err != nil {
		return 0, 0, errors.Wrapf(appmodel.ErrConfig, "soft reboot rate %q", rateStr)
	}
	if hasTime {
		if minutes, err = strconv.ParseFloat(strings.TrimSpace(timeStr), 64); err != nil {
			return 0, 0, errors.Wrapf(appmodel.ErrConfig, "soft reboot time %q", timeStr)
		}
	}
	return rate, minutes, nil
}

// configure applies the flags that were set on top of the configuration
// file, or the defaults when there is none.
func configure(fs *flag.FlagSet, f *flags) (appmodel.Config, error) {
	cfg := appmodel.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = appmodel.LoadConfig(f.configPath); err != nil {
			return cfg, err
		}
	}
	var err error
	fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "n":
			cfg.ActiveNodes = f.active
		case "r":
			cfg.RedundantNodes = f.redundant
		case "c":
			cfg.CheckpointTime = f.checkpoint
		case "R":
			cfg.RestartTime = f.restart
		case "w":
			cfg.WorkTime = f.workHours * 60
		case "t":
			cfg.Tau = f.tau
		case "m":
			cfg.Distribution.NodeMTBF = f.nodeMTBFHours * 60
		case "a":
			cfg.AppMTBF = f.appMTBFHours * 60
		case "mtbf_sys":
			cfg.SystemMTBF = f.sysMTBFHours * 60
		case "d":
			cfg.RASDelay = f.rasDelay
		case "distribution":
			cfg.Distribution.Kind, err = rnd.ParseKind(f.distribution)
		case "shape":
			cfg.Distribution.Shape = f.shape
		case "scale":
			cfg.Distribution.Scale = f.scaleHours * 60
		case "soft_reboot":
			cfg.SoftReboot.SuccessRate, cfg.SoftReboot.Duration, err = parseSoftReboot(f.softReboot)
		case "hotswap":
			cfg.SoftReboot.Hotswap = f.hotswap
		case "s":
			cfg.FixedSeed = f.fixedSeed
		case "seed":
			cfg.Seed = f.seed
			cfg.FixedSeed = true
		case "legacy":
			cfg.LegacyOrder = f.legacy
		}
	})
	return cfg, err
}

func newLogger(v verbosity, stderr io.Writer) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(zapcore.AddSync(stderr)), v.level())
	return zap.New(core)
}

// openOutput returns stdout for "-" and creates the named file otherwise.
// The returned close function is never nil.
func openOutput(name string, stdout io.Writer) (io.Writer, func() error, error) {
	switch name {
	case "":
		return nil, func() error { return nil }, nil
	case "-":
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating output")
	}
	return f, f.Close, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	var f flags
	fs := newFlagSet(&f, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return errors.Errorf("unexpected arguments %q", fs.Args())
	}
	cfg, err := configure(fs, &f)
	if err != nil {
		return err
	}

	logger := newLogger(f.verbose, stderr)
	defer func() { _ = logger.Sync() }()

	if f.trace {
		exporter, xerr := stdouttrace.New(stdouttrace.WithWriter(stderr), stdouttrace.WithPrettyPrint())
		if xerr != nil {
			return errors.Wrap(xerr, "creating trace exporter")
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tp)
		defer func() {
			if serr := tp.Shutdown(context.Background()); serr != nil && err == nil {
				err = errors.Wrap(serr, "flushing traces")
			}
		}()
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	est, err := cfg.Estimate()
	if err != nil {
		return err
	}
	if err := report.Parameters(stdout, &cfg, &est, report.Files{
		Interrupts: f.interrupts,
		Faults:     f.faults,
		Input:      f.input,
	}); err != nil {
		return err
	}

	if f.trials > 1 {
		if f.interrupts != "" || f.faults != "" || f.input != "" || f.plotPath != "" {
			return errors.Wrap(appmodel.ErrConfig, "-trials cannot be combined with -fi, -ff, -input or -plot")
		}
		results, err := appmodel.RunTrials(ctx, cfg, f.trials, f.workers, appmodel.WithLogger(logger))
		if err != nil {
			return err
		}
		s := appmodel.Summarize(results)
		return report.Trials(stdout, &s)
	}

	opts := []appmodel.Option{appmodel.WithLogger(logger)}
	for _, out := range []struct {
		name string
		opt  func(io.Writer) appmodel.Option
	}{
		{f.interrupts, appmodel.WithInterruptLog},
		{f.faults, appmodel.WithFaultLog},
	} {
		w, closeOut, oerr := openOutput(out.name, stdout)
		if oerr != nil {
			return oerr
		}
		defer func() {
			if cerr := closeOut(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "closing output")
			}
		}()
		if w != nil {
			opts = append(opts, out.opt(w))
		}
	}
	if f.input != "" {
		in, ierr := os.Open(f.input)
		if ierr != nil {
			return errors.Wrap(ierr, "opening fault input")
		}
		defer in.Close()
		opts = append(opts, appmodel.WithReplay(in))
	}
	var rec *appmodel.Recorder
	if f.plotPath != "" {
		rec = &appmodel.Recorder{}
		opts = append(opts, appmodel.WithRecorder(rec))
	}

	res, err := appmodel.Simulate(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	if err := report.Results(stdout, res, f.perf); err != nil {
		return err
	}
	if rec != nil {
		return writePlot(f.plotPath, rec)
	}
	return nil
}
