// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package report renders simulation parameters and results as the fixed
// column text tables printed by the command line tool.
package report

import (
	"fmt"
	"io"

	"github.com/petenewcomb/appmodel-go"
	"github.com/petenewcomb/appmodel-go/internal/analytic"
	"github.com/petenewcomb/appmodel-go/internal/rnd"
)

// Files names the logs a run reads and writes. Empty names are reported as
// unused.
type Files struct {
	Interrupts string
	Faults     string
	Input      string
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func hours(minutes float64) float64 {
	return minutes / 60
}

// deviation describes measured relative to expected as a percentage under
// or over.
func deviation(measured, expected float64) (float64, string) {
	offset := 100 / expected * measured
	if offset < 100 {
		return 100 - offset, "under"
	}
	return offset - 100, "over"
}

func orNone(name string) string {
	if name == "" {
		return "/dev/null"
	}
	return name
}

// Parameters writes the inputs of a run and the figures calculated from
// them, followed by warnings for configurations that will run poorly.
func Parameters(w io.Writer, cfg *appmodel.Config, est *appmodel.Estimates, files Files) error {
	p := &printer{w: w}
	replayed := files.Input != ""

	p.printf("PARAMETERS\n")
	p.printf("  Active nodes           %12d\n", cfg.ActiveNodes)
	p.printf("  Redundant nodes        %12d\n", cfg.RedundantNodes)
	p.printf("  Total nodes            %12d\n", cfg.ActiveNodes+cfg.RedundantNodes)
	p.printf("  Checkpoint duration    %12.2f minutes\n", cfg.CheckpointTime)
	p.printf("  Restart duration       %12.2f minutes\n", cfg.RestartTime)
	p.printf("  Work to be done        %12.2f hours\n", hours(cfg.WorkTime))
	if replayed {
		p.printf("  Cannot calculate node MTBF\n")
	} else {
		p.printf("  Node MTBF              %12.2f hours\n", hours(cfg.Distribution.NodeMTBF))
	}
	if est.SystemMTBFGiven {
		p.printf("  System MTBF            %12.2f hours (%.3f minutes)\n", hours(est.SystemMTBF), est.SystemMTBF)
	}
	if est.AppMTBFGiven {
		p.printf("  Application MTBI       %12.2f hours (%.3f minutes)\n", hours(est.AppMTBF), est.AppMTBF)
	}
	if est.TauGiven {
		p.printf("  Checkpoint interval    %12.2f hours (%.3f minutes)\n", hours(est.Tau), est.Tau)
	}
	p.printf("  File for interrupt times            %q\n", orNone(files.Interrupts))
	p.printf("  File for fault times                %q\n", orNone(files.Faults))
	if replayed {
		p.printf("  File to read fault times from       %q\n", files.Input)
	}
	if cfg.FixedSeed {
		p.printf("  Seed for pseudo random generator    fixed (%d)\n", cfg.Seed)
	} else {
		p.printf("  Seed for pseudo random generator    random\n")
	}

	d := &cfg.Distribution
	switch {
	case replayed:
		p.printf("  Fault distribution:                 input file\n")
	case d.Kind == rnd.Gamma:
		p.printf("  Fault distribution:                 gamma (scale %.3f, shape %.3f)\n", d.Scale, d.Shape)
	case d.Kind == rnd.Weibull:
		p.printf("  Fault distribution:                 weibull (scale %.3f, shape %.3f, gamma %.3f)\n",
			d.Scale, d.Shape, analytic.WeibullGamma(d.Shape))
	default:
		p.printf("  Fault distribution:                 exponential\n")
	}

	p.printf("  RAS delay              %12.2f minutes\n", cfg.RASDelay)
	if cfg.SoftReboot.SuccessRate < 0 {
		p.printf("  Soft reboot time                    not used\n")
	} else {
		p.printf("  Soft reboot time       %12.2f minutes\n", cfg.SoftReboot.Duration)
		p.printf("  Soft reboot success    %12.2f%%\n", cfg.SoftReboot.SuccessRate)
		if cfg.SoftReboot.Hotswap {
			p.printf("  Soft reboot mode                    hotswap\n")
		}
	}

	p.printf("\nCALCULATED\n")
	if !est.SystemMTBFGiven {
		if replayed {
			p.printf("  Cannot calculate system MTBF\n")
		} else {
			p.printf("  System MTBF            %12.2f hours (%.3f minutes)\n", hours(est.SystemMTBF), est.SystemMTBF)
		}
	}
	if !est.AppMTBFGiven {
		if replayed {
			p.printf("  Cannot estimate application MTBI\n")
		} else {
			p.printf("  Application MTBI       %12.2f hours (%.3f minutes)\n", hours(est.AppMTBF), est.AppMTBF)
		}
	}
	if !est.TauGiven {
		p.printf("  Checkpoint interval    %12.2f hours (%.3f minutes)\n", hours(est.Tau), est.Tau)
	}
	if est.FaultsPerInterrupt > 0 {
		p.printf("  Faults/interrupt       %12.2f\n", est.FaultsPerInterrupt)
	} else {
		p.printf("  Faults/interrupt       %12s\n", "unknown")
	}

	if sum := cfg.RestartTime + cfg.CheckpointTime; sum > est.SystemMTBF {
		if sum > 10*est.SystemMTBF {
			p.printf("WARNING: checkpoint + restart time > system MTBF! This WILL take extremely long!\n")
		} else {
			p.printf("WARNING: checkpoint + restart time > system MTBF! This may take quite a while.\n")
		}
	}
	if cfg.CheckpointTime >= cfg.WorkTime {
		p.printf("WARNING: checkpoint time >= work time! Daly model will be wrong.\n")
	}
	return p.err
}

// Results writes the time breakdown, phase counts and fault totals of a
// completed run and compares them with the analytic estimates. Performance
// counters are included when perf is set.
func Results(w io.Writer, res *appmodel.Result, perf bool) error {
	p := &printer{w: w}
	st := &res.Stats
	est := &res.Estimates
	work := res.Config.WorkTime
	elapsed := res.Elapsed
	share := func(minutes float64) float64 { return 100 / elapsed * minutes }

	p.printf("\nSIMULATION\n")
	p.printf("  Application completed  %12.2f hours of work (%5.2f%% of work to be done)\n",
		hours(st.CompletedWork), 100/work*st.CompletedWork)
	p.printf("  Elapsed time           %12.2f hours (Overhead is %5.2f%%)\n", hours(elapsed), res.Overhead())

	var total, percent float64
	for _, row := range []struct {
		name    string
		minutes float64
	}{
		{"restart", st.Restart.Total + st.Restart.Wasted},
		{"rework", st.Rework.Total + st.Rework.Wasted},
		{"work", st.Work.Total + st.Work.Wasted},
		{"checkpoint", st.Checkpoint.Total + st.Checkpoint.Wasted},
	} {
		p.printf("  Total %-16s %12.2f hours      (%6.2f%%)\n", row.name+" time", hours(row.minutes), share(row.minutes))
		total += row.minutes
		percent += share(row.minutes)
	}
	p.printf("  Total RAS delay        %12.2f hours      (%6.2f%%)\n", hours(st.RASDelay), share(st.RASDelay))
	total += st.RASDelay
	percent += share(st.RASDelay)
	p.printf("    -----------------------------------------------------\n")
	p.printf("    Totals               %12.2f hours      (%6.2f%%)", hours(total), percent)
	if percent <= 99.9 || percent >= 100.1 {
		p.printf("   ERROR: Percentages do not add up\n")
	} else {
		p.printf("\n")
	}

	p.printf("\n")
	p.printf("  Number of restarts:        %5d    Failed:      %5d\n", st.Restart.Completed, st.Restart.Failed)
	p.printf("  Number of rework:          %5d    Failed:      %5d\n", st.Rework.Completed, st.Rework.Failed)
	p.printf("  Number of work segments:   %5d    Failed:      %5d\n", st.Work.Completed, st.Work.Failed)
	p.printf("  Number of checkpoints:     %5d    Failed:      %5d\n", st.Checkpoint.Completed, st.Checkpoint.Failed)
	p.printf("    ----------------------------------------------------\n")
	p.printf("                                      Fails:       %5d\n", st.FailedPhases())
	p.printf("                                      Interrupts:  %5d\n", st.Interrupts)

	p.printf("\n")
	p.printf("  Faults:                 %8d\n", st.Faults)
	p.printf("  Failed nodes:           %8d    Repaired:   %6d", st.NodeFailures, st.Repaired)
	if st.NodeFailures != st.Repaired {
		p.printf(" (%d nodes to be repaired after app completion)\n", st.NodeFailures-st.Repaired)
	} else {
		p.printf("\n")
	}
	reboots := st.SoftRebootSuccesses + st.SoftRebootFailures
	var rebootRate float64
	if reboots > 0 {
		rebootRate = 100 / float64(reboots) * float64(st.SoftRebootSuccesses)
	}
	p.printf("  Successful soft reboots:  %6d    Failed:     %6d (%.2f%%)\n",
		st.SoftRebootSuccesses, st.SoftRebootFailures, rebootRate)

	if st.Interrupts > 0 {
		fpi := res.FaultsPerInterrupt()
		p.printf("  Avg faults per int:     %8.3f", fpi)
		if est.FaultsPerInterrupt > 0 {
			off, dir := deviation(fpi, est.FaultsPerInterrupt)
			p.printf(",   %.2f%% %s calculated %.2f", off, dir, est.FaultsPerInterrupt)
		}
		p.printf("\n")
	} else {
		p.printf("  Avg faults per int:    >%8.3f\n", float64(st.Faults))
	}

	if st.Faults > 0 {
		mtbf := res.MeasuredSystemMTBF()
		p.printf("  System MTBF            %12.2f hours (%.3f minutes)", hours(mtbf), mtbf)
		if !res.Replayed {
			off, dir := deviation(mtbf, est.SystemMTBF)
			p.printf(", %.2f%% %s calculated %.2f hours", off, dir, hours(est.SystemMTBF))
		}
		p.printf("\n")
	} else {
		p.printf("  Measured system MTBF higher than running time.\n")
	}

	if st.Interrupts > 0 {
		mtbi := res.MeasuredAppMTBI()
		p.printf("  App. MTBI              %12.2f hours (%.3f minutes)", hours(mtbi), mtbi)
		if !res.Replayed {
			off, dir := deviation(mtbi, est.AppMTBF)
			p.printf(", %.2f%% %s calculated %.2f hours", off, dir, hours(est.AppMTBF))
		}
		p.printf("\n")
	} else {
		p.printf("  Measured application MTBF larger than running time\n")
	}

	if res.Replayed {
		p.printf("  Cannot model elapsed time (Daly)\n")
	} else {
		off, dir := deviation(est.DalyElapsed, elapsed)
		p.printf("  Modeled elapsed time   %12.2f hours (%.3f minutes), %.2f%% %s simulated %.2f hours\n",
			hours(est.DalyElapsed), est.DalyElapsed, off, dir, hours(elapsed))
	}

	if perf {
		p.printf("\nPROGRAM PERFORMANCE INFORMATION:\n")
		p.printf("  Generated %d random numbers and %d random probabilities\n", res.FailureDraws, res.ProbabilityDraws)
		p.printf("  Interrupt searches %d\n", res.Advances)
		var accepted float64
		if res.ReplayRead > 0 {
			accepted = 100 / float64(res.ReplayRead) * float64(res.ReplayAccepted)
		}
		p.printf("  Read %d faults from input file, accepted %d (%.2f%%)\n", res.ReplayRead, res.ReplayAccepted, accepted)
		p.printf("  Time to model this application: %v\n", res.ModelTime)
	}
	return p.err
}

// Trials writes the spread of a set of trial runs.
func Trials(w io.Writer, s *appmodel.Summary) error {
	p := &printer{w: w}
	p.printf("\nTRIALS %d\n", s.Trials)
	p.printf("  %-22s %12s %12s %12s %12s %12s\n", "", "min", "median", "max", "mean", "stddev")
	row := func(name string, scale float64, r appmodel.Range) {
		p.printf("  %-22s %12.2f %12.2f %12.2f %12.2f %12.2f\n", name,
			r.Min/scale, r.Median/scale, r.Max/scale, r.Mean/scale, r.StdDev/scale)
	}
	row("Elapsed (hours)", 60, s.Elapsed)
	row("Overhead (%)", 1, s.Overhead)
	row("Interrupts", 1, s.Interrupts)
	row("Faults", 1, s.Faults)
	row("Faults per interrupt", 1, s.FaultsPerInterrupt)
	return p.err
}
