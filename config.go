// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package appmodel

import (
	"os"

	"github.com/petenewcomb/appmodel-go/internal/analytic"
	"github.com/petenewcomb/appmodel-go/internal/rnd"
	"github.com/petenewcomb/appmodel-go/internal/sched"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// Five years.
	DefaultNodeMTBF = 43800 * 60
	// One week.
	DefaultWorkTime = 168 * 60
)

// Config describes one application and machine. All durations are in
// minutes.
type Config struct {
	ActiveNodes    int `yaml:"active_nodes"`
	RedundantNodes int `yaml:"redundant_nodes"`

	CheckpointTime float64 `yaml:"checkpoint_time"`
	RestartTime    float64 `yaml:"restart_time"`
	WorkTime       float64 `yaml:"work_time"`
	// Tau is the compute time between checkpoints. Zero selects Daly's
	// estimate of the optimum.
	Tau float64 `yaml:"tau"`
	// RASDelay merges interrupts that follow the previous one within this
	// window, and is charged once per interrupt.
	RASDelay float64 `yaml:"ras_delay"`

	SoftReboot   SoftRebootConfig   `yaml:"soft_reboot"`
	Distribution DistributionConfig `yaml:"distribution"`

	FixedSeed bool   `yaml:"fixed_seed"`
	Seed      uint64 `yaml:"seed"`
	// LegacyOrder re-arms failed nodes in ID order, reproducing the draw
	// sequence of older versions for a fixed seed.
	LegacyOrder bool `yaml:"legacy_order"`

	// SystemMTBF and AppMTBF override the analytic estimates when non-zero.
	// AppMTBF also drives the computed Tau.
	SystemMTBF float64 `yaml:"system_mtbf"`
	AppMTBF    float64 `yaml:"app_mtbf"`
}

type SoftRebootConfig struct {
	// SuccessRate is a percentage. Negative disables soft reboots.
	SuccessRate float64 `yaml:"success_rate"`
	Duration    float64 `yaml:"duration"`
	Hotswap     bool    `yaml:"hotswap"`
	// MaxPerInterrupt bounds successful reboots while searching for one
	// interrupt. Zero selects the scheduler default.
	MaxPerInterrupt int `yaml:"max_per_interrupt"`
}

type DistributionConfig struct {
	Kind     rnd.Kind `yaml:"kind"`
	NodeMTBF float64  `yaml:"node_mtbf"`
	Shape    float64  `yaml:"shape"`
	Scale    float64  `yaml:"scale"`
}

func DefaultConfig() Config {
	return Config{
		ActiveNodes:    512,
		CheckpointTime: 5,
		RestartTime:    10,
		WorkTime:       DefaultWorkTime,
		SoftReboot: SoftRebootConfig{
			SuccessRate: -1,
		},
		Distribution: DistributionConfig{
			Kind:     rnd.Exponential,
			NodeMTBF: DefaultNodeMTBF,
			Shape:    0.5,
			Scale:    DefaultNodeMTBF,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig, so the file need only
// name the settings it changes.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "opening config")
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(ErrConfig, "decoding %s: %v", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ActiveNodes < 1 {
		return errors.Wrapf(ErrConfig, "active nodes must be > 0, got %d", c.ActiveNodes)
	}
	if c.RedundantNodes < 0 {
		return errors.Wrapf(ErrConfig, "redundant nodes must be >= 0, got %d", c.RedundantNodes)
	}
	if c.RedundantNodes > c.ActiveNodes {
		return invalidConfig(errors.Wrapf(sched.ErrRedundancyDepth, "%d redundant nodes for %d active nodes", c.RedundantNodes, c.ActiveNodes))
	}
	for _, d := range []struct {
		name string
		v    float64
	}{
		{"checkpoint time", c.CheckpointTime},
		{"restart time", c.RestartTime},
		{"tau", c.Tau},
		{"RAS delay", c.RASDelay},
		{"soft reboot duration", c.SoftReboot.Duration},
		{"system MTBF", c.SystemMTBF},
		{"application MTBF", c.AppMTBF},
	} {
		if d.v < 0 {
			return errors.Wrapf(ErrConfig, "%s must be >= 0, got %v", d.name, d.v)
		}
	}
	if !(c.WorkTime > 0) {
		return errors.Wrapf(ErrConfig, "work time must be > 0, got %v", c.WorkTime)
	}
	if c.SoftReboot.SuccessRate > 100 {
		return errors.Wrapf(ErrConfig, "soft reboot success rate must be <= 100%%, got %v", c.SoftReboot.SuccessRate)
	}
	if c.SoftReboot.MaxPerInterrupt < 0 {
		return errors.Wrapf(ErrConfig, "soft reboot budget must be >= 0, got %d", c.SoftReboot.MaxPerInterrupt)
	}
	if err := c.randomParams().Validate(); err != nil {
		return invalidConfig(err)
	}
	return nil
}

// Estimates are the analytic figures a run is planned with and judged
// against.
type Estimates struct {
	SystemMTBF float64
	AppMTBF    float64
	Tau        float64
	// FaultsPerInterrupt is zero when it cannot be estimated.
	FaultsPerInterrupt float64
	// DalyElapsed is the modeled total run time.
	DalyElapsed float64

	SystemMTBFGiven bool
	AppMTBFGiven    bool
	TauGiven        bool
}

// Estimate computes the analytic figures for c, honoring any values c
// overrides.
func (c *Config) Estimate() (Estimates, error) {
	nodeMTBF := c.Distribution.NodeMTBF
	e := Estimates{
		SystemMTBF:      c.SystemMTBF,
		AppMTBF:         c.AppMTBF,
		Tau:             c.Tau,
		SystemMTBFGiven: c.SystemMTBF > 0,
		AppMTBFGiven:    c.AppMTBF > 0,
		TauGiven:        c.Tau > 0,
	}
	if !e.SystemMTBFGiven {
		e.SystemMTBF = analytic.SystemMTBF(nodeMTBF, c.ActiveNodes, c.RedundantNodes)
	}
	if !e.AppMTBFGiven {
		e.AppMTBF = analytic.AppMTBF(nodeMTBF, c.ActiveNodes, c.RedundantNodes)
	}
	if !e.TauGiven {
		tau, err := analytic.DalyTau(c.CheckpointTime, e.AppMTBF)
		if err != nil {
			return e, invalidConfig(err)
		}
		if !(tau > 0) {
			return e, errors.Wrapf(ErrConfig, "computed checkpoint interval %v is not positive", tau)
		}
		e.Tau = tau
	}
	if fpi, ok := analytic.FaultsPerInterrupt(c.ActiveNodes, c.RedundantNodes); ok {
		e.FaultsPerInterrupt = fpi
	}
	e.DalyElapsed = analytic.DalyElapsed(e.AppMTBF, c.RestartTime, e.Tau, c.CheckpointTime, c.WorkTime)
	return e, nil
}

func (c *Config) randomParams() rnd.Params {
	return rnd.Params{
		Kind:      c.Distribution.Kind,
		NodeMTBF:  c.Distribution.NodeMTBF,
		Shape:     c.Distribution.Shape,
		Scale:     c.Distribution.Scale,
		Seed:      c.Seed,
		FixedSeed: c.FixedSeed,
	}
}

func (c *Config) schedParams() sched.Params {
	return sched.Params{
		Active:         c.ActiveNodes,
		Redundant:      c.RedundantNodes,
		SoftRebootRate: c.SoftReboot.SuccessRate,
		SoftRebootTime: c.SoftReboot.Duration,
		Hotswap:        c.SoftReboot.Hotswap,
		MaxReboots:     c.SoftReboot.MaxPerInterrupt,
		LegacyOrder:    c.LegacyOrder,
	}
}
