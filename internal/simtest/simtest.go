// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package simtest draws simulation configurations for property tests.
// Draws are biased toward a typical value so that shrinking converges on
// realistic machines rather than on degenerate ones.
package simtest

import (
	"fmt"
	"math"

	"github.com/petenewcomb/appmodel-go"
	"github.com/petenewcomb/appmodel-go/internal/rnd"
	"pgregory.net/rapid"
)

type BiasedIntConfig struct {
	Min int
	Med int
	Max int
}

func (c *BiasedIntConfig) Draw(t *rapid.T, name string) int {
	if c.Med < c.Min || c.Max < c.Med {
		panic(fmt.Sprint("invalid BiasedIntConfig:", *c))
	}
	return rapid.Custom(func(t *rapid.T) int {
		// Drawing from [min-med, max-med] makes rapid's preference for
		// values near zero a preference for values near med.
		return c.Med + rapid.IntRange(c.Min-c.Med, c.Max-c.Med).Draw(t, name+"(internal)")
	}).Draw(t, name)
}

type BiasedFloatConfig struct {
	Min float64
	Med float64
	Max float64
}

func (c *BiasedFloatConfig) Draw(t *rapid.T, name string) float64 {
	if c.Med < c.Min || c.Max < c.Med {
		panic(fmt.Sprint("invalid BiasedFloatConfig:", *c))
	}
	return rapid.Custom(func(t *rapid.T) float64 {
		v := c.Med + rapid.Float64Range(c.Min-c.Med, c.Max-c.Med).Draw(t, name+"(internal)")
		return min(max(v, c.Min), c.Max)
	}).Draw(t, name)
}

// biasedBoolBits is the resolution of BiasedBool's probability.
const biasedBoolBits = 24

// BiasedBool returns a generator that yields true with probability p. The
// draw is assembled from fair bits because rapid's numeric generators favor
// small values, which would skew the rate. Shrinking tends toward true.
func BiasedBool(p float64) *rapid.Generator[bool] {
	threshold := uint64(math.Round(min(max(p, 0), 1) * (1 << biasedBoolBits)))
	return rapid.Custom(func(t *rapid.T) bool {
		var u uint64
		for range biasedBoolBits {
			u <<= 1
			if rapid.Bool().Draw(t, "bit") {
				u |= 1
			}
		}
		return u < threshold
	})
}

// Config bounds the machines and applications drawn by Draw. Times are in
// minutes.
type Config struct {
	ActiveNodes BiasedIntConfig
	// RedundantShare is the percentage of active nodes given a spare.
	RedundantShare BiasedIntConfig
	CheckpointTime BiasedFloatConfig
	RestartTime    BiasedFloatConfig
	WorkTime       BiasedFloatConfig
	// SystemMTBF sets the node MTBF to this times the active node count.
	SystemMTBF BiasedFloatConfig
	RASDelay   BiasedFloatConfig
	Shape      BiasedFloatConfig

	RedundancyProbability float64
	SoftRebootProbability float64
	RASDelayProbability   float64
	// NonExponentialProbability selects gamma or Weibull failures.
	NonExponentialProbability float64
	MaxRebootsPerInterrupt    int
}

// DefaultConfig draws machines that fail often enough for a typical run to
// see tens of interrupts while keeping each run well under a second.
var DefaultConfig = Config{
	ActiveNodes:    BiasedIntConfig{Min: 1, Med: 16, Max: 128},
	RedundantShare: BiasedIntConfig{Min: 0, Med: 25, Max: 100},
	CheckpointTime: BiasedFloatConfig{Min: 0.5, Med: 5, Max: 20},
	RestartTime:    BiasedFloatConfig{Min: 0, Med: 10, Max: 30},
	WorkTime:       BiasedFloatConfig{Min: 60, Med: 24 * 60, Max: 72 * 60},
	SystemMTBF:     BiasedFloatConfig{Min: 60, Med: 90, Max: 12 * 60},
	RASDelay:       BiasedFloatConfig{Min: 0, Med: 1, Max: 10},
	Shape:          BiasedFloatConfig{Min: 0.5, Med: 1, Max: 3},

	RedundancyProbability:     0.5,
	SoftRebootProbability:     0.3,
	RASDelayProbability:       0.2,
	NonExponentialProbability: 0.3,
	MaxRebootsPerInterrupt:    500,
}

// Draw returns a valid configuration with a fixed seed.
func (c *Config) Draw(t *rapid.T) appmodel.Config {
	cfg := appmodel.DefaultConfig()
	cfg.ActiveNodes = c.ActiveNodes.Draw(t, "activeNodes")
	if BiasedBool(c.RedundancyProbability).Draw(t, "redundant") {
		share := c.RedundantShare.Draw(t, "redundantShare")
		cfg.RedundantNodes = max(1, cfg.ActiveNodes*share/100)
	}
	cfg.CheckpointTime = c.CheckpointTime.Draw(t, "checkpointTime")
	cfg.RestartTime = c.RestartTime.Draw(t, "restartTime")
	cfg.WorkTime = c.WorkTime.Draw(t, "workTime")
	cfg.Distribution.NodeMTBF = c.SystemMTBF.Draw(t, "systemMTBF") * float64(cfg.ActiveNodes)
	cfg.Distribution.Scale = cfg.Distribution.NodeMTBF
	if BiasedBool(c.NonExponentialProbability).Draw(t, "nonExponential") {
		cfg.Distribution.Kind = rapid.SampledFrom([]rnd.Kind{rnd.Gamma, rnd.Weibull}).Draw(t, "kind")
		cfg.Distribution.Shape = c.Shape.Draw(t, "shape")
		if cfg.Distribution.Kind == rnd.Gamma {
			// Keep the gamma mean at the node MTBF.
			cfg.Distribution.NodeMTBF /= cfg.Distribution.Shape
		}
	}
	if BiasedBool(c.RASDelayProbability).Draw(t, "rasDelayed") {
		cfg.RASDelay = c.RASDelay.Draw(t, "rasDelay")
	}
	if BiasedBool(c.SoftRebootProbability).Draw(t, "softReboot") {
		cfg.SoftReboot.SuccessRate = rapid.Float64Range(0, 100).Draw(t, "successRate")
		cfg.SoftReboot.Duration = rapid.Float64Range(0, 60).Draw(t, "rebootTime")
		cfg.SoftReboot.Hotswap = rapid.Bool().Draw(t, "hotswap")
		cfg.SoftReboot.MaxPerInterrupt = c.MaxRebootsPerInterrupt
	}
	cfg.LegacyOrder = rapid.Bool().Draw(t, "legacyOrder")
	cfg.FixedSeed = true
	cfg.Seed = rapid.Uint64().Draw(t, "seed")
	return cfg
}
