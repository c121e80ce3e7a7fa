// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package appmodel_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/petenewcomb/appmodel-go"
	"github.com/petenewcomb/appmodel-go/internal/rnd"
	"github.com/petenewcomb/appmodel-go/internal/sched"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "appmodel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	chk := require.New(t)
	cfg, err := appmodel.LoadConfig(writeConfig(t, `
active_nodes: 1024
redundant_nodes: 512
ras_delay: 1.5
soft_reboot:
  success_rate: 75
  duration: 4
  hotswap: true
distribution:
  kind: weibull
  shape: 0.7
fixed_seed: true
seed: 99
`))
	chk.NoError(err)
	chk.Equal(1024, cfg.ActiveNodes)
	chk.Equal(512, cfg.RedundantNodes)
	chk.Equal(1.5, cfg.RASDelay)
	chk.Equal(75.0, cfg.SoftReboot.SuccessRate)
	chk.Equal(4.0, cfg.SoftReboot.Duration)
	chk.True(cfg.SoftReboot.Hotswap)
	chk.Equal(rnd.Weibull, cfg.Distribution.Kind)
	chk.Equal(0.7, cfg.Distribution.Shape)
	chk.True(cfg.FixedSeed)
	chk.Equal(uint64(99), cfg.Seed)

	def := appmodel.DefaultConfig()
	chk.Equal(def.CheckpointTime, cfg.CheckpointTime)
	chk.Equal(def.WorkTime, cfg.WorkTime)
	chk.Equal(def.Distribution.NodeMTBF, cfg.Distribution.NodeMTBF)
	chk.NoError(cfg.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	chk := require.New(t)
	_, err := appmodel.LoadConfig(writeConfig(t, "active_nodez: 3\n"))
	chk.ErrorIs(err, appmodel.ErrConfig)
	_, err = appmodel.LoadConfig(writeConfig(t, "active_nodes: [1\n"))
	chk.ErrorIs(err, appmodel.ErrConfig)
	_, err = appmodel.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	chk.ErrorIs(err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*appmodel.Config)
		want   error
	}{
		{"defaults", func(*appmodel.Config) {}, nil},
		{"no active nodes", func(c *appmodel.Config) { c.ActiveNodes = 0 }, appmodel.ErrConfig},
		{"negative redundant", func(c *appmodel.Config) { c.RedundantNodes = -1 }, appmodel.ErrConfig},
		{"too many redundant", func(c *appmodel.Config) { c.RedundantNodes = c.ActiveNodes + 1 }, sched.ErrRedundancyDepth},
		{"full redundancy", func(c *appmodel.Config) { c.RedundantNodes = c.ActiveNodes }, nil},
		{"negative checkpoint", func(c *appmodel.Config) { c.CheckpointTime = -1 }, appmodel.ErrConfig},
		{"negative restart", func(c *appmodel.Config) { c.RestartTime = -1 }, appmodel.ErrConfig},
		{"negative tau", func(c *appmodel.Config) { c.Tau = -1 }, appmodel.ErrConfig},
		{"negative RAS delay", func(c *appmodel.Config) { c.RASDelay = -1 }, appmodel.ErrConfig},
		{"no work", func(c *appmodel.Config) { c.WorkTime = 0 }, appmodel.ErrConfig},
		{"rate above 100", func(c *appmodel.Config) { c.SoftReboot.SuccessRate = 101 }, appmodel.ErrConfig},
		{"negative reboot budget", func(c *appmodel.Config) { c.SoftReboot.MaxPerInterrupt = -1 }, appmodel.ErrConfig},
		{"unknown distribution", func(c *appmodel.Config) { c.Distribution.Kind = "pareto" }, appmodel.ErrConfig},
		{"zero node MTBF", func(c *appmodel.Config) { c.Distribution.NodeMTBF = 0 }, rnd.ErrDistribution},
		{"bad weibull shape", func(c *appmodel.Config) {
			c.Distribution.Kind = rnd.Weibull
			c.Distribution.Shape = 0
		}, rnd.ErrDistribution},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := appmodel.DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
				require.ErrorIs(t, err, appmodel.ErrConfig)
			}
		})
	}
}

func TestConfigErrorKeepsCause(t *testing.T) {
	chk := require.New(t)
	cfg := appmodel.DefaultConfig()
	cfg.Distribution.Kind = rnd.Gamma
	cfg.Distribution.Shape = -1
	err := cfg.Validate()
	chk.ErrorIs(err, appmodel.ErrConfig)
	chk.ErrorIs(err, rnd.ErrDistribution)
	chk.Contains(err.Error(), "gamma shape")
	chk.NotErrorIs(err, sched.ErrRedundancyDepth)
}

func TestEstimate(t *testing.T) {
	chk := require.New(t)
	cfg := appmodel.DefaultConfig()
	est, err := cfg.Estimate()
	chk.NoError(err)
	chk.InDelta(5132.8125, est.SystemMTBF, 1e-6)
	chk.InDelta(5132.8125, est.AppMTBF, 1e-6)
	chk.InDelta(223.236, est.Tau, 1e-3)
	chk.False(est.TauGiven)
	chk.Positive(est.DalyElapsed)

	cfg.Tau = 90
	cfg.AppMTBF = 1000
	cfg.SystemMTBF = 500
	est, err = cfg.Estimate()
	chk.NoError(err)
	chk.Equal(90.0, est.Tau)
	chk.Equal(1000.0, est.AppMTBF)
	chk.Equal(500.0, est.SystemMTBF)
	chk.True(est.TauGiven && est.AppMTBFGiven && est.SystemMTBFGiven)
}
