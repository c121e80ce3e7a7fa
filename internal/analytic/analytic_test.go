// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package analytic_test

import (
	"math"
	"testing"

	"github.com/petenewcomb/appmodel-go/internal/analytic"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const fiveYears = 43800 * 60

func TestDefaults(t *testing.T) {
	chk := require.New(t)
	chk.InDelta(5132.8125, analytic.SystemMTBF(fiveYears, 512, 0), 1e-9)
	m := analytic.AppMTBF(fiveYears, 512, 0)
	chk.InDelta(5132.8125, m, 1e-9)

	tau, err := analytic.DalyTau(5, m)
	chk.NoError(err)
	chk.InDelta(223.236, tau, 1e-3)

	chk.InDelta(10558.884, analytic.DalyElapsed(m, 10, tau, 5, 168*60), 1e-3)

	fpi, ok := analytic.FaultsPerInterrupt(512, 0)
	chk.True(ok)
	chk.Equal(1.0, fpi)
}

func TestRedundancy(t *testing.T) {
	chk := require.New(t)
	chk.InDelta(fiveYears/1024.0, analytic.SystemMTBF(fiveYears, 512, 512), 1e-9)
	chk.InDelta(104639.361, analytic.AppMTBF(fiveYears, 512, 512), 1e-3)
	chk.InDelta(9603.880, analytic.AppMTBF(fiveYears, 512, 256), 1e-3)

	fpi, ok := analytic.FaultsPerInterrupt(512, 512)
	chk.True(ok)
	chk.InDelta(40.773, fpi, 1e-3)
	_, ok = analytic.FaultsPerInterrupt(512, 100)
	chk.False(ok)
}

func TestDalyTauLongCheckpoint(t *testing.T) {
	chk := require.New(t)
	tau, err := analytic.DalyTau(100, 40)
	chk.NoError(err)
	chk.Equal(40.0, tau)
}

func TestDalyTauIsPositive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := rapid.Float64Range(0.01, 1000).Draw(t, "checkpoint")
		m := rapid.Float64Range(0.01, 1e7).Draw(t, "mtbf")
		tau, err := analytic.DalyTau(c, m)
		require.NoError(t, err)
		require.Greater(t, tau, 0.0)
	})
}

func TestWeibullGamma(t *testing.T) {
	chk := require.New(t)
	chk.InDelta(1, analytic.WeibullGamma(1), 1e-12)
	chk.InDelta(2, analytic.WeibullGamma(0.5), 1e-12)
	chk.InDelta(math.Sqrt(math.Pi)/2, analytic.WeibullGamma(2), 1e-12)
}
