// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package analytic provides closed-form estimates used to pick a checkpoint
// interval and to judge simulated results. Times are in minutes.
package analytic

import (
	"math"

	"github.com/petenewcomb/appmodel-go/internal/cerr"
	"github.com/pkg/errors"
)

const ErrNegativeTau = cerr.Error("computed checkpoint interval is negative")

// qm2 is the expected number of draws until two land in the same one of n
// equally likely bins.
func qm2(n float64) float64 {
	return math.Sqrt(math.Pi*n/2) + 2.0/3.0
}

// SystemMTBF is the mean time between any two node faults.
func SystemMTBF(nodeMTBF float64, active, redundant int) float64 {
	p := float64(redundant) / float64(active)
	return nodeMTBF / (float64(active) * (1 + p))
}

// AppMTBF estimates the mean time between application interrupts. Bundles
// without a spare fail at the node rate; paired bundles fail when both
// members are down.
func AppMTBF(nodeMTBF float64, active, redundant int) float64 {
	var single, paired float64
	if redundant < active {
		single = nodeMTBF / float64(active-redundant)
	}
	if redundant > 0 {
		paired = nodeMTBF / (2 * float64(redundant)) * qm2(2*float64(redundant))
	}
	switch {
	case redundant >= active:
		return paired
	case redundant > 0:
		return 1 / (1/single + 1/paired)
	default:
		return single
	}
}

// DalyTau is Daly's higher order estimate of the optimal compute time
// between checkpoints.
func DalyTau(checkpoint, appMTBF float64) (float64, error) {
	if checkpoint >= 2*appMTBF {
		return appMTBF, nil
	}
	tau := math.Sqrt(2*checkpoint*appMTBF)*
		(1+math.Sqrt(checkpoint/(2*appMTBF))/3+checkpoint/(18*appMTBF)) - checkpoint
	if tau < 0 {
		return tau, errors.Wrapf(ErrNegativeTau, "checkpoint %v, application MTBF %v", checkpoint, appMTBF)
	}
	return tau, nil
}

// FaultsPerInterrupt is the expected number of node faults per application
// interrupt. It is only known when no bundle or every bundle has a spare.
func FaultsPerInterrupt(active, redundant int) (float64, bool) {
	switch redundant {
	case 0:
		return 1, true
	case active:
		return qm2(2 * float64(active)), true
	}
	return 0, false
}

// DalyElapsed models the total run time of work minutes of computation
// (Daly, eq. 20).
func DalyElapsed(appMTBF, restart, tau, checkpoint, work float64) float64 {
	return appMTBF * math.Exp(restart/appMTBF) * (math.Exp((tau+checkpoint)/appMTBF) - 1) * (work / tau)
}

// WeibullGamma is Γ(1+1/shape), the ratio of a Weibull distribution's mean
// to its scale.
func WeibullGamma(shape float64) float64 {
	return math.Gamma(1 + 1/shape)
}
