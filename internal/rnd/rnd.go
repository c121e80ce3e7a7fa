// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package rnd draws node failure times and reboot probabilities.
package rnd

import (
	"os"
	"time"

	"github.com/petenewcomb/appmodel-go/internal/cerr"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const ErrDistribution = cerr.Error("invalid failure distribution")

type Kind string

const (
	Exponential Kind = "exponential"
	Gamma       Kind = "gamma"
	Weibull     Kind = "weibull"
)

// ParseKind accepts the long names and the short forms exp, gam and wei.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "exponential", "exp":
		return Exponential, nil
	case "gamma", "gam":
		return Gamma, nil
	case "weibull", "wei":
		return Weibull, nil
	}
	return "", errors.Wrapf(ErrDistribution, "unknown distribution %q", s)
}

// Params selects the distribution of the wait between a node's anchor time
// and its next failure. All durations are in minutes.
type Params struct {
	Kind     Kind
	NodeMTBF float64
	// Shape applies to gamma and Weibull.
	Shape float64
	// Scale applies to Weibull only; gamma is scaled by NodeMTBF.
	Scale float64
	// Seed is used when FixedSeed is set. Otherwise the seed is derived from
	// the wall clock and process ID.
	Seed      uint64
	FixedSeed bool
}

func (p Params) Validate() error {
	if !(p.NodeMTBF > 0) {
		return errors.Wrapf(ErrDistribution, "node MTBF must be positive, got %v", p.NodeMTBF)
	}
	switch p.Kind {
	case Exponential:
	case Gamma:
		if !(p.Shape > 0) {
			return errors.Wrapf(ErrDistribution, "gamma shape must be positive, got %v", p.Shape)
		}
	case Weibull:
		if !(p.Shape > 0) || !(p.Scale > 0) {
			return errors.Wrapf(ErrDistribution, "weibull shape and scale must be positive, got %v and %v", p.Shape, p.Scale)
		}
	default:
		return errors.Wrapf(ErrDistribution, "unknown distribution %q", p.Kind)
	}
	return nil
}

// Source is a seeded generator of failure times. It is not safe for
// concurrent use; each simulation owns one.
type Source struct {
	seed        uint64
	wait        distuv.Rander
	flat        distuv.Uniform
	failures    int
	probability int
}

func New(p Params) (*Source, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	seed := p.Seed
	if !p.FixedSeed {
		seed = uint64(time.Now().Unix()) + uint64(os.Getpid())
	}
	src := rand.NewSource(seed)

	s := &Source{
		seed: seed,
		flat: distuv.Uniform{Min: 0, Max: 1, Src: src},
	}
	switch p.Kind {
	case Exponential:
		s.wait = distuv.Exponential{Rate: 1 / p.NodeMTBF, Src: src}
	case Gamma:
		s.wait = distuv.Gamma{Alpha: p.Shape, Beta: 1 / p.NodeMTBF, Src: src}
	case Weibull:
		s.wait = distuv.Weibull{K: p.Shape, Lambda: p.Scale, Src: src}
	}
	return s, nil
}

// NextFailure returns anchor plus a freshly drawn wait.
func (s *Source) NextFailure(anchor float64) float64 {
	s.failures++
	return anchor + s.wait.Rand()
}

// Probability returns a uniform draw from [0, 1).
func (s *Source) Probability() float64 {
	s.probability++
	return s.flat.Rand()
}

func (s *Source) Seed() uint64 {
	return s.seed
}

// Draws reports how many failure times and probabilities have been drawn.
func (s *Source) Draws() (failures, probabilities int) {
	return s.failures, s.probability
}
