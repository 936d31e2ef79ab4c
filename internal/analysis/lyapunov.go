package analysis

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/polecart/internal/control"
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

// LyapunovExponent estimates the largest exponent of the closed loop formed
// by cfg and the policies build returns, one for each of two trajectories
// that start perturbation apart in pole angle. The result is per second.
//
// Algorithm:
//  1. Step both trajectories under their own policy instance
//  2. Accumulate ln(|δx| / |δx(0)|) after each step
//  3. Rescale δx back to |δx(0)| so it stays in the linear regime
//  4. λ ≈ sum / (steps · τ)
func LyapunovExponent(
	cfg env.Config,
	build func() (dynamo.Controller, error),
	x0 dynamo.State,
	steps int,
	perturbation float64,
) (float64, error) {
	if steps <= 0 || perturbation <= 0 {
		return 0, fmt.Errorf("steps and perturbation must be positive")
	}

	ref, err := env.New(cfg, env.WithRandSource(rand.New(rand.NewSource(1))))
	if err != nil {
		return 0, err
	}
	pert, err := env.New(cfg, env.WithRandSource(rand.New(rand.NewSource(1))))
	if err != nil {
		return 0, err
	}
	defer ref.Close()
	defer pert.Close()

	if _, err := ref.ResetTo(x0); err != nil {
		return 0, err
	}
	xp := x0.Clone()
	xp[dynamo.IdxTheta] += perturbation
	if _, err := pert.ResetTo(xp); err != nil {
		return 0, err
	}

	refPolicy, err := build()
	if err != nil {
		return 0, err
	}
	pertPolicy, err := build()
	if err != nil {
		return 0, err
	}

	sumLog := 0.0
	for i := 0; i < steps; i++ {
		if err := advance(ref, refPolicy); err != nil {
			return 0, err
		}
		if err := advance(pert, pertPolicy); err != nil {
			return 0, err
		}

		x, y := ref.State(), pert.State()
		sep := separation(x, y)
		if sep == 0 {
			// Trajectories merged; restart the perturbation.
			y = x.Clone()
			y[dynamo.IdxTheta] += perturbation
		} else {
			sumLog += math.Log(sep / perturbation)
			scale := perturbation / sep
			for j := 0; j < dynamo.IdxMouse; j++ {
				y[j] = x[j] + (y[j]-x[j])*scale
			}
		}
		if _, err := pert.ResetTo(y); err != nil {
			return 0, err
		}
	}

	return sumLog / (float64(steps) * ref.Config().Tau), nil
}

func advance(eng *env.Engine, policy dynamo.Controller) error {
	a := control.Discretize(policy.Compute(eng.State(), eng.Time()))
	_, err := eng.Step(a)
	return err
}

// separation is the Euclidean distance over the physical components, with
// the angle difference wrapped.
func separation(a, b dynamo.State) float64 {
	sum := 0.0
	for i := 0; i < dynamo.IdxMouse; i++ {
		d := b[i] - a[i]
		if i == dynamo.IdxTheta {
			d = dynamo.WrapAngle(d)
		}
		sum += d * d
	}
	return math.Sqrt(sum)
}
