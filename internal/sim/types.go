package sim

import (
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

// RunConfig bounds a headless episode.
type RunConfig struct {
	MaxSteps int
	// StopOnBounds ends the episode at the first step that leaves the cart
	// or pole thresholds. The engine itself never terminates.
	StopOnBounds bool
	// Mouse, when set, is asked for a target before every step. A false
	// second return leaves the target unchanged.
	Mouse func(step int) (float64, bool)
}

// Episode is the record of one run. States and Times include the initial
// state; Actions and Rewards have one entry per step.
type Episode struct {
	Config       env.Config
	Policy       string
	PolicyParams map[string]float64
	States       []dynamo.State
	Actions      []env.Action
	Times        []float64
	Rewards      []float64
	Metrics      map[string]float64
	Steps        int
	Terminated   bool
}

// TotalReward sums the per-step rewards.
func (ep *Episode) TotalReward() float64 {
	total := 0.0
	for _, r := range ep.Rewards {
		total += r
	}
	return total
}

func (ep *Episode) Final() dynamo.State {
	if len(ep.States) == 0 {
		return nil
	}
	return ep.States[len(ep.States)-1]
}
