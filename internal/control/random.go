package control

import (
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

// Random picks left or right with equal probability.
type Random struct {
	rng env.RandSource
}

func NewRandom(rng env.RandSource) *Random {
	return &Random{rng: rng}
}

func (r *Random) Compute(x dynamo.State, t float64) dynamo.Control {
	if r.rng.Float64() < 0.5 {
		return forceFor(env.ActionLeft)
	}
	return forceFor(env.ActionRight)
}
