package control

import (
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

// Constant always pushes the same way.
type Constant struct {
	action env.Action
}

func NewConstant(a env.Action) *Constant {
	return &Constant{action: a}
}

func (c *Constant) Compute(x dynamo.State, t float64) dynamo.Control {
	return forceFor(c.action)
}
