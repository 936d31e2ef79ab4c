package control

import (
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

// Manual replays the last action a human chose, e.g. from arrow keys or a
// browser button.
type Manual struct {
	action env.Action
}

func NewManual() *Manual {
	return &Manual{action: env.ActionRight}
}

// SetAction ignores values outside the action set.
func (c *Manual) SetAction(a env.Action) {
	if !a.Valid() {
		return
	}
	c.action = a
}

func (c *Manual) Action() env.Action { return c.action }

func (c *Manual) Compute(state dynamo.State, t float64) dynamo.Control {
	return forceFor(c.action)
}
