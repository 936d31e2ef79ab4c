package integrators

import "github.com/san-kum/polecart/internal/dynamo"

// Euler is the explicit scheme: every component advances with the
// derivative evaluated at the start of the step, so positions move with the
// pre-update velocities.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
