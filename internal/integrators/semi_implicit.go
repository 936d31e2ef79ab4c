package integrators

import "github.com/san-kum/polecart/internal/dynamo"

// SemiImplicit is symplectic Euler: for every (position, velocity) pair the
// velocity is advanced first and the position then moves with the new
// velocity. Components outside any pair take an explicit Euler step.
type SemiImplicit struct {
	paired []bool
}

func NewSemiImplicit() *SemiImplicit {
	return &SemiImplicit{}
}

func (s *SemiImplicit) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))

	coupled, ok := dyn.(dynamo.Coupled)
	if !ok {
		for i := range x {
			result[i] = x[i] + dt*dx[i]
		}
		return result
	}

	if len(s.paired) != len(x) {
		s.paired = make([]bool, len(x))
	}
	for i := range s.paired {
		s.paired[i] = false
	}

	for _, p := range coupled.Pairs() {
		pos, vel := p[0], p[1]
		result[vel] = x[vel] + dt*dx[vel]
		result[pos] = x[pos] + dt*result[vel]
		s.paired[pos], s.paired[vel] = true, true
	}

	for i := range x {
		if !s.paired[i] {
			result[i] = x[i] + dt*dx[i]
		}
	}
	return result
}
