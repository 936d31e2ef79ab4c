package metrics

import (
	"math"

	"github.com/san-kum/polecart/internal/dynamo"
)

// Stability is the fraction of observed states inside the cart and pole
// bounds.
type Stability struct {
	name       string
	xLimit     float64
	thetaLimit float64
	violations int
	samples    int
}

func NewStability(xLimit, thetaLimit float64) *Stability {
	return &Stability{
		name:       "stability",
		xLimit:     xLimit,
		thetaLimit: thetaLimit,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x dynamo.State, u dynamo.Control, t float64) {
	s.samples++
	if math.Abs(x[dynamo.IdxX]) > s.xLimit || math.Abs(x[dynamo.IdxTheta]) > s.thetaLimit {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// MaxAngle is the largest absolute pole angle seen.
type MaxAngle struct {
	max float64
}

func NewMaxAngle() *MaxAngle { return &MaxAngle{} }

func (m *MaxAngle) Name() string { return "max_angle" }

func (m *MaxAngle) Observe(x dynamo.State, u dynamo.Control, t float64) {
	m.max = math.Max(m.max, math.Abs(x[dynamo.IdxTheta]))
}

func (m *MaxAngle) Value() float64 { return m.max }
func (m *MaxAngle) Reset()         { m.max = 0 }

// Tracking is the mean absolute distance between the cart and the mouse
// target.
type Tracking struct {
	sum     float64
	samples int
}

func NewTracking() *Tracking { return &Tracking{} }

func (m *Tracking) Name() string { return "tracking_error" }

func (m *Tracking) Observe(x dynamo.State, u dynamo.Control, t float64) {
	m.sum += math.Abs(x[dynamo.IdxMouse] - x[dynamo.IdxX])
	m.samples++
}

func (m *Tracking) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *Tracking) Reset() {
	m.sum = 0
	m.samples = 0
}

// Standard returns the metric set recorded for every episode.
func Standard(dyn dynamo.Hamiltonian, xLimit, thetaLimit float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewEnergyDrift(dyn),
		NewControlEffort(),
		NewSwitches(),
		NewStability(xLimit, thetaLimit),
		NewMaxAngle(),
		NewTracking(),
	}
}
