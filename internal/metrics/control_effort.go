package metrics

import (
	"math"

	"github.com/san-kum/polecart/internal/dynamo"
)

// ControlEffort is the mean absolute force applied per step.
type ControlEffort struct {
	name    string
	total   float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	for _, ui := range u {
		c.total += math.Abs(ui)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.total / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.total = 0
	c.samples = 0
}

// Switches counts how often the sign of the applied force flips, as a
// fraction of steps. Bang-bang policies chatter; a steady push scores 0.
type Switches struct {
	name     string
	last     float64
	switches int
	samples  int
}

func NewSwitches() *Switches {
	return &Switches{
		name: "switch_rate",
	}
}

func (s *Switches) Name() string {
	return s.name
}

func (s *Switches) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(u) == 0 {
		return
	}
	if s.samples > 0 && (u[0] < 0) != (s.last < 0) {
		s.switches++
	}
	s.last = u[0]
	s.samples++
}

func (s *Switches) Value() float64 {
	if s.samples < 2 {
		return 0
	}
	return float64(s.switches) / float64(s.samples-1)
}

func (s *Switches) Reset() {
	s.last = 0
	s.switches = 0
	s.samples = 0
}
