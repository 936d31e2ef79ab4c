package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/polecart/internal/dynamo"
)

func TestCartPoleEquilibrium(t *testing.T) {
	c := NewCartPole()

	x := dynamo.State{0, 0, 0, 0, 0}
	dx := c.Derive(x, dynamo.Control{0}, 0)

	for i, v := range dx {
		if math.Abs(v) > 1e-12 {
			t.Errorf("expected zero derivative at upright equilibrium, dx[%d] = %f", i, v)
		}
	}
}

func TestCartPoleDimensions(t *testing.T) {
	c := NewCartPole()

	if c.StateDim() != 5 {
		t.Errorf("expected state dim 5, got %d", c.StateDim())
	}
	if c.ControlDim() != 1 {
		t.Errorf("expected control dim 1, got %d", c.ControlDim())
	}
	if got := c.TotalMass(); math.Abs(got-1.1) > 1e-12 {
		t.Errorf("expected total mass 1.1, got %f", got)
	}
	if got := c.PoleMassLength(); math.Abs(got-0.05) > 1e-12 {
		t.Errorf("expected pole mass length 0.05, got %f", got)
	}
}

func TestCartPoleForceSign(t *testing.T) {
	c := NewCartPole()

	left, _ := c.Accelerations(0.01, 0.1, -50)
	right, _ := c.Accelerations(0.01, 0.1, 50)

	if !(left < right) {
		t.Errorf("expected left force to give smaller acceleration: left=%f right=%f", left, right)
	}
	if left >= 0 || right <= 0 {
		t.Errorf("expected accelerations to follow force sign: left=%f right=%f", left, right)
	}
}

func TestCartPoleFrictionOpposesRotation(t *testing.T) {
	c := NewCartPole()

	_, alpha := c.Accelerations(0, 2.0, 0)
	if alpha >= 0 {
		t.Errorf("expected friction to decelerate positive spin, got %f", alpha)
	}

	c.PoleFriction = 0
	_, alpha = c.Accelerations(0, 2.0, 0)
	if math.Abs(alpha) > 1e-12 {
		t.Errorf("expected no angular acceleration without friction, got %f", alpha)
	}
}

func TestCartPoleMouseHasNoDerivative(t *testing.T) {
	c := NewCartPole()

	dx := c.Derive(dynamo.State{0.3, 0.2, 0.1, -0.4, 1.7}, dynamo.Control{50}, 0)
	if dx[dynamo.IdxMouse] != 0 {
		t.Errorf("expected zero mouse derivative, got %f", dx[dynamo.IdxMouse])
	}
	if dx[dynamo.IdxX] != 0.2 || dx[dynamo.IdxTheta] != -0.4 {
		t.Errorf("expected position derivatives to equal velocities, got %v", dx)
	}
}

func TestCartPoleEnergyUpright(t *testing.T) {
	c := NewCartPole()

	e := c.Energy(dynamo.State{0, 0, 0, 0, 0})
	expected := c.PoleMass * c.Gravity * c.HalfLength
	if math.Abs(e-expected) > 1e-12 {
		t.Errorf("expected energy %f, got %f", expected, e)
	}
}

func TestCartPoleSetParam(t *testing.T) {
	c := NewCartPole()

	if err := c.SetParam("pole_mass", 0.2); err != nil {
		t.Fatalf("set pole_mass: %v", err)
	}
	if math.Abs(c.TotalMass()-1.2) > 1e-12 {
		t.Errorf("derived total mass not refreshed: %f", c.TotalMass())
	}

	if err := c.SetParam("cart_mass", 0); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
	if err := c.SetParam("nope", 1); err == nil {
		t.Error("expected error for unknown param")
	}

	params := c.GetParams()
	if params["pole_mass"] != 0.2 {
		t.Errorf("expected pole_mass 0.2 in params, got %f", params["pole_mass"])
	}
}
