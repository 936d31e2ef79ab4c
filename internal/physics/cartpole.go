package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/polecart/internal/dynamo"
)

// CartPole is the classic cart-pole with viscous pole friction. The state is
// [x, ẋ, θ, θ̇, mouse]; the mouse component is exogenous and has zero
// derivative.
type CartPole struct {
	CartMass     float64
	PoleMass     float64
	HalfLength   float64
	Gravity      float64
	PoleFriction float64

	totalMass      float64
	poleMassLength float64
}

func NewCartPole() *CartPole {
	c := &CartPole{
		CartMass:     1.0,
		PoleMass:     0.1,
		HalfLength:   0.5,
		Gravity:      9.8,
		PoleFriction: 0.1,
	}
	c.derive()
	return c
}

func (c *CartPole) derive() {
	c.totalMass = c.CartMass + c.PoleMass
	c.poleMassLength = c.PoleMass * c.HalfLength
}

func (c *CartPole) TotalMass() float64      { return c.totalMass }
func (c *CartPole) PoleMassLength() float64 { return c.poleMassLength }

func (c *CartPole) StateDim() int {
	return dynamo.StateSize
}

func (c *CartPole) ControlDim() int {
	return 1
}

func (c *CartPole) Pairs() [][2]int {
	return [][2]int{
		{dynamo.IdxX, dynamo.IdxXDot},
		{dynamo.IdxTheta, dynamo.IdxThetaDot},
	}
}

// Accelerations returns (ẍ, θ̈) for the given angle, angular velocity and
// horizontal force.
func (c *CartPole) Accelerations(theta, omega, force float64) (float64, float64) {
	mp := c.PoleMass
	l := c.HalfLength
	g := c.Gravity
	m := c.totalMass
	pml := c.poleMassLength

	sint := math.Sin(theta)
	cost := math.Cos(theta)

	temp := (force + pml*omega*omega*sint) / m
	thetaacc := (g*sint - cost*temp - c.PoleFriction*omega/pml) / (l * (4.0/3.0 - mp*cost*cost/m))
	xacc := temp - pml*thetaacc*cost/m

	return xacc, thetaacc
}

func (c *CartPole) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}

	xacc, thetaacc := c.Accelerations(x[dynamo.IdxTheta], x[dynamo.IdxThetaDot], force)

	dx := make(dynamo.State, len(x))
	dx[dynamo.IdxX] = x[dynamo.IdxXDot]
	dx[dynamo.IdxXDot] = xacc
	dx[dynamo.IdxTheta] = x[dynamo.IdxThetaDot]
	dx[dynamo.IdxThetaDot] = thetaacc
	return dx
}

// Energy treats the pole as a uniform rod of length 2l pivoting on the cart.
// Zero potential is the horizontal pole.
func (c *CartPole) Energy(x dynamo.State) float64 {
	v := x[dynamo.IdxXDot]
	theta := x[dynamo.IdxTheta]
	omega := x[dynamo.IdxThetaDot]
	l := c.HalfLength

	ke := 0.5*c.totalMass*v*v +
		c.poleMassLength*v*omega*math.Cos(theta) +
		0.5*c.PoleMass*l*l*omega*omega*(4.0/3.0)
	pe := c.PoleMass * c.Gravity * l * math.Cos(theta)
	return ke + pe
}

func (c *CartPole) GetParams() map[string]float64 {
	return map[string]float64{
		"cart_mass":        c.CartMass,
		"pole_mass":        c.PoleMass,
		"pole_half_length": c.HalfLength,
		"gravity":          c.Gravity,
		"pole_friction":    c.PoleFriction,
	}
}

func (c *CartPole) SetParam(name string, value float64) error {
	switch name {
	case "cart_mass", "pole_mass", "pole_half_length":
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %f: %w", name, value, dynamo.ErrParameterBounds)
		}
	}
	switch name {
	case "cart_mass":
		c.CartMass = value
	case "pole_mass":
		c.PoleMass = value
	case "pole_half_length":
		c.HalfLength = value
	case "gravity":
		c.Gravity = value
	case "pole_friction":
		c.PoleFriction = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	c.derive()
	return nil
}
