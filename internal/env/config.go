package env

import (
	"fmt"
	"math"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/integrators"
)

const (
	DefaultGravity          = 9.8
	DefaultCartMass         = 1.0
	DefaultPoleMass         = 0.1
	DefaultPoleHalfLength   = 0.5
	DefaultForceMag         = 50.0
	DefaultTau              = 0.02
	DefaultIntegrator       = integrators.NameEuler
	DefaultPoleFriction     = 0.1
	DefaultXThreshold       = 2.4
	DefaultThetaThreshold   = 45 * math.Pi / 180
	DefaultRewardXThreshold = 0.5
	DefaultStackDepth       = 3
)

// Config holds the physical constants and thresholds of one engine. It is
// copied into the engine at construction and never changes afterwards.
type Config struct {
	Gravity          float64 `yaml:"gravity" json:"gravity" validate:"gte=0"`
	CartMass         float64 `yaml:"cart_mass" json:"cart_mass" validate:"gt=0"`
	PoleMass         float64 `yaml:"pole_mass" json:"pole_mass" validate:"gt=0"`
	PoleHalfLength   float64 `yaml:"pole_half_length" json:"pole_half_length" validate:"gt=0"`
	ForceMag         float64 `yaml:"force_mag" json:"force_mag" validate:"gt=0"`
	Tau              float64 `yaml:"tau" json:"tau" validate:"gt=0,lte=1"`
	Integrator       string  `yaml:"integrator" json:"integrator" validate:"required"`
	PoleFriction     float64 `yaml:"pole_friction" json:"pole_friction" validate:"gte=0"`
	XThreshold       float64 `yaml:"x_threshold" json:"x_threshold" validate:"gt=0"`
	ThetaThreshold   float64 `yaml:"theta_threshold" json:"theta_threshold" validate:"gt=0"`
	RewardXThreshold float64 `yaml:"reward_x_threshold" json:"reward_x_threshold" validate:"gt=0"`
	StackDepth       int     `yaml:"stack_depth" json:"stack_depth" validate:"gte=1,lte=64"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:          DefaultGravity,
		CartMass:         DefaultCartMass,
		PoleMass:         DefaultPoleMass,
		PoleHalfLength:   DefaultPoleHalfLength,
		ForceMag:         DefaultForceMag,
		Tau:              DefaultTau,
		Integrator:       DefaultIntegrator,
		PoleFriction:     DefaultPoleFriction,
		XThreshold:       DefaultXThreshold,
		ThetaThreshold:   DefaultThetaThreshold,
		RewardXThreshold: DefaultRewardXThreshold,
		StackDepth:       DefaultStackDepth,
	}
}

// withDefaults fills fields whose zero value is meaningless. Gravity and
// PoleFriction are taken literally because zero is a valid setting for both;
// start from DefaultConfig to get their defaults.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CartMass == 0 {
		c.CartMass = d.CartMass
	}
	if c.PoleMass == 0 {
		c.PoleMass = d.PoleMass
	}
	if c.PoleHalfLength == 0 {
		c.PoleHalfLength = d.PoleHalfLength
	}
	if c.ForceMag == 0 {
		c.ForceMag = d.ForceMag
	}
	if c.Tau == 0 {
		c.Tau = d.Tau
	}
	if c.Integrator == "" {
		c.Integrator = d.Integrator
	}
	if c.XThreshold == 0 {
		c.XThreshold = d.XThreshold
	}
	if c.ThetaThreshold == 0 {
		c.ThetaThreshold = d.ThetaThreshold
	}
	if c.RewardXThreshold == 0 {
		c.RewardXThreshold = d.RewardXThreshold
	}
	if c.StackDepth == 0 {
		c.StackDepth = d.StackDepth
	}
	return c
}

func (c Config) check() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"cart_mass", c.CartMass},
		{"pole_mass", c.PoleMass},
		{"pole_half_length", c.PoleHalfLength},
		{"tau", c.Tau},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %f: %w", p.name, p.value, dynamo.ErrParameterBounds)
		}
	}
	if c.StackDepth < 1 {
		return fmt.Errorf("stack_depth must be at least 1, got %d: %w", c.StackDepth, dynamo.ErrParameterBounds)
	}
	return nil
}

// TotalMass is cart mass plus pole mass.
func (c Config) TotalMass() float64 { return c.CartMass + c.PoleMass }

// PoleMassLength is pole mass times pole half-length.
func (c Config) PoleMassLength() float64 { return c.PoleMass * c.PoleHalfLength }
