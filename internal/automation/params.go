package automation

import (
	"fmt"
	"sort"

	"github.com/san-kum/polecart/internal/env"
)

var envParams = map[string]func(c *env.Config) *float64{
	"gravity":            func(c *env.Config) *float64 { return &c.Gravity },
	"cart_mass":          func(c *env.Config) *float64 { return &c.CartMass },
	"pole_mass":          func(c *env.Config) *float64 { return &c.PoleMass },
	"pole_half_length":   func(c *env.Config) *float64 { return &c.PoleHalfLength },
	"force_mag":          func(c *env.Config) *float64 { return &c.ForceMag },
	"tau":                func(c *env.Config) *float64 { return &c.Tau },
	"pole_friction":      func(c *env.Config) *float64 { return &c.PoleFriction },
	"x_threshold":        func(c *env.Config) *float64 { return &c.XThreshold },
	"theta_threshold":    func(c *env.Config) *float64 { return &c.ThetaThreshold },
	"reward_x_threshold": func(c *env.Config) *float64 { return &c.RewardXThreshold },
}

// SetEnvParam sets a numeric engine setting by its config file key.
func SetEnvParam(c *env.Config, name string, value float64) error {
	field, ok := envParams[name]
	if !ok {
		return fmt.Errorf("unknown env param: %s", name)
	}
	*field(c) = value
	return nil
}

func EnvParams() []string {
	names := make([]string, 0, len(envParams))
	for n := range envParams {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
