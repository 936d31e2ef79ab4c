package config

import (
	"sort"

	"github.com/san-kum/polecart/internal/integrators"
)

func preset(name string, mutate func(c *Config)) *Config {
	c := DefaultConfig()
	c.Preset = name
	mutate(c)
	return c
}

var Presets = map[string]*Config{
	"classic": preset("classic", func(c *Config) {}),
	"heavy-pole": preset("heavy-pole", func(c *Config) {
		c.Env.PoleMass = 0.5
		c.Env.PoleHalfLength = 1.0
		c.Env.ForceMag = 80
	}),
	"frictionless": preset("frictionless", func(c *Config) {
		c.Env.PoleFriction = 0
	}),
	"symplectic": preset("symplectic", func(c *Config) {
		c.Env.Integrator = integrators.NameSemiImplicit
	}),
	"twitchy": preset("twitchy", func(c *Config) {
		c.Env.Tau = 0.01
		c.Env.PoleMass = 0.05
		c.Env.PoleHalfLength = 0.25
		c.Env.StackDepth = 8
		c.MaxSteps = 1000
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
