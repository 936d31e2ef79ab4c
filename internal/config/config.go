package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/polecart/internal/control"
	"github.com/san-kum/polecart/internal/env"
	"github.com/san-kum/polecart/internal/integrators"
)

const (
	DefaultPolicy          = "lqr"
	DefaultMaxSteps        = 500
	DefaultAddr            = ":8080"
	DefaultControlInterval = 20 * time.Millisecond
	DefaultFPS             = 30
	DefaultMouseRate       = 60.0
	DefaultMouseBurst      = 10
	DefaultDataDir         = "data"
)

type Config struct {
	Preset       string             `yaml:"preset,omitempty" json:"preset,omitempty"`
	Env          env.Config         `yaml:"env" json:"env"`
	Policy       string             `yaml:"policy" json:"policy" validate:"required,policy"`
	PolicyParams map[string]float64 `yaml:"policy_params,omitempty" json:"policy_params,omitempty"`
	Seed         int64              `yaml:"seed" json:"seed"`
	MaxSteps     int                `yaml:"max_steps" json:"max_steps" validate:"gt=0"`
	StopOnBounds bool               `yaml:"stop_on_bounds" json:"stop_on_bounds"`
	Server       ServerConfig       `yaml:"server" json:"server"`
	DataDir      string             `yaml:"data_dir" json:"data_dir" validate:"required"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr" validate:"required"`
	// ControlInterval is the wall-clock time between policy steps of a
	// browser session.
	ControlInterval time.Duration `yaml:"control_interval" json:"control_interval" validate:"gt=0"`
	FPS             int           `yaml:"fps" json:"fps" validate:"gt=0,lte=240"`
	// MouseRate is the sustained number of mouse messages per second a
	// session accepts; MouseBurst is the bucket size.
	MouseRate  float64 `yaml:"mouse_rate" json:"mouse_rate" validate:"gt=0"`
	MouseBurst int     `yaml:"mouse_burst" json:"mouse_burst" validate:"gte=1"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("policy", validatePolicy)
	validate.RegisterStructValidation(validateEnv, env.Config{})
}

func validatePolicy(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	for _, n := range control.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func validateEnv(sl validator.StructLevel) {
	c := sl.Current().Interface().(env.Config)
	if _, err := integrators.New(c.Integrator); err != nil {
		sl.ReportError(c.Integrator, "Integrator", "Integrator", "integrator", "")
	}
	if c.RewardXThreshold > c.XThreshold {
		sl.ReportError(c.RewardXThreshold, "RewardXThreshold", "RewardXThreshold", "ltefield", "XThreshold")
	}
}

func DefaultConfig() *Config {
	return &Config{
		Preset:   "classic",
		Env:      env.DefaultConfig(),
		Policy:   DefaultPolicy,
		MaxSteps: DefaultMaxSteps,
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ControlInterval: DefaultControlInterval,
			FPS:             DefaultFPS,
			MouseRate:       DefaultMouseRate,
			MouseBurst:      DefaultMouseBurst,
		},
		DataDir: DefaultDataDir,
	}
}

// Load reads a YAML file over the defaults, so a file only needs the keys it
// changes. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	if c.PolicyParams != nil {
		cp.PolicyParams = make(map[string]float64, len(c.PolicyParams))
		for k, v := range c.PolicyParams {
			cp.PolicyParams[k] = v
		}
	}
	return &cp
}
