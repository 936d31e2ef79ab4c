package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/polecart/internal/config"
	"github.com/san-kum/polecart/internal/control"
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
	"github.com/san-kum/polecart/internal/metrics"
	"github.com/san-kum/polecart/internal/sim"
	"github.com/san-kum/polecart/internal/storage"
)

// Scenario defines a scripted sequence of episode batches.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one batch. Env keys are the config file names of engine
// settings, e.g. pole_mass.
type ScenarioStep struct {
	Name         string             `yaml:"name"`
	Preset       string             `yaml:"preset"`
	Policy       string             `yaml:"policy"`
	PolicyParams map[string]float64 `yaml:"policy_params"`
	Env          map[string]float64 `yaml:"env"`
	Integrator   string             `yaml:"integrator"`
	MaxSteps     int                `yaml:"max_steps"`
	Runs         int                `yaml:"runs"`
	Seed         int64              `yaml:"seed"`
	StopOnBounds bool               `yaml:"stop_on_bounds"`
	// Mouse moves the target to MouseX at step MouseAt when set.
	MouseX  *float64 `yaml:"mouse_x"`
	MouseAt int      `yaml:"mouse_at"`
	// SaveAs stores every episode under this preset label.
	SaveAs string `yaml:"save_as"`
}

// StepResult pairs a scenario step with its outcome.
type StepResult struct {
	Step    ScenarioStep
	Summary Summary
	RunIDs  []string
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Resolve builds the validated config for a step.
func (st ScenarioStep) Resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if st.Preset != "" {
		if cfg = config.GetPreset(st.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", st.Preset)
		}
	}
	if st.Policy != "" {
		cfg.Policy = st.Policy
	}
	if st.PolicyParams != nil {
		cfg.PolicyParams = st.PolicyParams
	}
	if st.Integrator != "" {
		cfg.Env.Integrator = st.Integrator
	}
	for k, v := range st.Env {
		if err := SetEnvParam(&cfg.Env, k, v); err != nil {
			return nil, err
		}
	}
	if st.MaxSteps > 0 {
		cfg.MaxSteps = st.MaxSteps
	}
	if st.Seed != 0 {
		cfg.Seed = st.Seed
	}
	cfg.StopOnBounds = cfg.StopOnBounds || st.StopOnBounds
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewEnsemble wires cfg into an ensemble using the standard metrics. Each
// run builds its policy with control.Build from Policy and PolicyParams.
func NewEnsemble(cfg *config.Config, runs int, logger *slog.Logger) *sim.Ensemble {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &sim.Ensemble{
		Config:    cfg.Env,
		Runs:      runs,
		SeedStart: seed,
		Policy: func(rng env.RandSource) (dynamo.Controller, error) {
			return control.Build(cfg.Policy, cfg.PolicyParams, rng)
		},
		Metrics: func(eng *env.Engine) []dynamo.Metric {
			c := eng.Config()
			return metrics.Standard(eng.Dynamics(), c.XThreshold, c.ThetaThreshold)
		},
		Logger: logger,
	}
}

// RunScenario executes every step in order. A nil store skips SaveAs.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store, logger *slog.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		logger.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "name", step.Name)

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		runs := step.Runs
		if runs <= 0 {
			runs = 1
		}

		rc := sim.RunConfig{MaxSteps: cfg.MaxSteps, StopOnBounds: cfg.StopOnBounds}
		if step.MouseX != nil {
			target, at := *step.MouseX, step.MouseAt
			rc.Mouse = func(n int) (float64, bool) { return target, n == at }
		}

		ens := NewEnsemble(cfg, runs, logger)
		episodes, err := ens.Run(ctx, rc)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		res := StepResult{Step: step, Summary: Summarize(episodes)}
		if step.SaveAs != "" && store != nil {
			for j, ep := range episodes {
				ep.Policy = cfg.Policy
				ep.PolicyParams = cfg.PolicyParams
				id, err := store.Save(step.SaveAs, ens.SeedStart+int64(j), ep)
				if err != nil {
					return results, fmt.Errorf("step %d save: %w", i+1, err)
				}
				res.RunIDs = append(res.RunIDs, id)
			}
		}
		results = append(results, res)
	}

	return results, nil
}
