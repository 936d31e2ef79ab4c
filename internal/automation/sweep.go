package automation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/polecart/internal/config"
	"github.com/san-kum/polecart/internal/sim"
)

// ParameterSweep runs a batch of episodes for evenly spaced values of one
// engine setting.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Runs      int
}

type SweepResult struct {
	ParamValue float64
	Summary    Summary
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, logger *slog.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	if logger == nil {
		logger = slog.Default()
	}
	runs := sweep.Runs
	if runs <= 0 {
		runs = 1
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := sweep.Base.Clone()
		if err := SetEnvParam(&cfg.Env, sweep.ParamName, paramVal); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		episodes, err := NewEnsemble(cfg, runs, logger).Run(ctx,
			sim.RunConfig{MaxSteps: cfg.MaxSteps, StopOnBounds: cfg.StopOnBounds})
		if err != nil {
			return nil, err
		}

		results = append(results, SweepResult{ParamValue: paramVal, Summary: Summarize(episodes)})
		logger.Debug("sweep point", "param", sweep.ParamName, "value", paramVal, "index", i+1, "of", sweep.NumSteps)
	}

	return results, nil
}
