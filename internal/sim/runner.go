package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/polecart/internal/control"
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

// Runner drives an engine with a policy and records the episode.
type Runner struct {
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	logger    *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
		logger:    logger,
	}
}

func (r *Runner) AddMetric(m dynamo.Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o dynamo.Observer) { r.observers = append(r.observers, o) }

// Run resets the engine if it has no live state and then steps it until
// MaxSteps, the context is cancelled, or (with StopOnBounds) the system leaves
// its bounds. On cancellation the partial episode is returned with ctx.Err().
func (r *Runner) Run(ctx context.Context, eng *env.Engine, policy dynamo.Controller, cfg RunConfig) (*Episode, error) {
	if cfg.MaxSteps <= 0 {
		return nil, fmt.Errorf("max steps must be positive, got %d", cfg.MaxSteps)
	}
	if !eng.HasState() {
		eng.Reset()
	}

	ep := &Episode{
		Config:  eng.Config(),
		States:  make([]dynamo.State, 0, cfg.MaxSteps+1),
		Actions: make([]env.Action, 0, cfg.MaxSteps),
		Times:   make([]float64, 0, cfg.MaxSteps+1),
		Rewards: make([]float64, 0, cfg.MaxSteps),
		Metrics: make(map[string]float64),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	ep.States = append(ep.States, eng.State())
	ep.Times = append(ep.Times, eng.Time())

	forceMag := eng.Config().ForceMag
	var runErr error

	for i := 0; i < cfg.MaxSteps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		if cfg.Mouse != nil {
			if v, ok := cfg.Mouse(i); ok {
				eng.UpdateMousePosition(v)
			}
		}

		x := eng.State()
		t := eng.Time()
		a := control.Discretize(policy.Compute(x, t))
		u := dynamo.Control{forceMag}
		if a == env.ActionLeft {
			u[0] = -forceMag
		}

		for _, m := range r.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range r.observers {
			obs.OnStep(x, u, t)
		}

		if _, err := eng.Step(a); err != nil {
			runErr = &dynamo.SimulationError{Step: i, Time: t, State: x, Wrapped: err}
			break
		}

		next := eng.State()
		if !next.IsValid() {
			runErr = &dynamo.SimulationError{Step: i, Time: t, State: next, Wrapped: dynamo.ErrInvalidState}
			r.logger.Error("simulation diverged", "step", i, "time", t)
			break
		}

		ep.Steps++
		ep.States = append(ep.States, next)
		ep.Actions = append(ep.Actions, a)
		ep.Times = append(ep.Times, eng.Time())
		ep.Rewards = append(ep.Rewards, eng.Reward())

		if cfg.StopOnBounds && eng.OutOfBounds() {
			ep.Terminated = true
			break
		}
	}

	for _, m := range r.metrics {
		ep.Metrics[m.Name()] = m.Value()
	}

	r.logger.Debug("episode finished",
		"steps", ep.Steps,
		"terminated", ep.Terminated,
		"reward", ep.TotalReward(),
	)
	return ep, runErr
}
