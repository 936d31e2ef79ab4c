package sim

import (
	"context"
	"log/slog"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

// Ensemble runs independent episodes in parallel. Every run gets its own
// engine, policy and metric set, seeded from SeedStart plus its index.
type Ensemble struct {
	Config    env.Config
	Runs      int
	SeedStart int64
	// Workers caps concurrent runs; zero means unbounded.
	Workers int
	Policy  func(rng env.RandSource) (dynamo.Controller, error)
	Metrics func(eng *env.Engine) []dynamo.Metric
	Logger  *slog.Logger
}

func (e *Ensemble) Run(ctx context.Context, rc RunConfig) ([]*Episode, error) {
	episodes := make([]*Episode, e.Runs)

	g, gctx := errgroup.WithContext(ctx)
	if e.Workers > 0 {
		g.SetLimit(e.Workers)
	}

	for i := 0; i < e.Runs; i++ {
		idx := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(e.SeedStart + int64(idx)))

			eng, err := env.New(e.Config, env.WithRandSource(rng), env.WithLogger(e.Logger))
			if err != nil {
				return err
			}
			defer eng.Close()

			policy, err := e.Policy(rng)
			if err != nil {
				return err
			}

			runner := NewRunner(e.Logger)
			if e.Metrics != nil {
				for _, m := range e.Metrics(eng) {
					runner.AddMetric(m)
				}
			}

			ep, err := runner.Run(gctx, eng, policy, rc)
			episodes[idx] = ep
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return episodes, nil
}
