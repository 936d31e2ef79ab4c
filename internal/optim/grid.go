// Package optim tunes policy parameters against episode outcomes.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Objective scores one parameter set; lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// GridSearch evaluates every combination of the candidate values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("grid search needs one value list per param, got %d params and %d lists", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("param %s has no values", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// ParseGrid turns {"ktheta": [..], "komega": [..]} into a search with
// params in sorted order.
func ParseGrid(grid map[string][]float64) (*GridSearch, error) {
	names := make([]string, 0, len(grid))
	for n := range grid {
		names = append(names, n)
	}
	sort.Strings(names)
	ranges := make([][]float64, len(names))
	for i, n := range names {
		ranges[i] = grid[n]
	}
	return NewGridSearch(names, ranges)
}

// Size is the number of combinations.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Trial is one evaluated combination.
type Trial struct {
	Params map[string]float64
	Score  float64
	Err    error
}

// Search evaluates every combination and returns the best parameters and
// score together with all trials. Failing combinations are recorded and
// skipped; Search fails only when none succeeds or ctx is cancelled.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (map[string]float64, float64, []Trial, error) {
	best := math.Inf(1)
	var bestParams map[string]float64
	trials := make([]Trial, 0, g.Size())

	err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, &trials)
	if err != nil {
		return nil, 0, trials, err
	}

	var firstErr error
	for _, tr := range trials {
		if tr.Err != nil {
			if firstErr == nil {
				firstErr = tr.Err
			}
			continue
		}
		if tr.Score < best {
			best = tr.Score
			bestParams = tr.Params
		}
	}
	if bestParams == nil {
		if firstErr == nil {
			firstErr = errors.New("no trial produced a score")
		}
		return nil, 0, trials, fmt.Errorf("grid search failed: %w", firstErr)
	}
	return bestParams, best, trials, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	trials *[]Trial,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		score, err := objective(ctx, current)
		if err == nil && math.IsNaN(score) {
			err = errors.New("objective returned NaN")
		}
		*trials = append(*trials, Trial{Params: current, Score: score, Err: err})
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, objective, trials); err != nil {
			return err
		}
	}
	return nil
}
