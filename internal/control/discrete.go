package control

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

// Discretize maps a continuous force onto the binary action set. Zero and
// positive forces push right.
func Discretize(u dynamo.Control) env.Action {
	if len(u) > 0 && u[0] < 0 {
		return env.ActionLeft
	}
	return env.ActionRight
}

func forceFor(a env.Action) dynamo.Control {
	if a == env.ActionLeft {
		return dynamo.Control{-1}
	}
	return dynamo.Control{1}
}

func errUnknownParam(name string) error {
	return fmt.Errorf("unknown param: %s", name)
}

var factories = map[string]func(params map[string]float64, rng env.RandSource) dynamo.Controller{
	"lqr": func(params map[string]float64, rng env.RandSource) dynamo.Controller {
		return NewCartPoleLQR()
	},
	"mouse": func(params map[string]float64, rng env.RandSource) dynamo.Controller {
		limit, ok := params["limit"]
		if !ok {
			limit = env.DefaultXThreshold - 0.4
		}
		return NewMouseFollow(limit)
	},
	"random": func(params map[string]float64, rng env.RandSource) dynamo.Controller {
		return NewRandom(rng)
	},
	"manual": func(params map[string]float64, rng env.RandSource) dynamo.Controller {
		return NewManual()
	},
	"left": func(params map[string]float64, rng env.RandSource) dynamo.Controller {
		return NewConstant(env.ActionLeft)
	},
	"right": func(params map[string]float64, rng env.RandSource) dynamo.Controller {
		return NewConstant(env.ActionRight)
	},
}

// New builds a named policy. A nil rng gets a time-seeded source.
func New(name string, params map[string]float64, rng env.RandSource) (dynamo.Controller, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return fn(params, rng), nil
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
