package control

import (
	"fmt"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

// Build is New followed by SetParam for every entry of params. A param the
// policy does not expose is an error; params on a policy without any
// tunables are ignored.
func Build(name string, params map[string]float64, rng env.RandSource) (dynamo.Controller, error) {
	p, err := New(name, params, rng)
	if err != nil {
		return nil, err
	}
	tunable, ok := p.(dynamo.Configurable)
	if !ok {
		return p, nil
	}
	for k, v := range params {
		if err := tunable.SetParam(k, v); err != nil {
			return nil, fmt.Errorf("policy %s: %w", name, err)
		}
	}
	return p, nil
}

// Switch builds a policy for an interactive session sharing one param set
// across policies: only params the policy exposes are applied.
func Switch(name string, params map[string]float64, rng env.RandSource) (dynamo.Controller, error) {
	p, err := New(name, params, rng)
	if err != nil {
		return nil, err
	}
	tunable, ok := p.(dynamo.Configurable)
	if !ok {
		return p, nil
	}
	known := tunable.GetParams()
	for k, v := range params {
		if _, ok := known[k]; !ok {
			continue
		}
		if err := tunable.SetParam(k, v); err != nil {
			return nil, fmt.Errorf("policy %s: %w", name, err)
		}
	}
	return p, nil
}
