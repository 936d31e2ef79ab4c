package integrators

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/polecart/internal/dynamo"
)

const (
	NameEuler        = "euler"
	NameSemiImplicit = "semi-implicit"
	NameRK4          = "rk4"
)

var ErrUnknownIntegrator = errors.New("integrators: unknown integrator")

var registry = map[string]func() dynamo.Integrator{
	NameEuler:        func() dynamo.Integrator { return NewEuler() },
	NameSemiImplicit: func() dynamo.Integrator { return NewSemiImplicit() },
	NameRK4:          func() dynamo.Integrator { return NewRK4() },
}

var aliases = map[string]string{
	"semi_implicit":       NameSemiImplicit,
	"semi-implicit-euler": NameSemiImplicit,
	"symplectic":          NameSemiImplicit,
	"explicit":            NameEuler,
}

// Canonical resolves aliases and case. Unknown names are returned unchanged.
func Canonical(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if c, ok := aliases[n]; ok {
		return c
	}
	return n
}

func New(name string) (dynamo.Integrator, error) {
	fn, ok := registry[Canonical(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntegrator, name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
