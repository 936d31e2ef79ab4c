package env

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/integrators"
	"github.com/san-kum/polecart/internal/physics"
)

// resetSpread bounds the uniform draw for the initial cart position and pole
// angle.
const resetSpread = 0.005

// Observation is the flat concatenation of the most recent states, oldest
// first.
type Observation []float64

// Engine is the cart-pole environment. It is not safe for concurrent use;
// callers serialize Reset, Step and UpdateMousePosition.
type Engine struct {
	cfg      Config
	dyn      *physics.CartPole
	integ    dynamo.Integrator
	rng      RandSource
	renderer Renderer
	logger   *slog.Logger

	state   dynamo.State
	history *History
	steps   int
}

type Option func(*Engine)

// WithRenderer attaches a renderer that Render, Reset and
// UpdateMousePosition feed.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithRandSource replaces the time-seeded source used by Reset.
func WithRandSource(r RandSource) Option {
	return func(e *Engine) { e.rng = r }
}

// WithLogger replaces the default logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New builds an engine with no state; call Reset before Step. Zero masses,
// lengths, force, tau, thresholds and stack depth take their defaults, but a
// zero Gravity or PoleFriction is used as given. Callers wanting the standard
// 9.8 gravity and 0.1 pole friction must start from DefaultConfig.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.check(); err != nil {
		return nil, err
	}

	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	cfg.Integrator = integrators.Canonical(cfg.Integrator)

	dyn := physics.NewCartPole()
	dyn.Gravity = cfg.Gravity
	dyn.PoleFriction = cfg.PoleFriction
	for name, v := range map[string]float64{
		"cart_mass":        cfg.CartMass,
		"pole_mass":        cfg.PoleMass,
		"pole_half_length": cfg.PoleHalfLength,
	} {
		if err := dyn.SetParam(name, v); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		cfg:     cfg,
		dyn:     dyn,
		integ:   integ,
		history: NewHistory(cfg.StackDepth),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = defaultRandSource()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Dynamics exposes the underlying model, e.g. for energy metrics.
func (e *Engine) Dynamics() *physics.CartPole { return e.dyn }

func (e *Engine) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*e.rng.Float64()
}

// Reset samples a fresh initial state and refills the history with copies of
// it. Cart position and pole angle are uniform in ±0.005; velocities and the
// mouse target are zero.
func (e *Engine) Reset() Observation {
	s := make(dynamo.State, dynamo.StateSize)
	s[dynamo.IdxX] = e.uniform(-resetSpread, resetSpread)
	s[dynamo.IdxTheta] = e.uniform(-resetSpread, resetSpread)

	return e.start(s)
}

func (e *Engine) start(s dynamo.State) Observation {
	e.state = s
	e.steps = 0
	e.history.Clear()
	for i := 0; i < e.history.Cap(); i++ {
		e.history.Push(s)
	}

	if e.renderer != nil {
		e.renderer.DrawCart(s[dynamo.IdxX])
		e.renderer.DrawPole(s[dynamo.IdxX], s[dynamo.IdxTheta])
		e.renderer.DrawMouseIndicator(s[dynamo.IdxMouse])
	}
	return e.StackedObservation()
}

// ResetTo is Reset with a caller-supplied initial state instead of a random
// draw. The angle is wrapped into (-π, π].
func (e *Engine) ResetTo(s dynamo.State) (Observation, error) {
	if len(s) != dynamo.StateSize {
		return nil, fmt.Errorf("reset state has %d components, want %d: %w", len(s), dynamo.StateSize, dynamo.ErrDimensionMismatch)
	}
	if !s.IsValid() {
		return nil, dynamo.ErrInvalidState
	}
	s = s.Clone()
	s[dynamo.IdxTheta] = dynamo.WrapAngle(s[dynamo.IdxTheta])
	return e.start(s), nil
}

// Step advances the state by one time step under the given action. Calling
// it before Reset or with an action other than left/right is reported and
// has no effect.
func (e *Engine) Step(a Action) (Observation, error) {
	if e.state == nil {
		e.logger.Warn("step called before reset")
		return nil, dynamo.ErrNotReset
	}
	if !a.Valid() {
		e.logger.Warn("invalid action", "action", int(a))
		return nil, fmt.Errorf("%w: %d (want %d or %d)", dynamo.ErrInvalidAction, int(a), ActionLeft, ActionRight)
	}

	force := e.cfg.ForceMag
	if a == ActionLeft {
		force = -force
	}

	t := float64(e.steps) * e.cfg.Tau
	next := e.integ.Step(e.dyn, e.state, dynamo.Control{force}, t, e.cfg.Tau)
	next[dynamo.IdxTheta] = dynamo.WrapAngle(next[dynamo.IdxTheta])
	next[dynamo.IdxMouse] = e.state[dynamo.IdxMouse]

	e.state = next
	e.history.Push(next)
	e.steps++

	return e.StackedObservation(), nil
}

// UpdateMousePosition overwrites the mouse target of the live state. Past
// history entries keep the value they were recorded with.
func (e *Engine) UpdateMousePosition(x float64) {
	if e.state == nil {
		return
	}
	e.state[dynamo.IdxMouse] = x
	if e.renderer != nil {
		e.renderer.DrawMouseIndicator(x)
	}
}

func (e *Engine) StackedObservation() Observation {
	obs := make(Observation, 0, e.history.Len()*dynamo.StateSize)
	return e.history.Flatten(obs)
}

// Render asks the attached renderer to animate towards the current state
// over d.
func (e *Engine) Render(d time.Duration) {
	if e.renderer == nil || e.state == nil {
		return
	}
	e.renderer.AnimateTo(e.state[dynamo.IdxX], e.state[dynamo.IdxTheta], d)
}

// Close discards the state. A later Step reports ErrNotReset until Reset is
// called again.
func (e *Engine) Close() error {
	e.state = nil
	e.history.Clear()
	return nil
}

func (e *Engine) HasState() bool { return e.state != nil }

// State returns a copy of the live state, or nil before Reset.
func (e *Engine) State() dynamo.State {
	if e.state == nil {
		return nil
	}
	return e.state.Clone()
}

// Elapsed is the number of steps since the last Reset.
func (e *Engine) Elapsed() int { return e.steps }

// Time is the simulated time since the last Reset.
func (e *Engine) Time() float64 { return float64(e.steps) * e.cfg.Tau }

// OutOfBounds reports whether the cart or the pole left the configured
// thresholds. Step never consults it.
func (e *Engine) OutOfBounds() bool {
	if e.state == nil {
		return false
	}
	return math.Abs(e.state[dynamo.IdxX]) > e.cfg.XThreshold ||
		math.Abs(e.state[dynamo.IdxTheta]) > e.cfg.ThetaThreshold
}

// Reward is 1 while the cart stays within the reward band and the system is
// inside its bounds, 0 otherwise.
func (e *Engine) Reward() float64 {
	if e.state == nil || e.OutOfBounds() {
		return 0
	}
	if math.Abs(e.state[dynamo.IdxX]) > e.cfg.RewardXThreshold {
		return 0
	}
	return 1
}
