package control

import (
	"math"

	"github.com/san-kum/polecart/internal/dynamo"
)

// LQR is full-state feedback u = -K(x - target) over the first len(K[i])
// state components.
type LQR struct {
	K      [][]float64
	Target dynamo.State
}

func NewLQR(k [][]float64, target dynamo.State) *LQR {
	return &LQR{K: k, Target: target}
}

func (l *LQR) Compute(x dynamo.State, t float64) dynamo.Control {
	return l.feedback(x, l.Target)
}

func (l *LQR) feedback(x, target dynamo.State) dynamo.Control {
	u := make(dynamo.Control, len(l.K))
	for i := range u {
		for j := range x {
			ref := 0.0
			if j < len(target) {
				ref = target[j]
			}
			if j < len(l.K[i]) {
				u[i] -= l.K[i][j] * (x[j] - ref)
			}
		}
	}
	return u
}

func (l *LQR) GetParams() map[string]float64 {
	params := make(map[string]float64)
	names := []string{"kx", "kv", "ktheta", "komega"}
	for j, name := range names {
		if len(l.K) > 0 && j < len(l.K[0]) {
			params[name] = l.K[0][j]
		}
	}
	return params
}

func (l *LQR) SetParam(name string, value float64) error {
	idx := map[string]int{"kx": 0, "kv": 1, "ktheta": 2, "komega": 3}
	j, ok := idx[name]
	if !ok || len(l.K) == 0 || j >= len(l.K[0]) {
		return errUnknownParam(name)
	}
	l.K[0][j] = value
	return nil
}

var (
	cartpoleGains = []float64{-1.0, -1.73, -35.36, -8.94}
	followGains   = []float64{-3.0, -3.0, -40.0, -10.0}
)

// NewCartPoleLQR balances the pole at the track centre.
func NewCartPoleLQR() *LQR {
	k := append([]float64(nil), cartpoleGains...)
	return NewLQR([][]float64{k}, dynamo.State{0, 0, 0, 0})
}

// MouseFollow balances the pole while steering the cart towards the mouse
// target stored in the state. The target is clamped to ±Limit so the
// controller never chases the cart off the track.
type MouseFollow struct {
	lqr   *LQR
	Limit float64
}

func NewMouseFollow(limit float64) *MouseFollow {
	k := append([]float64(nil), followGains...)
	return &MouseFollow{lqr: NewLQR([][]float64{k}, nil), Limit: limit}
}

func (m *MouseFollow) Compute(x dynamo.State, t float64) dynamo.Control {
	if len(x) < dynamo.IdxMouse {
		return dynamo.Control{0}
	}
	target := 0.0
	if len(x) > dynamo.IdxMouse {
		target = x[dynamo.IdxMouse]
	}
	if m.Limit > 0 {
		target = math.Max(-m.Limit, math.Min(m.Limit, target))
	}
	return m.lqr.feedback(x[:dynamo.IdxMouse], dynamo.State{target, 0, 0, 0})
}

func (m *MouseFollow) GetParams() map[string]float64 {
	p := m.lqr.GetParams()
	p["limit"] = m.Limit
	return p
}

func (m *MouseFollow) SetParam(name string, value float64) error {
	if name == "limit" {
		m.Limit = value
		return nil
	}
	return m.lqr.SetParam(name, value)
}
