package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

type seq struct {
	vals []float64
	i    int
}

func (s *seq) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func TestDiscretize(t *testing.T) {
	assert.Equal(t, env.ActionLeft, Discretize(dynamo.Control{-0.1}))
	assert.Equal(t, env.ActionRight, Discretize(dynamo.Control{0}))
	assert.Equal(t, env.ActionRight, Discretize(dynamo.Control{3}))
	assert.Equal(t, env.ActionRight, Discretize(nil))
}

func TestCartPoleLQRPushesUnderTheFallingPole(t *testing.T) {
	ctrl := NewCartPoleLQR()

	assert.Equal(t, env.ActionRight, Discretize(ctrl.Compute(dynamo.State{0, 0, 0.1, 0, 0}, 0)))
	assert.Equal(t, env.ActionLeft, Discretize(ctrl.Compute(dynamo.State{0, 0, -0.1, 0, 0}, 0)))
	assert.Equal(t, env.ActionRight, Discretize(ctrl.Compute(dynamo.State{0, 0, 0, 0.5, 0}, 0)))
}

func TestCartPoleLQRParams(t *testing.T) {
	ctrl := NewCartPoleLQR()
	require.NoError(t, ctrl.SetParam("ktheta", -50))
	assert.Equal(t, -50.0, ctrl.GetParams()["ktheta"])
	assert.Error(t, ctrl.SetParam("kz", 1))

	// Gains are per instance.
	assert.Equal(t, cartpoleGains[2], NewCartPoleLQR().GetParams()["ktheta"])
}

func TestMouseFollowTracksTarget(t *testing.T) {
	ctrl := NewMouseFollow(2.0)

	right := ctrl.Compute(dynamo.State{0, 0, 0, 0, 1.0}, 0)
	left := ctrl.Compute(dynamo.State{0, 0, 0, 0, -1.0}, 0)
	assert.Less(t, right[0], 0.0, "cart left of target first swings the pole towards the target")
	assert.Greater(t, left[0], 0.0)

	atTarget := ctrl.Compute(dynamo.State{1.0, 0, 0, 0, 1.0}, 0)
	assert.InDelta(t, 0, atTarget[0], 1e-12)
}

func TestMouseFollowClampsTarget(t *testing.T) {
	ctrl := NewMouseFollow(1.0)

	far := ctrl.Compute(dynamo.State{0, 0, 0, 0, 100}, 0)
	edge := ctrl.Compute(dynamo.State{0, 0, 0, 0, 1.0}, 0)
	assert.Equal(t, edge, far)

	require.NoError(t, ctrl.SetParam("limit", 5))
	assert.Equal(t, 5.0, ctrl.GetParams()["limit"])
}

func TestMouseFollowShortState(t *testing.T) {
	ctrl := NewMouseFollow(1.0)
	assert.Equal(t, dynamo.Control{0}, ctrl.Compute(dynamo.State{0, 0}, 0))
}

func TestRandom(t *testing.T) {
	ctrl := NewRandom(&seq{vals: []float64{0.1, 0.9}})
	assert.Equal(t, env.ActionLeft, Discretize(ctrl.Compute(nil, 0)))
	assert.Equal(t, env.ActionRight, Discretize(ctrl.Compute(nil, 0)))
}

func TestManual(t *testing.T) {
	ctrl := NewManual()
	assert.Equal(t, env.ActionRight, ctrl.Action())

	ctrl.SetAction(env.ActionLeft)
	assert.Equal(t, env.ActionLeft, Discretize(ctrl.Compute(nil, 0)))

	ctrl.SetAction(env.Action(7))
	assert.Equal(t, env.ActionLeft, ctrl.Action())
}

func TestConstant(t *testing.T) {
	assert.Equal(t, env.ActionLeft, Discretize(NewConstant(env.ActionLeft).Compute(nil, 0)))
	assert.Equal(t, env.ActionRight, Discretize(NewConstant(env.ActionRight).Compute(nil, 0)))
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		ctrl, err := New(name, nil, nil)
		require.NoError(t, err, name)
		assert.NotNil(t, ctrl, name)
	}

	_, err := New("pid", nil, nil)
	assert.Error(t, err)

	mf, err := New("mouse", map[string]float64{"limit": 0.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, mf.(*MouseFollow).Limit)
}

func TestBuildAppliesParams(t *testing.T) {
	p, err := Build("lqr", map[string]float64{"ktheta": -99}, nil)
	require.NoError(t, err)
	assert.Equal(t, -99.0, p.(*LQR).GetParams()["ktheta"])

	mf, err := Build("mouse", map[string]float64{"kx": -5, "limit": 1.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, -5.0, mf.(*MouseFollow).GetParams()["kx"])
	assert.Equal(t, 1.5, mf.(*MouseFollow).Limit)

	_, err = Build("lqr", map[string]float64{"kzeta": 1}, nil)
	assert.Error(t, err)

	_, err = Build("random", map[string]float64{"ktheta": -99}, nil)
	assert.NoError(t, err)
}

func TestSwitchSkipsForeignParams(t *testing.T) {
	params := map[string]float64{"ktheta": -99, "limit": 1.5}

	p, err := Switch("lqr", params, nil)
	require.NoError(t, err)
	assert.Equal(t, -99.0, p.(*LQR).GetParams()["ktheta"])

	mf, err := Switch("mouse", params, nil)
	require.NoError(t, err)
	assert.Equal(t, -99.0, mf.(*MouseFollow).GetParams()["ktheta"])
	assert.Equal(t, 1.5, mf.(*MouseFollow).Limit)

	_, err = Build("lqr", params, nil)
	assert.Error(t, err, "limit is not an lqr param")
}
