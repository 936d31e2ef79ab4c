package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/polecart/internal/control"
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

func TestDominantFrequency(t *testing.T) {
	const dt = 0.01
	samples := make([]float64, 1000)
	for i := range samples {
		samples[i] = 3 + math.Sin(2*math.Pi*2.5*float64(i)*dt)
	}

	f, power := DominantFrequency(samples, dt)
	assert.InDelta(t, 2.5, f, 0.11)
	assert.Greater(t, power, 0.0)
}

func TestDominantFrequencyFlat(t *testing.T) {
	f, power := DominantFrequency([]float64{1, 1, 1, 1, 1}, 0.02)
	assert.Equal(t, 0.0, f)
	assert.Equal(t, 0.0, power)

	assert.Nil(t, PowerSpectrum([]float64{1}))
}

func TestPowerSpectrumLength(t *testing.T) {
	assert.Len(t, PowerSpectrum(make([]float64, 37)), 18)
}

func lqrPolicy() (dynamo.Controller, error) {
	return control.New("lqr", nil, nil)
}

func TestLyapunovLQRFinite(t *testing.T) {
	lambda, err := LyapunovExponent(env.DefaultConfig(), lqrPolicy, dynamo.State{0, 0, 0.05, 0, 0}, 200, 1e-7)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(lambda) || math.IsInf(lambda, 0))
}

// Without force the upright pole is a saddle. Linearizing the default
// parameters gives θ̈ ≈ 15.78θ - 3.22θ̇, whose unstable root is about 2.68/s.
// A short run adds the growth of the perturbation turning onto that mode.
func TestLyapunovUprightSaddle(t *testing.T) {
	cfg := env.DefaultConfig()
	cfg.ForceMag = 1e-9
	build := func() (dynamo.Controller, error) { return control.New("right", nil, nil) }

	lambda, err := LyapunovExponent(cfg, build, dynamo.State{0, 0, 0.001, 0, 0}, 50, 1e-8)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, lambda, 0.8)
}

func TestLyapunovRejectsBadArgs(t *testing.T) {
	_, err := LyapunovExponent(env.DefaultConfig(), lqrPolicy, dynamo.State{0, 0, 0, 0, 0}, 0, 1e-6)
	assert.Error(t, err)
}

func TestPhasePortrait(t *testing.T) {
	states := []dynamo.State{
		{0, 0, -0.1, -1, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0.1, 1, 0},
	}
	p, err := NewPhasePortrait(states, dynamo.IdxTheta, dynamo.IdxThetaDot)
	require.NoError(t, err)
	require.Len(t, p.Points, 3)

	minX, maxX, _, _ := p.Bounds()
	assert.InDelta(t, -0.12, minX, 1e-9)
	assert.InDelta(t, 0.12, maxX, 1e-9)

	art := p.ASCII(21, 11)
	lines := strings.Split(strings.TrimRight(art, "\n"), "\n")
	assert.Len(t, lines, 11)
	assert.Contains(t, art, "•")
	assert.Contains(t, art, ".")

	_, err = NewPhasePortrait(states, 0, 9)
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
}
