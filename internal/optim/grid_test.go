package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridSearchFindsMinimum(t *testing.T) {
	g, err := ParseGrid(map[string][]float64{
		"a": {-1, 0, 1, 2},
		"b": {3, 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, g.Size())

	best, score, trials, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		return (p["a"]-1)*(p["a"]-1) + (p["b"]-5)*(p["b"]-5), nil
	})
	require.NoError(t, err)
	assert.Len(t, trials, 8)
	assert.Equal(t, map[string]float64{"a": 1, "b": 5}, best)
	assert.Equal(t, 0.0, score)
}

func TestGridSearchSkipsFailures(t *testing.T) {
	g, err := NewGridSearch([]string{"k"}, [][]float64{{1, 2, 3}})
	require.NoError(t, err)

	best, score, trials, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		if p["k"] == 1 {
			return 0, errors.New("unstable")
		}
		return p["k"], nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, best["k"])
	assert.Equal(t, 2.0, score)
	assert.Error(t, trials[0].Err)
}

func TestGridSearchAllFail(t *testing.T) {
	g, err := NewGridSearch([]string{"k"}, [][]float64{{1}})
	require.NoError(t, err)
	_, _, _, err = g.Search(context.Background(), func(context.Context, map[string]float64) (float64, error) {
		return 0, errors.New("boom")
	})
	assert.ErrorContains(t, err, "boom")
}

func TestGridSearchCancelled(t *testing.T) {
	g, err := NewGridSearch([]string{"k"}, [][]float64{{1, 2}})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err = g.Search(ctx, func(context.Context, map[string]float64) (float64, error) { return 0, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewGridSearchValidates(t *testing.T) {
	_, err := NewGridSearch(nil, nil)
	assert.Error(t, err)
	_, err = NewGridSearch([]string{"a"}, [][]float64{{}})
	assert.Error(t, err)
}
