package export

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
	"github.com/san-kum/polecart/internal/render"
	"github.com/san-kum/polecart/internal/sim"
)

func testEpisode() *sim.Episode {
	return &sim.Episode{
		Config: env.DefaultConfig(),
		Policy: "lqr",
		States: []dynamo.State{
			{0, 0, 0.01, 0, 0},
			{0.01, 0.5, 0.005, -0.2, 0},
			{0.02, 0.4, -0.002, -0.3, 1},
		},
		Actions: []env.Action{env.ActionRight, env.ActionLeft},
		Times:   []float64{0, 0.02, 0.04},
		Rewards: []float64{1, 1},
		Metrics: map[string]float64{"max_angle": 0.01},
		Steps:   2,
	}
}

func TestSeries(t *testing.T) {
	ep := testEpisode()

	overTime := Series(ep, -1, dynamo.IdxX)
	require.Len(t, overTime, 3)
	assert.Equal(t, Point{X: 0.04, Y: 0.02}, overTime[2])

	phase := Series(ep, dynamo.IdxTheta, dynamo.IdxThetaDot)
	assert.Equal(t, Point{X: 0.005, Y: -0.2}, phase[1])
}

func TestTrajectorySVG(t *testing.T) {
	assert.Empty(t, TrajectorySVG([]Point{{0, 0}}, 100, 100, "#fff"))

	svg := TrajectorySVG([]Point{{0, 0}, {1, 1}}, 120, 120, "#00ff00")
	assert.Contains(t, svg, `stroke="#00ff00"`)
	assert.Contains(t, svg, "M10.0,110.0 L110.0,10.0")
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
}

func TestSceneSVG(t *testing.T) {
	svg := SceneSVG(render.DefaultScene(2.4, 0.5), dynamo.State{0, 0, 0, 0, 0})
	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.Contains(t, svg, `id="cart"`)
	assert.Contains(t, svg, `id="pole"`)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, "classic", testEpisode()))

	var got ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "classic", got.Preset)
	assert.Equal(t, "euler", got.Integrator)
	assert.Equal(t, 2, got.Steps)
	assert.Len(t, got.States, 3)
	assert.Equal(t, []env.Action{env.ActionRight, env.ActionLeft}, got.Actions)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testEpisode()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(CSVHeader, ","), lines[0])
	assert.Equal(t, "0.000000,0.000000,0.000000,0.010000,0.000000,0.000000,,", lines[1])
	assert.Equal(t, "0.040000,0.020000,0.400000,-0.002000,-0.300000,1.000000,0,1.000000", lines[3])
}

func TestSaveEpisodePlots(t *testing.T) {
	dir := t.TempDir()
	paths, err := SaveEpisodePlots(dir, testEpisode())
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for _, p := range paths {
		assert.Equal(t, dir, filepath.Dir(p))
		f, err := os.Open(p)
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(f)
		f.Close()
		require.NoError(t, err)
		assert.InDelta(t, float64(8*PlotDPI), float64(cfg.Width), 1)
	}
}

func TestSaveLinePlotRejectsBadData(t *testing.T) {
	err := SaveLinePlot(filepath.Join(t.TempDir(), "x.png"), "t", "x", "y", []float64{1, 2}, []float64{1})
	assert.Error(t, err)
}
