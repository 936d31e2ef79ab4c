package export

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/sim"
)

// PlotDPI is the resolution of saved PNG plots.
var PlotDPI = 150

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Tick.Marker = limitedTicker(8, "%.1f")
	p.Y.Tick.Marker = limitedTicker(8, "%.2f")
}

// SavePlotPNG renders p into a PNG of the given size in inches, creating
// parent directories as needed.
func SavePlotPNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(PlotDPI),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

func SaveLinePlot(filename, title, xlabel, ylabel string, xs, ys []float64) error {
	if len(xs) != len(ys) || len(xs) == 0 {
		return fmt.Errorf("plot data invalid: %d x values, %d y values", len(xs), len(ys))
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	stylePlot(p)

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	return SavePlotPNG(p, 8.0, 4.5, filename)
}

func column(ep *sim.Episode, idx int) []float64 {
	out := make([]float64, len(ep.States))
	for i, s := range ep.States {
		out[i] = s[idx]
	}
	return out
}

// SaveEpisodePlots writes cart position and pole angle plots into outDir and
// returns the file paths.
func SaveEpisodePlots(outDir string, ep *sim.Episode) ([]string, error) {
	plots := []struct {
		file, title, ylabel string
		idx                 int
	}{
		{"cart_position.png", "Cart position x(t)", "x (m)", dynamo.IdxX},
		{"pole_angle.png", "Pole angle theta(t) (0 = upright)", "theta (rad)", dynamo.IdxTheta},
	}

	paths := make([]string, 0, len(plots))
	for _, pl := range plots {
		path := filepath.Join(outDir, pl.file)
		if err := SaveLinePlot(path, pl.title, "time (s)", pl.ylabel, ep.Times, column(ep, pl.idx)); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
