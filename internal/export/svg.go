package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/render"
	"github.com/san-kum/polecart/internal/sim"
)

type Point struct {
	X, Y float64
}

// Series pairs state component i (or time when i < 0) with component j
// across an episode.
func Series(ep *sim.Episode, i, j int) []Point {
	pts := make([]Point, len(ep.States))
	for k, s := range ep.States {
		if i < 0 {
			pts[k].X = ep.Times[k]
		} else {
			pts[k].X = s[i]
		}
		pts[k].Y = s[j]
	}
	return pts
}

// TrajectorySVG draws points as a single polyline scaled to fit the canvas
// with a 10% margin.
func TrajectorySVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i > 0 {
			sb.WriteString(" L")
		}
		sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// SceneSVG is a static picture of one state.
func SceneSVG(scene render.Scene, s dynamo.State) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		scene.SVG(s[dynamo.IdxX], s[dynamo.IdxTheta], s[dynamo.IdxMouse])
}
