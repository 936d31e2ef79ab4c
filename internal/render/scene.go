package render

import (
	"fmt"
	"math"
	"strings"
)

const (
	TrackID = "track"
	CartID  = "cart"
	PoleID  = "pole"
	MouseID = "mouse"
	StatsID = "stats"
)

// Scene is the fixed geometry of the drawing, in SVG user units.
type Scene struct {
	Width      float64
	Height     float64
	TrackY     float64
	CartWidth  float64
	CartHeight float64
	PoleWidth  float64
	Scale      Scale
	// PoleLength is the drawn length of the full pole.
	PoleLength float64
}

// NewScene lays out a scene for a track of half-width limit and a pole of
// the given half-length.
func NewScene(width, height, limit, poleHalfLength float64) Scene {
	sc := NewScale(width, limit)
	return Scene{
		Width:      width,
		Height:     height,
		TrackY:     height * 0.75,
		CartWidth:  width / 12,
		CartHeight: width / 24,
		PoleWidth:  math.Max(2, width/120),
		Scale:      sc,
		PoleLength: 2 * poleHalfLength * sc.PerUnit(),
	}
}

func DefaultScene(limit, poleHalfLength float64) Scene {
	return NewScene(600, 400, limit, poleHalfLength)
}

func f(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func (s Scene) cartTop() float64 {
	return s.TrackY - s.CartHeight
}

// CartOps places the cart centred on track position x.
func (s Scene) CartOps(x float64) []Op {
	return []Op{{"x", f(s.Scale.ToScreen(x) - s.CartWidth/2)}}
}

// PoleOps pivots the pole on the cart top. The pole is drawn pointing down
// from its pivot, so upright is a rotation of θ in degrees plus 180.
func (s Scene) PoleOps(x, theta float64) []Op {
	px := s.Scale.ToScreen(x)
	deg := theta*180/math.Pi + 180
	return []Op{
		{"x", f(px - s.PoleWidth/2)},
		{"transform", fmt.Sprintf("rotate(%s %s %s)", f(deg), f(px), f(s.cartTop()))},
	}
}

// GeometryUpdates resizes an already drawn scene to this one's layout.
// Positions are left to the next CartOps and PoleOps.
func (s Scene) GeometryUpdates() []EleUpdate {
	return []EleUpdate{
		{EleId: TrackID, Ops: []Op{{"y1", f(s.TrackY)}, {"x2", f(s.Width)}, {"y2", f(s.TrackY)}}},
		{EleId: MouseID, Ops: []Op{{"y2", f(s.Height)}}},
		{EleId: CartID, Ops: []Op{{"y", f(s.cartTop())}, {"width", f(s.CartWidth)}, {"height", f(s.CartHeight)}}},
		{EleId: PoleID, Ops: []Op{{"y", f(s.cartTop())}, {"width", f(s.PoleWidth)}, {"height", f(s.PoleLength)}}},
	}
}

func (s Scene) MouseOps(x float64) []Op {
	px := f(s.Scale.ToScreen(x))
	return []Op{{"x1", px}, {"x2", px}}
}

// SVG returns the initial drawing with the cart at x, the pole at theta and
// the mouse marker at mouse.
func (s Scene) SVG(x, theta, mouse float64) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, s.Width, s.Height, s.Width, s.Height))

	sb.WriteString(fmt.Sprintf(`<line id="%s" x1="0" y1="%s" x2="%s" y2="%s" stroke="#444" stroke-width="2"/>
`, TrackID, f(s.TrackY), f(s.Width), f(s.TrackY)))

	mx := f(s.Scale.ToScreen(mouse))
	sb.WriteString(fmt.Sprintf(`<line id="%s" x1="%s" y1="0" x2="%s" y2="%s" stroke="#f0c674" stroke-dasharray="4 4"/>
`, MouseID, mx, mx, f(s.Height)))

	cx := s.Scale.ToScreen(x) - s.CartWidth/2
	sb.WriteString(fmt.Sprintf(`<rect id="%s" x="%s" y="%s" width="%s" height="%s" fill="#81a2be"/>
`, CartID, f(cx), f(s.cartTop()), f(s.CartWidth), f(s.CartHeight)))

	pole := s.PoleOps(x, theta)
	sb.WriteString(fmt.Sprintf(`<rect id="%s" x="%s" y="%s" width="%s" height="%s" fill="#cc6666" transform="%s"/>
`, PoleID, pole[0].Value, f(s.cartTop()), f(s.PoleWidth), f(s.PoleLength), pole[1].Value))

	sb.WriteString(fmt.Sprintf(`<text id="%s" x="8" y="20" fill="#c5c8c6" font-family="monospace" font-size="14"></text>
`, StatsID))

	sb.WriteString("</svg>")
	return sb.String()
}
