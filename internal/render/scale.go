package render

// Scale maps track positions in [-Limit, +Limit] onto [0, Width] screen
// units and back. Positions outside the track map outside the screen.
type Scale struct {
	Width float64
	Limit float64
}

func NewScale(width, limit float64) Scale {
	return Scale{Width: width, Limit: limit}
}

func (s Scale) ToScreen(x float64) float64 {
	return (x + s.Limit) / (2 * s.Limit) * s.Width
}

func (s Scale) ToWorld(px float64) float64 {
	return px/s.Width*2*s.Limit - s.Limit
}

// PerUnit is the number of screen units per metre.
func (s Scale) PerUnit() float64 {
	return s.Width / (2 * s.Limit)
}
