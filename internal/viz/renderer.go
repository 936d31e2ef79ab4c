package viz

import (
	"math"
	"sync"
	"time"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/render"
)

type pose struct {
	x, theta float64
}

// CanvasRenderer draws the cart-pole on a braille canvas. Draw calls snap
// to the new pose; AnimateTo interpolates from the pose shown at call time
// to the target over the requested duration.
type CanvasRenderer struct {
	mu      sync.Mutex
	canvas  *Canvas
	scale   render.Scale
	poleLen float64
	now     func() time.Time

	from, to pose
	start    time.Time
	dur      time.Duration
	mouse    float64
}

// NewCanvasRenderer sizes a canvas of cols x rows cells for a track of
// half-width limit. A nil clock means time.Now.
func NewCanvasRenderer(cols, rows int, limit, poleHalfLength float64, now func() time.Time) *CanvasRenderer {
	if now == nil {
		now = time.Now
	}
	c := NewCanvas(cols, rows)
	scale := render.NewScale(float64(c.PixelWidth()), limit)
	poleLen := math.Min(2*poleHalfLength*scale.PerUnit(), float64(c.PixelHeight())*0.7)
	return &CanvasRenderer{
		canvas:  c,
		scale:   scale,
		poleLen: poleLen,
		now:     now,
	}
}

func (r *CanvasRenderer) DrawCart(x float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to.x = x
	r.from = r.to
	r.dur = 0
}

func (r *CanvasRenderer) DrawPole(x, theta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to = pose{x: x, theta: theta}
	r.from = r.to
	r.dur = 0
}

func (r *CanvasRenderer) DrawMouseIndicator(x float64) {
	r.mu.Lock()
	r.mouse = x
	r.mu.Unlock()
}

func (r *CanvasRenderer) AnimateTo(x, theta float64, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.from = r.poseAt(now)
	r.to = pose{x: x, theta: theta}
	r.start = now
	r.dur = d
}

// Pose is the cart position and pole angle currently shown.
func (r *CanvasRenderer) Pose() (x, theta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.poseAt(r.now())
	return p.x, p.theta
}

func (r *CanvasRenderer) poseAt(now time.Time) pose {
	if r.dur <= 0 {
		return r.to
	}
	frac := float64(now.Sub(r.start)) / float64(r.dur)
	if frac >= 1 {
		return r.to
	}
	if frac < 0 {
		frac = 0
	}
	dTheta := dynamo.WrapAngle(r.to.theta - r.from.theta)
	return pose{
		x:     r.from.x + frac*(r.to.x-r.from.x),
		theta: dynamo.WrapAngle(r.from.theta + frac*dTheta),
	}
}

// Column maps a cell column to a track position through the inverse of the
// screen scale, using the column centre.
func (r *CanvasRenderer) Column(col int) float64 {
	cols := render.NewScale(float64(r.canvas.Width), r.scale.Limit)
	return cols.ToWorld(float64(col) + 0.5)
}

func (r *CanvasRenderer) Canvas() *Canvas { return r.canvas }

// String paints the current pose and returns the canvas text.
func (r *CanvasRenderer) String() string {
	r.mu.Lock()
	p := r.poseAt(r.now())
	mouse := r.mouse
	r.mu.Unlock()

	c := r.canvas
	c.Clear()

	groundY := c.PixelHeight() - 4
	c.DrawLine(0, groundY+2, c.PixelWidth()-1, groundY+2)
	c.DashedVLine(int(math.Round(r.scale.ToScreen(mouse))))

	cx := int(math.Round(r.scale.ToScreen(p.x)))
	c.FillRect(cx-5, groundY-3, 11, 4)

	pivotY := groundY - 3
	tipX := cx + int(math.Round(r.poleLen*math.Sin(p.theta)))
	tipY := pivotY - int(math.Round(r.poleLen*math.Cos(p.theta)))
	c.DrawLine(cx, pivotY, tipX, tipY)

	return c.String()
}
