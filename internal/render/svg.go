package render

import (
	"sync"
	"time"
)

// SVGRenderer collects the engine's draw calls into frames. Draw calls
// accumulate into a pending batch; AnimateTo closes the batch and hands it
// to the sink with the requested duration.
type SVGRenderer struct {
	mu      sync.Mutex
	scene   Scene
	pending []EleUpdate
	sink    func(Frame)
}

func NewSVGRenderer(scene Scene, sink func(Frame)) *SVGRenderer {
	return &SVGRenderer{scene: scene, sink: sink}
}

// ChannelSink returns a sink that sends on ch without blocking. When the
// channel is full the oldest queued frame is dropped.
func ChannelSink(ch chan Frame) func(Frame) {
	return func(fr Frame) {
		for {
			select {
			case ch <- fr:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}
}

func (r *SVGRenderer) Scene() Scene { return r.scene }

func (r *SVGRenderer) add(id string, ops []Op) {
	r.mu.Lock()
	r.pending = append(r.pending, EleUpdate{EleId: id, Ops: ops})
	r.mu.Unlock()
}

func (r *SVGRenderer) DrawCart(x float64) {
	r.add(CartID, r.scene.CartOps(x))
}

func (r *SVGRenderer) DrawPole(x, theta float64) {
	r.add(PoleID, r.scene.PoleOps(x, theta))
}

func (r *SVGRenderer) DrawMouseIndicator(x float64) {
	r.add(MouseID, r.scene.MouseOps(x))
}

// DrawGeometry queues the scene's sizes, for clients still showing a
// drawing laid out for another scene.
func (r *SVGRenderer) DrawGeometry() {
	r.mu.Lock()
	r.pending = append(r.pending, r.scene.GeometryUpdates()...)
	r.mu.Unlock()
}

// SetText queues a text update for an element, such as the stats line.
func (r *SVGRenderer) SetText(id, text string) {
	r.add(id, []Op{{"textContent", text}})
}

func (r *SVGRenderer) AnimateTo(x, theta float64, d time.Duration) {
	r.DrawCart(x)
	r.DrawPole(x, theta)
	r.Flush(d)
}

// Flush emits the pending updates as one frame. Nothing is emitted when no
// updates are pending.
func (r *SVGRenderer) Flush(d time.Duration) {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(pending) == 0 || r.sink == nil {
		return
	}
	r.sink(Frame{
		DurationMS: d.Milliseconds(),
		Updates:    merge(pending),
	})
}
