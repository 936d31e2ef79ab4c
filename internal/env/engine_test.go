package env_test

import (
	"log/slog"
	"math"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

// fixedSource returns the same sample forever.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

type call struct {
	name    string
	x, th   float64
	seconds float64
}

type recordingRenderer struct {
	calls []call
}

func (r *recordingRenderer) DrawCart(x float64) { r.calls = append(r.calls, call{name: "cart", x: x}) }
func (r *recordingRenderer) DrawPole(x, th float64) {
	r.calls = append(r.calls, call{name: "pole", x: x, th: th})
}
func (r *recordingRenderer) DrawMouseIndicator(x float64) {
	r.calls = append(r.calls, call{name: "mouse", x: x})
}
func (r *recordingRenderer) AnimateTo(x, th float64, d time.Duration) {
	r.calls = append(r.calls, call{name: "animate", x: x, th: th, seconds: d.Seconds()})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(GinkgoWriter, nil))
}

func newEngine(cfg env.Config, opts ...env.Option) *env.Engine {
	opts = append([]env.Option{env.WithLogger(quietLogger())}, opts...)
	eng, err := env.New(cfg, opts...)
	Expect(err).NotTo(HaveOccurred())
	return eng
}

var _ = Describe("Engine", func() {
	var eng *env.Engine

	BeforeEach(func() {
		eng = newEngine(env.DefaultConfig(), env.WithRandSource(rand.New(rand.NewSource(7))))
	})

	Describe("construction", func() {
		It("derives total mass and pole-mass-length once", func() {
			cfg := eng.Config()
			Expect(cfg.TotalMass()).To(BeNumerically("~", 1.1, 1e-12))
			Expect(cfg.PoleMassLength()).To(BeNumerically("~", 0.05, 1e-12))
			Expect(eng.Dynamics().TotalMass()).To(BeNumerically("~", 1.1, 1e-12))
		})

		It("fills unspecified positive options with defaults", func() {
			e := newEngine(env.Config{})
			cfg := e.Config()
			Expect(cfg.ForceMag).To(Equal(env.DefaultForceMag))
			Expect(cfg.Tau).To(Equal(env.DefaultTau))
			Expect(cfg.StackDepth).To(Equal(env.DefaultStackDepth))
			Expect(cfg.Integrator).To(Equal("euler"))
		})

		It("takes zero gravity and pole friction literally", func() {
			e := newEngine(env.Config{})
			Expect(e.Config().Gravity).To(BeZero())
			Expect(e.Dynamics().Gravity).To(BeZero())
			Expect(e.Dynamics().PoleFriction).To(BeZero())

			d := newEngine(env.DefaultConfig())
			Expect(d.Dynamics().Gravity).To(Equal(env.DefaultGravity))
			Expect(d.Dynamics().PoleFriction).To(Equal(env.DefaultPoleFriction))
		})

		It("rejects unknown integrators", func() {
			cfg := env.DefaultConfig()
			cfg.Integrator = "leapfrog"
			_, err := env.New(cfg)
			Expect(err).To(HaveOccurred())
		})

		It("rejects non-positive masses", func() {
			cfg := env.DefaultConfig()
			cfg.PoleMass = -1
			_, err := env.New(cfg)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})

		It("has no state until reset", func() {
			Expect(eng.HasState()).To(BeFalse())
			Expect(eng.State()).To(BeNil())
		})
	})

	Describe("Reset", func() {
		It("samples a small initial state with zero velocities", func() {
			for i := 0; i < 200; i++ {
				eng.Reset()
				s := eng.State()
				Expect(s[dynamo.IdxXDot]).To(Equal(0.0))
				Expect(s[dynamo.IdxThetaDot]).To(Equal(0.0))
				Expect(s[dynamo.IdxMouse]).To(Equal(0.0))
				Expect(math.Abs(s[dynamo.IdxX])).To(BeNumerically("<=", 0.005))
				Expect(math.Abs(s[dynamo.IdxTheta])).To(BeNumerically("<=", 0.005))
			}
		})

		It("maps the random source onto ±0.005", func() {
			e := newEngine(env.DefaultConfig(), env.WithRandSource(fixedSource(0)))
			e.Reset()
			Expect(e.State()[dynamo.IdxX]).To(BeNumerically("~", -0.005, 1e-15))
			Expect(e.State()[dynamo.IdxTheta]).To(BeNumerically("~", -0.005, 1e-15))
		})

		It("fills the history with identical copies and zeroes the counter", func() {
			eng.Reset()
			_, err := eng.Step(env.ActionRight)
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.Elapsed()).To(Equal(1))

			obs := eng.Reset()
			Expect(eng.Elapsed()).To(Equal(0))
			Expect(obs).To(HaveLen(15))
			first := obs[:5]
			Expect(obs[5:10]).To(Equal(first))
			Expect(obs[10:15]).To(Equal(first))
		})
	})

	DescribeTable("observation length is depth × 5",
		func(depth int) {
			cfg := env.DefaultConfig()
			cfg.StackDepth = depth
			e := newEngine(cfg)

			Expect(e.Reset()).To(HaveLen(depth * 5))
			for i := 0; i < 2*depth+1; i++ {
				obs, err := e.Step(env.Action(i % 2))
				Expect(err).NotTo(HaveOccurred())
				Expect(obs).To(HaveLen(depth * 5))
			}
		},
		Entry("depth 1", 1),
		Entry("depth 3", 3),
		Entry("depth 8", 8),
	)

	Describe("Step", func() {
		It("fails without state and creates none", func() {
			obs, err := eng.Step(env.ActionRight)
			Expect(err).To(MatchError(dynamo.ErrNotReset))
			Expect(obs).To(BeNil())
			Expect(eng.HasState()).To(BeFalse())
			Expect(eng.Elapsed()).To(Equal(0))
		})

		It("leaves state untouched on an invalid action", func() {
			eng.Reset()
			_, _ = eng.Step(env.ActionLeft)
			before := eng.State()
			beforeObs := eng.StackedObservation()

			obs, err := eng.Step(env.Action(2))
			Expect(err).To(MatchError(dynamo.ErrInvalidAction))
			Expect(obs).To(BeNil())
			Expect(eng.State()).To(Equal(before))
			Expect(eng.StackedObservation()).To(Equal(beforeObs))
			Expect(eng.Elapsed()).To(Equal(1))
		})

		It("pushes the force sign into the cart acceleration", func() {
			left := newEngine(env.DefaultConfig(), env.WithRandSource(fixedSource(0.5)))
			right := newEngine(env.DefaultConfig(), env.WithRandSource(fixedSource(0.5)))
			left.Reset()
			right.Reset()
			Expect(left.State()).To(Equal(right.State()))

			_, err := left.Step(env.ActionLeft)
			Expect(err).NotTo(HaveOccurred())
			_, err = right.Step(env.ActionRight)
			Expect(err).NotTo(HaveOccurred())

			Expect(left.State()[dynamo.IdxXDot]).To(BeNumerically("<", 0))
			Expect(right.State()[dynamo.IdxXDot]).To(BeNumerically(">", 0))
		})

		It("moves euler positions with the pre-update velocity", func() {
			_, err := eng.ResetTo(dynamo.State{0, 1.5, 0, 0, 0})
			Expect(err).NotTo(HaveOccurred())
			_, err = eng.Step(env.ActionRight)
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.State()[dynamo.IdxX]).To(BeNumerically("~", 0.02*1.5, 1e-12))
		})

		It("wraps the pole angle past π", func() {
			_, err := eng.ResetTo(dynamo.State{0, 0, 3.0, 20, 0})
			Expect(err).NotTo(HaveOccurred())
			_, err = eng.Step(env.ActionRight)
			Expect(err).NotTo(HaveOccurred())

			theta := eng.State()[dynamo.IdxTheta]
			Expect(theta).To(BeNumerically(">", -math.Pi))
			Expect(theta).To(BeNumerically("<", -math.Pi+0.5))
			Expect(theta).To(BeNumerically("~", 3.4-2*math.Pi, 1e-12))
		})

		It("keeps the angle inside (-π, π] over a long free swing", func() {
			_, err := eng.ResetTo(dynamo.State{0, 0, 1.0, 8, 0})
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 500; i++ {
				_, err := eng.Step(env.Action(i % 2))
				Expect(err).NotTo(HaveOccurred())
				theta := eng.State()[dynamo.IdxTheta]
				Expect(theta).To(BeNumerically(">", -math.Pi))
				Expect(theta).To(BeNumerically("<=", math.Pi))
			}
		})

		It("evicts exactly one entry per step", func() {
			eng.Reset()
			var states []dynamo.State
			for i := 0; i < 4; i++ {
				_, err := eng.Step(env.ActionRight)
				Expect(err).NotTo(HaveOccurred())
				states = append(states, eng.State())
			}
			obs := eng.StackedObservation()
			Expect([]float64(obs[0:5])).To(Equal([]float64(states[1])))
			Expect([]float64(obs[5:10])).To(Equal([]float64(states[2])))
			Expect([]float64(obs[10:15])).To(Equal([]float64(states[3])))
		})

		It("diverges between euler and semi-implicit from the same start", func() {
			start := dynamo.State{0.001, 0, 0.002, 0, 0}
			semiCfg := env.DefaultConfig()
			semiCfg.Integrator = "semi-implicit"

			a := newEngine(env.DefaultConfig())
			b := newEngine(semiCfg)
			_, err := a.ResetTo(start)
			Expect(err).NotTo(HaveOccurred())
			_, err = b.ResetTo(start)
			Expect(err).NotTo(HaveOccurred())

			actions := []env.Action{1, 1, 0, 1, 0, 0, 1, 0}
			for _, act := range actions {
				_, err = a.Step(act)
				Expect(err).NotTo(HaveOccurred())
				_, err = b.Step(act)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(a.State().Sub(b.State()).Norm()).To(BeNumerically(">", 1e-6))
		})
	})

	Describe("mouse target", func() {
		It("is a no-op without state", func() {
			r := &recordingRenderer{}
			e := newEngine(env.DefaultConfig(), env.WithRenderer(r))
			e.UpdateMousePosition(1.2)
			Expect(e.HasState()).To(BeFalse())
			Expect(r.calls).To(BeEmpty())
		})

		It("writes only the live state and is carried, not advanced, by step", func() {
			eng.Reset()
			eng.UpdateMousePosition(0.7)

			Expect(eng.State()[dynamo.IdxMouse]).To(Equal(0.7))
			obs := eng.StackedObservation()
			Expect(obs[len(obs)-1]).To(Equal(0.0))

			_, err := eng.Step(env.ActionLeft)
			Expect(err).NotTo(HaveOccurred())
			obs = eng.StackedObservation()
			Expect(obs[len(obs)-1]).To(Equal(0.7))
			Expect(obs[4]).To(Equal(0.0))

			eng.UpdateMousePosition(-0.3)
			obs = eng.StackedObservation()
			Expect(obs[len(obs)-1]).To(Equal(0.7))
			Expect(eng.State()[dynamo.IdxMouse]).To(Equal(-0.3))
		})
	})

	Describe("rendering", func() {
		var r *recordingRenderer

		BeforeEach(func() {
			r = &recordingRenderer{}
			eng = newEngine(env.DefaultConfig(), env.WithRenderer(r), env.WithRandSource(fixedSource(0.5)))
		})

		It("snaps the scene on reset", func() {
			eng.Reset()
			Expect(r.calls).To(HaveLen(3))
			Expect(r.calls[0].name).To(Equal("cart"))
			Expect(r.calls[1].name).To(Equal("pole"))
			Expect(r.calls[2].name).To(Equal("mouse"))
		})

		It("does not touch the renderer on step", func() {
			eng.Reset()
			n := len(r.calls)
			_, err := eng.Step(env.ActionRight)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.calls).To(HaveLen(n))
		})

		It("animates towards the current state", func() {
			eng.Render(time.Second)
			Expect(r.calls).To(BeEmpty())

			eng.Reset()
			_, err := eng.Step(env.ActionRight)
			Expect(err).NotTo(HaveOccurred())
			before := eng.State()
			eng.Render(50 * time.Millisecond)

			last := r.calls[len(r.calls)-1]
			Expect(last.name).To(Equal("animate"))
			Expect(last.x).To(Equal(before[dynamo.IdxX]))
			Expect(last.th).To(Equal(before[dynamo.IdxTheta]))
			Expect(last.seconds).To(BeNumerically("~", 0.05, 1e-9))
			Expect(eng.State()).To(Equal(before))
		})

		It("moves the indicator on mouse updates", func() {
			eng.Reset()
			eng.UpdateMousePosition(1.5)
			last := r.calls[len(r.calls)-1]
			Expect(last).To(Equal(call{name: "mouse", x: 1.5}))
		})
	})

	Describe("Close", func() {
		It("discards state so step reports not-reset", func() {
			eng.Reset()
			Expect(eng.Close()).To(Succeed())
			_, err := eng.Step(env.ActionRight)
			Expect(err).To(MatchError(dynamo.ErrNotReset))
		})
	})

	Describe("bounds and reward", func() {
		It("flags the cart leaving the track without stopping the engine", func() {
			_, err := eng.ResetTo(dynamo.State{2.5, 0, 0, 0, 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.OutOfBounds()).To(BeTrue())
			Expect(eng.Reward()).To(Equal(0.0))
			_, err = eng.Step(env.ActionLeft)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rewards staying near the centre", func() {
			_, err := eng.ResetTo(dynamo.State{0.1, 0, 0.1, 0, 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.Reward()).To(Equal(1.0))

			_, err = eng.ResetTo(dynamo.State{1.0, 0, 0.1, 0, 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.OutOfBounds()).To(BeFalse())
			Expect(eng.Reward()).To(Equal(0.0))
		})

		It("rejects malformed reset states", func() {
			_, err := eng.ResetTo(dynamo.State{0, 0, 0})
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
			_, err = eng.ResetTo(dynamo.State{0, 0, math.NaN(), 0, 0})
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
		})
	})
})
