package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/polecart/internal/control"
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
)

const (
	canvasCols      = 60
	canvasRows      = 16
	historyCapacity = 120
)

type TickMsg time.Time

// Model is the live terminal view of one engine. The engine is stepped on
// every tick by the selected policy; the mouse column sets the target.
type Model struct {
	eng      *env.Engine
	renderer *CanvasRenderer
	rng      env.RandSource
	params   map[string]float64
	title    string

	policies  []string
	policyIdx int
	policy    dynamo.Controller
	manual    *control.Manual

	running   bool
	tick      time.Duration
	reward    float64
	best      float64
	episodes  int
	thetaHist []float64
	styles    Styles
	err       error
}

// NewModel wires a canvas renderer into eng and starts an episode. params
// are applied to every policy that exposes them.
func NewModel(cfg env.Config, title, policy string, params map[string]float64, rng env.RandSource) (Model, error) {
	renderer := NewCanvasRenderer(canvasCols, canvasRows, cfg.XThreshold, cfg.PoleHalfLength, nil)
	opts := []env.Option{env.WithRenderer(renderer)}
	if rng != nil {
		opts = append(opts, env.WithRandSource(rng))
	}
	eng, err := env.New(cfg, opts...)
	if err != nil {
		return Model{}, err
	}

	m := Model{
		eng:       eng,
		renderer:  renderer,
		rng:       rng,
		params:    params,
		title:     title,
		policies:  control.Names(),
		manual:    control.NewManual(),
		running:   true,
		tick:      time.Duration(eng.Config().Tau * float64(time.Second)),
		thetaHist: make([]float64, 0, historyCapacity),
		styles:    NewStyles(Themes[0]),
	}
	if err := m.setPolicy(policy); err != nil {
		return Model{}, err
	}
	eng.Reset()
	return m, nil
}

func (m *Model) setPolicy(name string) error {
	for i, n := range m.policies {
		if n != name {
			continue
		}
		if name == "manual" {
			m.policy = m.manual
		} else {
			p, err := control.Switch(name, m.params, m.rng)
			if err != nil {
				return err
			}
			m.policy = p
		}
		m.policyIdx = i
		return nil
	}
	return fmt.Errorf("unknown controller: %s", name)
}

func (m Model) PolicyName() string { return m.policies[m.policyIdx] }
func (m Model) Engine() *env.Engine { return m.eng }
func (m Model) Running() bool       { return m.running }
func (m Model) Episodes() int       { return m.episodes }

func (m Model) nextTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.nextTick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "space":
			m.running = !m.running
		case "r":
			m.restart()
		case "p":
			m.err = m.setPolicy(m.policies[(m.policyIdx+1)%len(m.policies)])
		case "t":
			names := ThemeNames()
			for i, name := range names {
				if name == m.styles.Theme.Name {
					m.styles = NewStyles(GetTheme(names[(i+1)%len(names)]))
					break
				}
			}
		case "left", "h":
			m.takeOver(env.ActionLeft)
		case "right", "l":
			m.takeOver(env.ActionRight)
		}
	case tea.MouseMsg:
		col := msg.X - canvasLeft
		if col >= 0 && col < canvasCols {
			m.eng.UpdateMousePosition(m.renderer.Column(col))
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, m.nextTick()
	}
	return m, nil
}

// takeOver switches to manual control with the given action held.
func (m *Model) takeOver(a env.Action) {
	if m.PolicyName() != "manual" {
		m.err = m.setPolicy("manual")
	}
	m.manual.SetAction(a)
}

func (m *Model) restart() {
	m.best = math.Max(m.best, m.reward)
	m.reward = 0
	m.thetaHist = m.thetaHist[:0]
	m.eng.Reset()
}

// step advances one engine step. Leaving the bounds ends the episode and
// starts the next one.
func (m *Model) step() {
	x := m.eng.State()
	a := control.Discretize(m.policy.Compute(x, m.eng.Time()))
	if _, err := m.eng.Step(a); err != nil {
		m.err = err
		return
	}
	m.eng.Render(m.tick)
	m.reward += m.eng.Reward()

	m.thetaHist = append(m.thetaHist, m.eng.State()[dynamo.IdxTheta]*180/math.Pi)
	if len(m.thetaHist) > historyCapacity {
		m.thetaHist = m.thetaHist[1:]
	}

	if m.eng.OutOfBounds() {
		m.episodes++
		m.restart()
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	st := m.styles
	state := m.eng.State()
	cfg := m.eng.Config()

	var s strings.Builder
	s.WriteString(st.Header.Render(strings.ToUpper(m.title)) + "\n")
	if m.running {
		s.WriteString(st.Running.Render("RUNNING") + "\n\n")
	} else {
		s.WriteString(st.Paused.Render("PAUSED") + "\n\n")
	}

	s.WriteString(st.Label.Render("Policy") + st.Active.Render(m.PolicyName()) + "\n")
	s.WriteString(st.Row("Time", fmt.Sprintf("%.2fs", m.eng.Time())))
	if state != nil {
		s.WriteString(st.Row("Cart", fmt.Sprintf("%+.3f m", state[dynamo.IdxX])))
		s.WriteString(st.Row("Pole", fmt.Sprintf("%+.1f°", state[dynamo.IdxTheta]*180/math.Pi)))
		s.WriteString(st.Row("Target", fmt.Sprintf("%+.3f m", state[dynamo.IdxMouse])))
		s.WriteString(st.Label.Render("Track") + st.Bar(math.Abs(state[dynamo.IdxX])/cfg.XThreshold, 20) + "\n")
		s.WriteString(st.Label.Render("Tilt") + st.Bar(math.Abs(state[dynamo.IdxTheta])/cfg.ThetaThreshold, 20) + "\n")
	}
	s.WriteString(st.Row("Reward", fmt.Sprintf("%.0f (best %.0f)", m.reward, m.best)))
	s.WriteString(st.Row("Falls", fmt.Sprintf("%d", m.episodes)))
	if m.err != nil {
		s.WriteString(st.Fallen.Render(m.err.Error()) + "\n")
	}

	if len(m.thetaHist) > 1 {
		chart := asciigraph.Plot(m.thetaHist, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("pole angle (deg)"))
		s.WriteString(st.Graph.Render(chart) + "\n")
	}

	s.WriteString(st.Help.Render("mouse: target  ←/→: push  p: policy\nspace: pause  r: reset  t: theme  q: quit"))

	canvasView := st.Canvas.Render(m.renderer.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.Stats.Render(s.String()))
}

// Run starts the live view full screen. Mouse motion is reported without a
// button held so the target follows the pointer.
func Run(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run()
	return err
}
