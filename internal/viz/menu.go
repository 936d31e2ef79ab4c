package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Builder creates the live model for a named preset.
type Builder func(preset string) (Model, error)

// App lists presets and opens the live view for the chosen one. Esc in the
// live view returns to the list.
type App struct {
	presets  []string
	describe map[string]string
	build    Builder
	cursor   int
	live     *Model
	styles   Styles
	err      error
}

func NewApp(presets []string, describe map[string]string, build Builder) App {
	return App{
		presets:  presets,
		describe: describe,
		build:    build,
		styles:   NewStyles(Themes[0]),
	}
}

func (a App) Init() tea.Cmd { return nil }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.live != nil {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			a.live = nil
			return a, nil
		}
		next, cmd := a.live.Update(msg)
		live := next.(Model)
		a.live = &live
		return a, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.presets)-1 {
			a.cursor++
		}
	case "enter":
		live, err := a.build(a.presets[a.cursor])
		if err != nil {
			a.err = err
			return a, nil
		}
		a.err = nil
		a.live = &live
		return a, live.Init()
	}
	return a, nil
}

func (a App) View() string {
	if a.live != nil {
		return a.live.View()
	}

	st := a.styles
	var s strings.Builder
	s.WriteString(st.Header.Render("POLECART") + "\n")
	for i, name := range a.presets {
		line := fmt.Sprintf("%-14s %s", name, a.describe[name])
		if i == a.cursor {
			s.WriteString(st.Active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.Value.Render(line) + "\n")
		}
	}
	if a.err != nil {
		s.WriteString("\n" + st.Fallen.Render(a.err.Error()) + "\n")
	}
	s.WriteString(st.Help.Render("↑/↓: select  enter: start  esc: back  q: quit"))
	return st.Canvas.Render(s.String())
}
