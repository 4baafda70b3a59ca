package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/gridsim/internal/config"
	"github.com/san-kum/gridsim/internal/experiment"
)

var (
	menuTitle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	menuSub      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	menuCursor   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	menuSelected = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuItem     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuErr      = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

type presetEntry struct {
	rule, name string
}

func (p presetEntry) String() string { return p.rule + "/" + p.name }

// App lists every preset and launches a live Model for the chosen one.
type App struct {
	registry *experiment.Registry
	entries  []presetEntry
	cursor   int
	live     *Model
	err      error
}

func NewApp(registry *experiment.Registry) *App {
	if registry == nil {
		registry = experiment.NewRegistry()
	}
	a := &App{registry: registry}
	for _, rule := range registry.ListRules() {
		for _, name := range config.ListPresets(rule) {
			a.entries = append(a.entries, presetEntry{rule: rule, name: name})
		}
	}
	return a
}

func (a *App) Init() tea.Cmd { return nil }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.live != nil {
		next, cmd := a.live.Update(msg)
		live := next.(Model)
		a.live = &live
		return a, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.entries)-1 {
			a.cursor++
		}
	case "enter", " ":
		return a, a.start()
	}
	return a, nil
}

func (a *App) start() tea.Cmd {
	if len(a.entries) == 0 {
		return nil
	}
	entry := a.entries[a.cursor]
	cfg := config.GetPreset(entry.rule, entry.name)

	exp := experiment.New(cfg, a.registry, nil)
	if err := exp.Setup(a.registry.DefaultMetrics()); err != nil {
		a.err = err
		return nil
	}
	live := NewModel(exp.Loop(), cfg.Steps, entry.String())
	a.live = &live
	return live.Init()
}

func (a *App) View() string {
	if a.live != nil {
		return a.live.View()
	}

	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("GRIDSIM") + "\n    " + menuSub.Render("grid field evolution") + "\n    " + menuSub.Render("─────────────────────────") + "\n\n")
	for i, e := range a.entries {
		label := fmt.Sprintf("%-24s", e.String())
		if i == a.cursor {
			b.WriteString("    " + menuCursor.Render("▸") + " " + menuSelected.Render(label) + "\n")
		} else {
			b.WriteString("      " + menuItem.Render(label) + "\n")
		}
	}
	if a.err != nil {
		b.WriteString("\n    " + menuErr.Render(a.err.Error()) + "\n")
	}
	b.WriteString("\n    " + menuSub.Render("j/k navigate  enter start  q quit") + "\n")
	return b.String()
}
