package viz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gridsim/internal/field"
	"github.com/san-kum/gridsim/internal/metrics"
	"github.com/san-kum/gridsim/internal/sim"
)

const (
	historyCapacity = 600
	tickInterval    = time.Second / 30
	profileWidth    = 40
	profileHeight   = 8
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model drives a loop one cycle per tick and renders the latest snapshot.
type Model struct {
	loop   *sim.Loop
	name   string
	budget int

	cycles    int
	anomalies int
	repaired  int
	failures  int
	lastErr   error

	last      field.Snapshot
	energy    []float64
	component int
	scale     float64

	running  bool
	done     bool
	showHelp bool
	theme    Theme
	bar      progress.Model
}

// NewModel wraps loop. budget <= 0 runs until quit.
func NewModel(loop *sim.Loop, budget int, name string) Model {
	scale := loop.Config().Bound
	if scale <= 0 {
		scale = 1
	}
	return Model{
		loop:    loop,
		name:    name,
		budget:  budget,
		last:    loop.Snapshot(),
		energy:  make([]float64, 0, historyCapacity),
		scale:   scale,
		running: true,
		theme:   ThemeThermal,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.loop.Stop()
			return m, tea.Quit
		case " ":
			if !m.done {
				m.running = !m.running
			}
		case "n":
			if !m.running && !m.done {
				m.step()
			}
		case "c":
			m.component = (m.component + 1) % max(m.last.Width, 1)
		case "+", "=":
			m.scale /= 1.25
		case "-", "_":
			m.scale *= 1.25
		case "t":
			m.theme = NextTheme(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && !m.done {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

// step runs one cycle. A failed step pauses the view so the error can be read.
func (m *Model) step() {
	cycle, err := m.loop.RunOneCycle()
	if errors.Is(err, sim.ErrStopped) {
		m.done, m.running = true, false
		return
	}
	if err != nil {
		m.failures++
		m.lastErr = err
		m.running = false
		return
	}

	m.cycles++
	m.anomalies += cycle.Anomalies
	m.repaired += cycle.Repaired
	m.last = cycle.Snapshot

	m.energy = append(m.energy, metrics.FieldEnergy(cycle.Snapshot))
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}

	if m.budget > 0 && m.cycles >= m.budget {
		m.done, m.running = true, false
	}
}

func (m Model) status() string {
	switch {
	case m.done:
		return StatusPaused.Render("DONE")
	case m.lastErr != nil && !m.running:
		return StatusFailed.Render("STEP FAILED")
	case m.running:
		return StatusRunning.Render("RUNNING")
	}
	return StatusPaused.Render("PAUSED")
}

func (m Model) renderField() string {
	if len(m.last.Shape) == 1 {
		c := NewCanvas(profileWidth, profileHeight)
		c.Profile(m.last.Component(m.component), m.scale)
		return c.String() + "\n" + Heatmap(m.last, m.component, m.scale, m.theme)
	}
	return Heatmap(m.last, m.component, m.scale, m.theme)
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")
	s.WriteString(m.status() + "\n\n")

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d", m.last.Step))
	row("Time", fmt.Sprintf("%.3f", m.last.Time))
	row("Phase", m.loop.Phase().String())
	row("Anomalies", fmt.Sprintf("%d", m.anomalies))
	row("Repaired", fmt.Sprintf("%d", m.repaired))
	row("Failures", fmt.Sprintf("%d", m.failures))
	row("Component", fmt.Sprintf("%d/%d", m.component, m.last.Width))
	row("Scale", fmt.Sprintf("±%.3g", m.scale))
	row("Peak", fmt.Sprintf("%.3g", m.last.MaxAbs()))
	row("Theme", m.theme.Name)

	if m.budget > 0 {
		s.WriteString("\n" + m.bar.ViewAs(float64(m.cycles)/float64(m.budget)) + "\n")
	}
	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
		s.WriteString(SparklineChart(m.energy, 30) + "\n")
	}
	if m.lastErr != nil {
		s.WriteString("\n" + StatusFailed.Render(m.lastErr.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause N:Step C:Component\n+/-:Scale T:Theme ?:Help Q:Quit"))

	body := lipgloss.JoinHorizontal(lipgloss.Top, fieldStyle.Render(m.renderField()), statsStyle.Render(s.String()))
	if m.showHelp {
		return `
  Space  pause / resume
  N      single cycle while paused
  C      cycle displayed component
  + / -  tighten / widen color scale
  T      cycle themes
  ?      toggle this help
  Q      stop the loop and quit
` + "\n" + body
	}
	return body
}

// Cycles reports completed cycles.
func (m Model) Cycles() int { return m.cycles }
