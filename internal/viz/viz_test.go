package viz

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/gridsim/internal/field"
	"github.com/san-kum/gridsim/internal/sim"
)

func snapshot(shape field.Shape, width int, values ...float64) field.Snapshot {
	return field.Snapshot{Shape: shape, Width: width, Values: values}
}

func TestASCIIHeatmap(t *testing.T) {
	snap := snapshot(field.Shape{2, 2}, 1, -10, 0, 5, 10)

	got := ASCIIHeatmap(snap, 0, 10)
	if got != " +\n#@" {
		t.Errorf("unexpected heatmap %q", got)
	}

	clamped := ASCIIHeatmap(snapshot(field.Shape{3}, 1, -99, 0, 99), 0, 10)
	if clamped != " +@" {
		t.Errorf("expected clamped row, got %q", clamped)
	}
}

func TestASCIIHeatmapComponentAndRank(t *testing.T) {
	// width 2: component 1 is the negation of component 0
	two := snapshot(field.Shape{2}, 2, 10, -10, -10, 10)
	if got := ASCIIHeatmap(two, 1, 10); got != " @" {
		t.Errorf("component 1 = %q", got)
	}
	if got := ASCIIHeatmap(two, 5, 10); got != "" {
		t.Errorf("out of range component should render nothing, got %q", got)
	}

	// 3x1x2: the middle slice along axis 0 is index 1
	three := snapshot(field.Shape{3, 1, 2}, 1, -10, -10, 10, 10, -10, -10)
	if got := ASCIIHeatmap(three, 0, 10); got != "@@" {
		t.Errorf("middle slice = %q", got)
	}
}

func TestHeatmapDimensions(t *testing.T) {
	snap := snapshot(field.Shape{3, 4}, 1, make([]float64, 12)...)
	out := Heatmap(snap, 0, 1, ThemeThermal)

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(lines))
	}
	if n := strings.Count(lines[0], "██"); n != 4 {
		t.Errorf("expected 4 cells per row, got %d", n)
	}
}

func TestBlend(t *testing.T) {
	if got := blend("#000000", "#ffffff", 0); got != "#000000" {
		t.Errorf("blend at 0 = %s", got)
	}
	if got := blend("#000000", "#ffffff", 1); got != "#ffffff" {
		t.Errorf("blend at 1 = %s", got)
	}
	if got := blend("#000000", "#ff0000", 2); got != "#ff0000" {
		t.Errorf("blend should clamp, got %s", got)
	}
}

func TestCanvasProfile(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Profile([]float64{-1, 1}, 1)

	if c.Grid[1][0] == 0x2800 {
		t.Error("expected bottom-left dot set")
	}
	if c.Grid[0][3] == 0x2800 {
		t.Error("expected top-right dot set")
	}
	if len(strings.Split(c.String(), "\n")) != 2 {
		t.Error("expected 2 text rows")
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("nope").Name != "thermal" {
		t.Error("expected thermal fallback")
	}
	seen := map[string]bool{}
	th := ThemeThermal
	for range Themes {
		seen[th.Name] = true
		th = NextTheme(th)
	}
	if len(seen) != len(ThemeNames()) {
		t.Errorf("NextTheme did not visit every theme: %v", seen)
	}
}

func newLoop(t *testing.T) *sim.Loop {
	t.Helper()
	g, err := field.New(field.Shape{3, 3}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	rule := field.RuleFunc(func(dst, center field.Cell, n []field.Cell, dt float64) error {
		dst[0] = center[0] + 1
		return nil
	})
	loop, err := sim.New(g, field.NewStepper(field.VonNeumann(2), field.Fixed), rule, sim.Config{Dt: 1, Bound: 10})
	if err != nil {
		t.Fatal(err)
	}
	return loop
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelPauseAndStep(t *testing.T) {
	m := NewModel(newLoop(t), 3, "test")

	m = update(m, TickMsg{})
	if m.Cycles() != 1 {
		t.Fatalf("expected 1 cycle after tick, got %d", m.Cycles())
	}

	m = update(m, key(" "))
	m = update(m, TickMsg{})
	if m.Cycles() != 1 {
		t.Errorf("paused model stepped on tick")
	}

	m = update(m, key("n"))
	if m.Cycles() != 2 {
		t.Errorf("expected n to step once, got %d cycles", m.Cycles())
	}

	m = update(m, key(" "))
	m = update(m, TickMsg{})
	m = update(m, TickMsg{})
	if m.Cycles() != 3 || !m.done {
		t.Errorf("expected budget of 3 to finish the run, got %d cycles done=%v", m.Cycles(), m.done)
	}
	if !strings.Contains(m.View(), "DONE") {
		t.Error("view should report DONE")
	}
}

func TestModelQuitStopsLoop(t *testing.T) {
	loop := newLoop(t)
	m := NewModel(loop, 0, "test")

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !loop.Stopped() {
		t.Error("quit should stop the loop")
	}
}

func TestModelShowsFailure(t *testing.T) {
	g, _ := field.New(field.Shape{2}, 1, nil)
	bad := field.RuleFunc(func(dst, center field.Cell, n []field.Cell, dt float64) error {
		return errFailing
	})
	loop, err := sim.New(g, field.NewStepper(field.VonNeumann(1), field.Reflect), bad, sim.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	m := update(NewModel(loop, 0, "bad"), TickMsg{})
	if m.failures != 1 || m.running {
		t.Errorf("expected one failure and a paused view, got failures=%d running=%v", m.failures, m.running)
	}
	if !strings.Contains(m.View(), "STEP FAILED") {
		t.Error("view should report the failure")
	}
}

var errFailing = errors.New("boom")

func TestAppLaunchesPreset(t *testing.T) {
	app := NewApp(nil)
	if len(app.entries) == 0 {
		t.Fatal("expected presets in menu")
	}
	if !strings.Contains(app.View(), app.entries[0].String()) {
		t.Error("menu should list presets")
	}

	app.Update(key("j"))
	if app.cursor != 1 {
		t.Errorf("expected cursor 1, got %d", app.cursor)
	}

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || app.live == nil {
		t.Fatal("expected enter to start a live model")
	}

	app.Update(TickMsg{})
	if app.live.Cycles() != 1 {
		t.Errorf("expected live model to step, got %d cycles", app.live.Cycles())
	}
}
