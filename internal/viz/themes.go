package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the color scheme for the TUI. Cold and Hot are the heatmap
// endpoints for -scale and +scale; Neutral is zero.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Muted   lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Cold    lipgloss.Color
	Neutral lipgloss.Color
	Hot     lipgloss.Color
}

var (
	ThemeThermal = Theme{
		Name:    "thermal",
		Primary: lipgloss.Color("#00ffff"),
		Accent:  lipgloss.Color("#ff00ff"),
		Muted:   lipgloss.Color("#666688"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
		Cold:    lipgloss.Color("#2060ff"),
		Neutral: lipgloss.Color("#101018"),
		Hot:     lipgloss.Color("#ff3020"),
	}

	ThemeRetroGreen = Theme{
		Name:    "retro",
		Primary: lipgloss.Color("#00ff00"),
		Accent:  lipgloss.Color("#88ff88"),
		Muted:   lipgloss.Color("#005500"),
		Warning: lipgloss.Color("#ffff00"),
		Error:   lipgloss.Color("#ff0000"),
		Cold:    lipgloss.Color("#003300"),
		Neutral: lipgloss.Color("#001100"),
		Hot:     lipgloss.Color("#00ff00"),
	}

	ThemeOcean = Theme{
		Name:    "ocean",
		Primary: lipgloss.Color("#0077be"),
		Accent:  lipgloss.Color("#ffd700"),
		Muted:   lipgloss.Color("#4488aa"),
		Warning: lipgloss.Color("#ffcc00"),
		Error:   lipgloss.Color("#ff4444"),
		Cold:    lipgloss.Color("#001a33"),
		Neutral: lipgloss.Color("#0077be"),
		Hot:     lipgloss.Color("#e0f0ff"),
	}

	ThemeSunset = Theme{
		Name:    "sunset",
		Primary: lipgloss.Color("#ff6b6b"),
		Accent:  lipgloss.Color("#ff9ff3"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Warning: lipgloss.Color("#ffc048"),
		Error:   lipgloss.Color("#ff4757"),
		Cold:    lipgloss.Color("#2d1b2e"),
		Neutral: lipgloss.Color("#8b3a62"),
		Hot:     lipgloss.Color("#feca57"),
	}

	Themes = []Theme{
		ThemeThermal,
		ThemeRetroGreen,
		ThemeOcean,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to thermal.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeThermal
}

// NextTheme returns the theme after t in Themes.
func NextTheme(t Theme) Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
