package tui

import "github.com/charmbracelet/lipgloss"

// Neon on near-black, shared with the plain terminal output.
var palette = struct {
	accent, frame, ok, bad, warn, value, text, muted, ink lipgloss.Color
}{
	accent: "#00FFFF",
	frame:  "#FF00FF",
	ok:     "#39FF14",
	bad:    "#FF0000",
	warn:   "#FF6700",
	value:  "#FFFF00",
	text:   "#B0B0B0",
	muted:  "#626262",
	ink:    "#0A0E27",
}

var (
	logoStyle  = lipgloss.NewStyle().Foreground(palette.accent).Bold(true).PaddingTop(1).PaddingLeft(2)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(palette.frame).Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Background(palette.frame).Foreground(palette.ink).Bold(true).Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(palette.accent).Bold(true).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(palette.value)
	badStyle   = lipgloss.NewStyle().Foreground(palette.bad).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(palette.warn).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(palette.ok).Bold(true)

	stampStyle = lipgloss.NewStyle().Foreground(palette.muted)
	textStyle  = lipgloss.NewStyle().Foreground(palette.text)
	hintStyle  = lipgloss.NewStyle().Foreground(palette.muted).PaddingLeft(2)
)

// levelColors tints event log levels; unknown levels use palette.text.
var levelColors = map[string]lipgloss.Color{
	"ERROR":   palette.bad,
	"WARN":    palette.warn,
	"SUCCESS": palette.ok,
	"INFO":    palette.accent,
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "DONE":
		return okStyle
	case "RETRYING":
		return warnStyle
	}
	return valueStyle
}
