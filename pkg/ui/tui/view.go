package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderLogo())

	width := (m.width - 4) / 2
	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left, m.renderStatsPanel(width), m.renderQueryPanel(width)),
		"  ",
		m.renderLogsPanel(width),
	)
	sections = append(sections, mainContent)

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, hintStyle.Render("Press ? for help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderLogo() string {
	logo := `
╔════════════════════════════════════════════╗
║  T M S C R A P E R  //  TRADEMARK HARVEST  ║
╚════════════════════════════════════════════╝`
	return logoStyle.Render(logo)
}

// renderStatsPanel renders the session counters
func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" SESSION ")

	elapsed := time.Since(m.sessionStartTime)
	rows := []string{
		m.statRow("State:", stateStyle(m.state).Render(m.spinnerPrefix()+m.state)),
		m.statRow("Downloaded:", fmt.Sprintf("%d", m.stats.Downloaded)),
		m.statRow("Skipped:", fmt.Sprintf("%d", m.stats.Skipped)),
		m.statRow("Failed:", badStyle.Render(fmt.Sprintf("%d", m.stats.Failed))),
		m.statRow("Pages:", fmt.Sprintf("%d", m.stats.Pages)),
		m.statRow("Rotations:", fmt.Sprintf("%d", m.stats.Rotations)),
		m.statRow("Rate:", fmt.Sprintf("%.1f/min", m.Rate())),
		m.statRow("Elapsed:", formatDuration(elapsed)),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{title, ""}, rows...)...)
	return panelStyle.Width(width).Render(content)
}

// renderQueryPanel renders the position in the query space
func (m *Model) renderQueryPanel(width int) string {
	title := titleStyle.Render(" QUERY SPACE ")

	query := m.query
	if query == "" {
		query = "-"
	}
	rows := []string{
		m.statRow("Query:", query),
		m.statRow("Page:", fmt.Sprintf("%d", m.page)),
		m.statRow("Completed:", fmt.Sprintf("%d/%d", m.queryIndex, m.queries)),
	}
	if m.attempt > 0 {
		rows = append(rows, m.statRow("Attempt:", warnStyle.Render(fmt.Sprintf("%d", m.attempt))))
	}
	rows = append(rows, "", m.progress.ViewAs(m.Fraction()))

	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{title, ""}, rows...)...)
	return panelStyle.Width(width).Render(content)
}

// renderLogsPanel renders the most recent log lines that fit
func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" EVENT LOG ")

	visible := m.height - 14
	if visible < 5 {
		visible = 5
	}
	start := 0
	if len(m.logMessages) > visible {
		start = len(m.logMessages) - visible
	}

	lines := []string{title, ""}
	if len(m.logMessages) == 0 {
		lines = append(lines, textStyle.Render("Waiting for first page..."))
	}
	for _, msg := range m.logMessages[start:] {
		ts := stampStyle.Render(msg.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(msg.Color).Bold(true).Render(fmt.Sprintf("%-7s", msg.Level))
		text := msg.Message
		if limit := width - 22; limit > 3 && len(text) > limit {
			text = text[:limit-3] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", ts, level, textStyle.Render(text)))
	}

	return panelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderHelp() string {
	var lines []string
	for _, b := range []key.Binding{keys.Quit, keys.Clear, keys.Help} {
		h := b.Help()
		lines = append(lines, fmt.Sprintf("%-12s%s", h.Key, h.Desc))
	}
	return hintStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) statRow(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func (m *Model) spinnerPrefix() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " "
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
