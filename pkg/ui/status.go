package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			Width(18)
)

// StatusReport is what the status command shows
type StatusReport struct {
	QueryIndex        int
	LastCompletedPage int
	Queries           int
	NextQuery         string
	Indexed           int
	Files             int
	OutputDir         string
	StatePath         string
	// CursorSaved is false until the first page has been recorded
	CursorSaved bool
	IndexPath   string
}

// Done reports whether every query has been crawled
func (r StatusReport) Done() bool {
	return r.QueryIndex >= r.Queries
}

// RenderStatus renders the crawl status panel
func RenderStatus(r StatusReport) string {
	next := r.NextQuery
	switch {
	case r.Done():
		next = Green("complete")
	case next != "":
		next = fmt.Sprintf("%s page %d", next, r.LastCompletedPage+1)
	}

	pct := 0.0
	if r.Queries > 0 {
		pct = float64(min(r.QueryIndex, r.Queries)) / float64(r.Queries) * 100
	}

	rows := [][2]string{
		{"Progress", fmt.Sprintf("[%s] %d/%d (%.1f%%)", ProgressBarString(r.QueryIndex, r.Queries), r.QueryIndex, r.Queries, pct)},
		{"Next", next},
		{"Indexed images", fmt.Sprintf("%d", r.Indexed)},
		{"Image files", fmt.Sprintf("%d", r.Files)},
		{"Output", r.OutputDir},
		{"Cursor", cursorLabel(r)},
		{"Index", r.IndexPath},
	}

	lines := []string{panelTitleStyle.Render("CRAWL STATUS"), ""}
	for _, row := range rows {
		lines = append(lines, labelStyle.Render(row[0])+Yellow(row[1]))
	}
	if r.Files != r.Indexed {
		lines = append(lines, "", Yellow("index and files differ, run 'tmscraper reindex'"))
	}

	return panelStyle.Render(strings.Join(lines, "\n"))
}

func cursorLabel(r StatusReport) string {
	if r.CursorSaved {
		return r.StatePath
	}
	return r.StatePath + " (not written yet)"
}

// ItemStatus describes one trademark in the dedup index and the image store
type ItemStatus struct {
	ID       string
	Filename string
	Indexed  bool
	OnDisk   bool
}

// RenderItemStatus renders a one-item lookup
func RenderItemStatus(s ItemStatus) string {
	yesNo := func(b bool) string {
		if b {
			return Green("yes")
		}
		return Red("no")
	}

	lines := []string{
		panelTitleStyle.Render(s.ID),
		"",
		labelStyle.Render("Indexed") + yesNo(s.Indexed),
		labelStyle.Render("File on disk") + yesNo(s.OnDisk),
	}
	if s.Filename != "" {
		lines = append(lines, labelStyle.Render("Filename")+Yellow(s.Filename))
	}
	switch {
	case s.Indexed && !s.OnDisk:
		lines = append(lines, "", Yellow("indexed but missing on disk; it will not be downloaded again"))
	case !s.Indexed && s.OnDisk:
		lines = append(lines, "", Yellow("on disk but not indexed, run 'tmscraper reindex'"))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
