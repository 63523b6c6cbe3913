package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"tmscraper/pkg/crawler"
)

// Dashboard is the full-screen crawl view. It satisfies crawler.Observer,
// and its methods may be called from any goroutine.
type Dashboard struct {
	program *tea.Program
}

// NewDashboard prepares the dashboard. cancel runs when the user quits.
func NewDashboard(cancel func()) *Dashboard {
	m := NewModel(cancel)
	return &Dashboard{program: tea.NewProgram(&m, tea.WithAltScreen())}
}

// Run takes over the terminal until the user quits or Close is called.
func (d *Dashboard) Run() error {
	_, err := d.program.Run()
	return err
}

func (d *Dashboard) Close() { d.program.Quit() }

func (d *Dashboard) OnEvent(e crawler.Event) { d.program.Send(EventMsg(e)) }

// Logf adds a formatted line to the event log.
func (d *Dashboard) Logf(level, format string, args ...interface{}) {
	d.program.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}
