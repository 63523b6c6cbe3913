package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"tmscraper/pkg/crawler"
)

// EventMsg delivers a crawl event to the program.
type EventMsg crawler.Event

// LogMsg appends a line to the event log.
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg refreshes the elapsed time and rate once a second.
type TickMsg time.Time

var keys = struct {
	Quit, Help, Clear key.Binding
}{
	Quit:  key.NewBinding(key.WithKeys("q", "Q", "ctrl+c"), key.WithHelp("q / ctrl+c", "stop the crawl (progress is saved per page)")),
	Clear: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear the event log")),
	Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle this help")),
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd = m.onKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = max(10, msg.Width/2-16)
	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
	case TickMsg:
		cmd = tick()
	case EventMsg:
		m.Apply(crawler.Event(msg))
	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
	}
	return m, cmd
}

func (m *Model) onKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		m.onQuit()
		return tea.Quit
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, keys.Clear):
		m.logMessages = nil
	}
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return TickMsg(t) })
}
