package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tmscraper/pkg/crawler"
)

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the crawl dashboard state. It is only mutated from Update.
type Model struct {
	// UI components
	spinner  spinner.Model
	progress progress.Model

	// Crawl state
	state      string
	queryIndex int
	queries    int
	query      string
	page       int
	attempt    int
	stats      crawler.Stats
	done       bool

	sessionStartTime time.Time

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int
	onQuit         func()
}

// NewModel creates a new dashboard model. onQuit runs when the user quits.
func NewModel(onQuit func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(palette.accent)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	if onQuit == nil {
		onQuit = func() {}
	}

	return Model{
		spinner:          s,
		progress:         p,
		state:            "STARTING",
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
		onQuit:           onQuit,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

// Apply folds a crawl event into the model
func (m *Model) Apply(e crawler.Event) {
	m.queryIndex = e.QueryIndex
	m.queries = e.Queries
	m.query = e.Query
	m.page = e.Page
	m.stats = e.Stats

	switch e.Kind {
	case crawler.EventPageFetched:
		m.state = "DOWNLOADING"
		m.attempt = 0
		m.AddLogMessage("INFO", fmt.Sprintf("%s page %d: %d items", e.Query, e.Page, e.Items))
	case crawler.EventBatchDone:
		m.state = "FETCHING_PAGE"
	case crawler.EventFetchFailed:
		m.state = "RETRYING"
		m.attempt = e.Attempt
		m.AddLogMessage("ERROR", fmt.Sprintf("%s page %d: %v", e.Query, e.Page, e.Err))
	case crawler.EventRotated:
		m.AddLogMessage("WARN", fmt.Sprintf("identity rotated (attempt %d)", e.Attempt))
	case crawler.EventQueryAdvanced:
		m.state = "FETCHING_PAGE"
		m.AddLogMessage("INFO", fmt.Sprintf("advanced to query %d/%d", e.QueryIndex, e.Queries))
	case crawler.EventDone:
		m.state = "DONE"
		m.done = true
		m.AddLogMessage("SUCCESS", fmt.Sprintf("crawl complete: %d images downloaded", e.Stats.Downloaded))
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color, ok := levelColors[level]
	if !ok {
		color = palette.text
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Fraction returns the share of queries completed
func (m *Model) Fraction() float64 {
	if m.queries == 0 {
		return 0
	}
	f := float64(m.queryIndex) / float64(m.queries)
	if f > 1 {
		f = 1
	}
	return f
}

// Rate returns images downloaded per minute this session
func (m *Model) Rate() float64 {
	elapsed := time.Since(m.sessionStartTime).Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.stats.Downloaded) / elapsed
}
