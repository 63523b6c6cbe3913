package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"tmscraper/pkg/crawler"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// ProgressDisplay prints one status line per crawl event
type ProgressDisplay struct {
	mu        sync.Mutex
	w         io.Writer
	startTime time.Time
	verbose   bool
}

// NewProgressDisplay creates a progress display writing to w. In verbose mode
// every event gets its own line instead of an overwritten status line.
func NewProgressDisplay(w io.Writer, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{w: w, startTime: time.Now(), verbose: verbose}
}

// OnEvent implements crawler.Observer
func (p *ProgressDisplay) OnEvent(e crawler.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Kind {
	case crawler.EventFetchFailed:
		p.println(fmt.Sprintf("%s %s page %d attempt %d: %v", Red("✗"), e.Query, e.Page, e.Attempt, e.Err))
	case crawler.EventRotated:
		p.println(fmt.Sprintf("%s identity rotated, retrying %s page %d", Yellow("↻"), e.Query, e.Page))
	case crawler.EventQueryAdvanced:
		if p.verbose {
			p.println(fmt.Sprintf("%s query %d/%d", Magenta("→"), e.QueryIndex, e.Queries))
		}
	case crawler.EventDone:
		p.println(FormatSummary(e.Stats))
	default:
		p.status(e)
	}
}

func (p *ProgressDisplay) status(e crawler.Event) {
	line := FormatStatus(e, time.Since(p.startTime))
	if p.verbose {
		fmt.Fprintln(p.w, line)
		return
	}
	fmt.Fprintf(p.w, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

func (p *ProgressDisplay) println(s string) {
	if !p.verbose {
		fmt.Fprintln(p.w)
	}
	fmt.Fprintln(p.w, s)
}

// ProgressBarString renders done/total as a fixed width bar
func ProgressBarString(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
}

// FormatStatus renders the one-line crawl status
func FormatStatus(e crawler.Event, elapsed time.Duration) string {
	rate := 0.0
	if elapsed > 0 {
		rate = float64(e.Stats.Downloaded) / elapsed.Minutes()
	}
	return fmt.Sprintf("%s [%s] %d/%d • %s p%d • %s dl • %d skip • %d fail • %.1f/min",
		Cyan("[CRAWL]"),
		ProgressBarString(e.QueryIndex, e.Queries),
		e.QueryIndex, e.Queries,
		e.Query, e.Page,
		Green(fmt.Sprintf("%d", e.Stats.Downloaded)),
		e.Stats.Skipped,
		e.Stats.Failed,
		rate,
	)
}

// FormatSummary renders the end-of-crawl statistics
func FormatSummary(s crawler.Stats) string {
	return fmt.Sprintf("%s %d downloaded, %d skipped, %d failed over %d pages and %d queries (%d rotations) in %s",
		Green("✓"),
		s.Downloaded, s.Skipped, s.Failed,
		s.Pages, s.QueriesCompleted, s.Rotations,
		FormatDuration(s.Duration),
	)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
