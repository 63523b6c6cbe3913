package ui

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tmscraper/pkg/crawler"
)

func TestProgressBarString(t *testing.T) {
	assert.Equal(t, strings.Repeat(ProgressEmpty, 20), ProgressBarString(0, 10))
	assert.Equal(t, strings.Repeat(ProgressBar, 10)+strings.Repeat(ProgressEmpty, 10), ProgressBarString(5, 10))
	assert.Equal(t, strings.Repeat(ProgressBar, 20), ProgressBarString(12, 10))
	assert.Equal(t, strings.Repeat(ProgressEmpty, 20), ProgressBarString(3, 0))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m5s"},
		{2*time.Hour + 7*time.Minute, "2h7m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestProgressDisplay(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, true)

	p.OnEvent(crawler.Event{Kind: crawler.EventPageFetched, QueryIndex: 3, Queries: 630, Query: "Filed/4/Word", Page: 2})
	p.OnEvent(crawler.Event{Kind: crawler.EventFetchFailed, Query: "Filed/4/Word", Page: 2, Attempt: 1, Err: stderrors.New("HTTP 403")})
	p.OnEvent(crawler.Event{Kind: crawler.EventRotated, Query: "Filed/4/Word", Page: 2})
	p.OnEvent(crawler.Event{Kind: crawler.EventDone, Stats: crawler.Stats{Downloaded: 7, Pages: 2, QueriesCompleted: 1}})

	out := buf.String()
	assert.Contains(t, out, "3/630")
	assert.Contains(t, out, "Filed/4/Word p2")
	assert.Contains(t, out, "HTTP 403")
	assert.Contains(t, out, "identity rotated")
	assert.Contains(t, out, "7 downloaded")
}

func TestRenderStatus(t *testing.T) {
	out := RenderStatus(StatusReport{
		QueryIndex:        10,
		LastCompletedPage: 4,
		Queries:           630,
		NextQuery:         "Filed/11/Word",
		Indexed:           1200,
		Files:             1200,
		OutputDir:         "/data/images",
	})
	assert.Contains(t, out, "CRAWL STATUS")
	assert.Contains(t, out, "Filed/11/Word page 5")
	assert.Contains(t, out, "10/630")
	assert.NotContains(t, out, "reindex")

	out = RenderStatus(StatusReport{QueryIndex: 630, Queries: 630, Indexed: 5, Files: 6})
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "reindex")
	assert.Contains(t, out, "not written yet")

	out = RenderStatus(StatusReport{Queries: 630, StatePath: "/state/state.json", CursorSaved: true})
	assert.Contains(t, out, "/state/state.json")
	assert.NotContains(t, out, "not written yet")
}

func TestRenderItemStatus(t *testing.T) {
	out := RenderItemStatus(ItemStatus{ID: "US1", Filename: "US1.jpg", Indexed: true, OnDisk: true})
	assert.Contains(t, out, "US1.jpg")
	assert.NotContains(t, out, "missing")

	out = RenderItemStatus(ItemStatus{ID: "US2", Indexed: true})
	assert.Contains(t, out, "missing on disk")

	out = RenderItemStatus(ItemStatus{ID: "US3", OnDisk: true})
	assert.Contains(t, out, "reindex")
}

type fakeSender struct {
	titles []string
}

func (f *fakeSender) Send(title, message string) error {
	f.titles = append(f.titles, title)
	return nil
}

func TestNotifier(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	sender := &fakeSender{}
	n := NewNotifierWithSender(sender)
	n.SendSuccess("Crawl complete", "42 images")
	n.SendError("Crawl failed", "disk full")

	assert.Equal(t, []string{"Crawl complete", "Crawl failed"}, sender.titles)
	assert.Contains(t, buf.String(), "42 images")
	assert.Contains(t, buf.String(), "disk full")

	var nilNotifier *Notifier
	assert.NotPanics(t, func() { nilNotifier.send("x", "y") })
}

func TestQuietMode(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	SetQuietMode(true)
	defer SetQuietMode(false)

	PrintInfo("Output", "./images")
	PrintSuccess("done")
	assert.Empty(t, buf.String())

	PrintError("failed", "boom")
	assert.Contains(t, buf.String(), "failed: boom")
}

func TestWriteMarkdownStatus(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMarkdownStatus(&buf, StatusReport{
		QueryIndex:        1,
		LastCompletedPage: 2,
		Queries:           4,
		NextQuery:         "Filed/1/Colour",
		Indexed:           10,
		Files:             12,
		OutputDir:         "/data",
	}, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "# tmscraper crawl status")
	assert.Contains(t, out, "1 / 4 (25.0%)")
	assert.Contains(t, out, "`Filed/1/Colour` page 3")
	assert.Contains(t, out, "tmscraper reindex")
	assert.Contains(t, out, "2025-01-02 03:04:05 UTC")
}
