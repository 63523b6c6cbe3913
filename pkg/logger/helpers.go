package logger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// LogPageFetched logs the result of one search page request
func LogPageFetched(l Logger, queryIndex int, query string, page, items int) {
	l.InfoWithFields("Page fetched", map[string]interface{}{
		"query_index": queryIndex,
		"query":       query,
		"page":        page,
		"items":       items,
	})
}

// LogDownload logs the outcome of one image download
func LogDownload(l Logger, itemID string, skipped bool, err error) {
	l = l.WithField("item_id", itemID)

	switch {
	case err != nil:
		l.WithError(err).Warn("Download failed")
	case skipped:
		l.Debug("Download skipped, already indexed")
	default:
		l.Debug("Download completed")
	}
}

// LogRotation logs an identity rotation attempt
func LogRotation(l Logger, provider string, attempt int, err error) {
	fields := map[string]interface{}{
		"provider": provider,
		"attempt":  attempt,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("Identity rotation failed", fields)
		return
	}
	l.InfoWithFields("Identity rotated", fields)
}

// LogCursor logs a persisted crawl position
func LogCursor(l Logger, queryIndex, lastPage, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(queryIndex) / float64(total) * 100
	}

	l.DebugWithFields("Cursor persisted", map[string]interface{}{
		"query_index": queryIndex,
		"last_page":   lastPage,
		"queries":     total,
		"progress":    fmt.Sprintf("%.1f%%", percentage),
	})
}

// LogMetrics logs a set of counters under one operation name
func LogMetrics(l Logger, operation string, metrics map[string]interface{}) {
	fields := map[string]interface{}{
		"operation": operation,
		"type":      "metrics",
	}
	for k, v := range metrics {
		fields[k] = v
	}
	l.InfoWithFields("Crawl statistics", fields)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
