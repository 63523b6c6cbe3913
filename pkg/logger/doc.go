// Package logger provides the structured logging interface used across the crawler.
//
// It wraps zerolog. Console output is human readable, with coloured levels
// when stderr is a terminal; JSON lines are written when logging.format is
// "json" or to the optional log file.
//
// Basic Usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//
//	log := logger.GetLogger().WithField("component", "crawler")
//	log.InfoWithFields("Page fetched", map[string]interface{}{
//	    "query_index": 12,
//	    "page":        3,
//	})
//
// Tests use NewNopLogger or NewTestLogger, which records every message for
// later assertions.
package logger
