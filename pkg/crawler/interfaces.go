package crawler

import (
	"context"

	"tmscraper/internal/downloader"
	"tmscraper/pkg/checkpoint"
	"tmscraper/pkg/models"
	"tmscraper/pkg/queryspace"
)

// CursorStore persists the crawl position
type CursorStore interface {
	Load() (checkpoint.Cursor, error)
	Save(cursor checkpoint.Cursor) error
	AdvanceQuery(cursor *checkpoint.Cursor) error
}

// PageFetcher requests one page of search results
type PageFetcher interface {
	FetchPage(ctx context.Context, q queryspace.Query, page int) (*models.Page, error)
}

// BatchRunner downloads every task of one page and returns once all are done
type BatchRunner interface {
	Run(ctx context.Context, tasks []models.DownloadTask) (downloader.Summary, error)
}
