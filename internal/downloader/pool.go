package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"tmscraper/pkg/logger"
	"tmscraper/pkg/metadata"
	"tmscraper/pkg/models"
	"tmscraper/pkg/ratelimit"
	"tmscraper/pkg/retry"
)

// Outcome is what happened to one download task
type Outcome int

const (
	Downloaded Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Downloaded:
		return "downloaded"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// DownloadResult represents the result of a download task
type DownloadResult struct {
	Task     models.DownloadTask
	Outcome  Outcome
	Filename string
	Error    error
	Duration time.Duration
	Size     int
}

// Summary aggregates the results of one batch
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
	Results    []DownloadResult
}

// Total returns the number of tasks accounted for
func (s Summary) Total() int {
	return s.Downloaded + s.Skipped + s.Failed
}

// ImageDownloader fetches image bytes
type ImageDownloader interface {
	DownloadImage(ctx context.Context, url string) ([]byte, error)
}

// ImageStorage persists images
type ImageStorage interface {
	SaveImage(id string, r io.Reader) (string, error)
	Path(id string) string
}

// DedupIndex records which items are already stored
type DedupIndex interface {
	Contains(ctx context.Context, id string) (bool, error)
	Put(ctx context.Context, id, filename string) error
}

// Options configures a WorkerPool
type Options struct {
	// Workers is the maximum number of concurrent downloads
	Workers int
	// Limiter paces image requests across all workers; unlimited when nil
	Limiter ratelimit.Limiter
	// RetryAttempts is the number of tries per image (at least 1)
	RetryAttempts int
	// RetryBackoff spaces those tries
	RetryBackoff retry.Backoff
	// SaveMetadata writes a JSON sidecar next to each new image
	SaveMetadata bool
	Logger       logger.Logger
}

// WorkerPool downloads one page worth of images concurrently
type WorkerPool struct {
	client  ImageDownloader
	storage ImageStorage
	index   DedupIndex
	opts    Options
	group   singleflight.Group
	logger  logger.Logger
}

// NewWorkerPool creates a new download worker pool
func NewWorkerPool(client ImageDownloader, storage ImageStorage, index DedupIndex, opts Options) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	if opts.RetryBackoff == nil {
		opts.RetryBackoff = retry.Doubling{
			Initial: 500 * time.Millisecond,
			Ceiling: 5 * time.Second,
			Spread:  0.2,
		}
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	return &WorkerPool{
		client:  client,
		storage: storage,
		index:   index,
		opts:    opts,
		logger:  opts.Logger.WithField("component", "downloader"),
	}
}

// Run processes every task and returns once all of them have finished.
// A failing task never stops its siblings. If ctx is cancelled, tasks not yet
// started are abandoned and ctx's error is returned with the partial summary.
func (wp *WorkerPool) Run(ctx context.Context, tasks []models.DownloadTask) (Summary, error) {
	if len(tasks) == 0 {
		return Summary{}, ctx.Err()
	}

	workers := wp.opts.Workers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	jobQueue := make(chan models.DownloadTask)
	var (
		mu      sync.Mutex
		summary Summary
	)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error {
			for task := range jobQueue {
				result := wp.processTask(ctx, task, workerID)

				mu.Lock()
				summary.Results = append(summary.Results, result)
				switch result.Outcome {
				case Downloaded:
					summary.Downloaded++
				case Skipped:
					summary.Skipped++
				default:
					summary.Failed++
				}
				mu.Unlock()
			}
			return nil
		})
	}

feed:
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobQueue <- task:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobQueue)
	_ = g.Wait()

	wp.logger.DebugWithFields("Batch finished", map[string]interface{}{
		"tasks":      len(tasks),
		"downloaded": summary.Downloaded,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
	})

	return summary, ctx.Err()
}

// processTask collapses concurrent tasks for the same item into one download
func (wp *WorkerPool) processTask(ctx context.Context, task models.DownloadTask, workerID int) DownloadResult {
	start := time.Now()

	owner := false
	v, _, _ := wp.group.Do(task.ItemID, func() (interface{}, error) {
		owner = true
		return wp.download(ctx, task, workerID), nil
	})
	result := v.(DownloadResult)
	result.Task = task

	// Callers that joined an in-flight download of the same item only see a duplicate
	if !owner && result.Outcome == Downloaded {
		result.Outcome = Skipped
		result.Duration = time.Since(start)
	}
	return result
}

// download handles a single image
func (wp *WorkerPool) download(ctx context.Context, task models.DownloadTask, workerID int) DownloadResult {
	start := time.Now()
	result := DownloadResult{Task: task, Outcome: Failed}
	log := wp.logger.WithFields(map[string]interface{}{
		"worker_id": workerID,
		"item_id":   task.ItemID,
	})

	done := func(outcome Outcome, err error) DownloadResult {
		result.Outcome = outcome
		result.Error = err
		result.Duration = time.Since(start)
		logger.LogDownload(log, task.ItemID, outcome == Skipped, err)
		return result
	}

	stored, err := wp.index.Contains(ctx, task.ItemID)
	if err != nil {
		return done(Failed, fmt.Errorf("index lookup failed: %w", err))
	}
	if stored {
		return done(Skipped, nil)
	}

	if err := wp.opts.Limiter.Wait(ctx); err != nil {
		return done(Failed, err)
	}

	data, err := retry.Do(ctx, retry.Policy{
		MaxAttempts: wp.opts.RetryAttempts,
		Backoff:     wp.opts.RetryBackoff,
		OnRetry: func(failed int, err error, pause time.Duration) {
			log.WithError(err).WithField("attempt", failed).Debug("Retrying image download")
		},
	}, func() ([]byte, error) {
		return wp.client.DownloadImage(ctx, task.ImageURL)
	})
	if err != nil {
		return done(Failed, fmt.Errorf("download failed: %w", err))
	}
	result.Size = len(data)

	filename, err := wp.storage.SaveImage(task.ItemID, bytes.NewReader(data))
	if err != nil {
		return done(Failed, fmt.Errorf("save failed: %w", err))
	}
	result.Filename = filename

	// The file is on disk; record it even if the crawl is being cancelled.
	if err := wp.index.Put(context.WithoutCancel(ctx), task.ItemID, filename); err != nil {
		return done(Failed, fmt.Errorf("index update failed: %w", err))
	}

	if wp.opts.SaveMetadata {
		meta := metadata.FromItem(task.Item, int64(len(data)))
		if err := meta.Save(wp.storage.Path(task.ItemID)); err != nil {
			log.WithError(err).Warn("Failed to write metadata")
		}
	}

	return done(Downloaded, nil)
}
