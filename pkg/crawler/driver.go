package crawler

import (
	"context"
	"fmt"
	"time"

	"tmscraper/pkg/checkpoint"
	errs "tmscraper/pkg/errors"
	"tmscraper/pkg/identity"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/models"
	"tmscraper/pkg/queryspace"
	"tmscraper/pkg/retry"
)

// State is a crawl driver state
type State int

const (
	StateFetchingPage State = iota
	StateDownloading
	StateAdvancingQuery
	StateDone
)

func (s State) String() string {
	switch s {
	case StateFetchingPage:
		return "FETCHING_PAGE"
	case StateDownloading:
		return "DOWNLOADING"
	case StateAdvancingQuery:
		return "ADVANCING_QUERY"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Stats counts what one Run did
type Stats struct {
	Pages            int
	Downloaded       int
	Skipped          int
	Failed           int
	Rotations        int
	QueriesCompleted int
	Duration         time.Duration
}

// Options configures a Driver
type Options struct {
	// MaxPages is the per-query page ceiling (0 means none)
	MaxPages int
	// Policy governs transient page fetch retries
	Policy   retry.Policy
	Observer Observer
	Logger   logger.Logger
}

// Driver walks the query space page by page, downloading every page's images
// before recording it as done.
type Driver struct {
	queries []queryspace.Query
	cursors CursorStore
	fetcher PageFetcher
	pool    BatchRunner
	rotator identity.Rotator
	opts    Options
	logger  logger.Logger

	cursor  checkpoint.Cursor
	state   State
	page    int
	current *models.Page
	failed  int
	stats   Stats
	started time.Time
}

// New creates a crawl driver
func New(queries []queryspace.Query, cursors CursorStore, fetcher PageFetcher, pool BatchRunner, rotator identity.Rotator, opts Options) *Driver {
	if rotator == nil {
		rotator = identity.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	if opts.Observer == nil {
		opts.Observer = ObserverFunc(func(Event) {})
	}

	return &Driver{
		queries: queries,
		cursors: cursors,
		fetcher: fetcher,
		pool:    pool,
		rotator: rotator,
		opts:    opts,
		logger:  opts.Logger.WithField("component", "crawler"),
	}
}

// Run crawls from the persisted cursor until every query is exhausted or
// ctx is cancelled. A nil error means the crawl reached DONE.
func (d *Driver) Run(ctx context.Context) (Stats, error) {
	d.started = time.Now()
	d.stats = Stats{}

	cursor, err := d.cursors.Load()
	if err != nil {
		return d.finish(), fmt.Errorf("failed to load cursor: %w", err)
	}
	d.cursor = cursor
	d.failed = 0
	d.state = d.initialState()
	d.page = d.cursor.NextPage()

	if d.state != StateDone {
		d.logger.InfoWithFields("Crawl starting", map[string]interface{}{
			"query_index": d.cursor.QueryIndex,
			"page":        d.page,
			"queries":     len(d.queries),
		})
	}

	for {
		if err := ctx.Err(); err != nil {
			return d.finish(), err
		}

		var err error
		switch d.state {
		case StateFetchingPage:
			err = d.fetch(ctx)
		case StateDownloading:
			err = d.download(ctx)
		case StateAdvancingQuery:
			err = d.advance()
		case StateDone:
			stats := d.finish()
			d.emit(Event{Kind: EventDone, Stats: stats})
			d.logger.Info("All queries exhausted")
			return stats, nil
		}
		if err != nil {
			return d.finish(), err
		}
	}
}

// State returns the current state
func (d *Driver) State() State {
	return d.state
}

// Cursor returns the in-memory cursor
func (d *Driver) Cursor() checkpoint.Cursor {
	return d.cursor
}

func (d *Driver) initialState() State {
	switch {
	case d.cursor.QueryIndex >= len(d.queries):
		return StateDone
	case d.ceilingReached():
		return StateAdvancingQuery
	default:
		return StateFetchingPage
	}
}

func (d *Driver) ceilingReached() bool {
	return d.opts.MaxPages > 0 && d.cursor.LastCompletedPage >= d.opts.MaxPages
}

func (d *Driver) query() queryspace.Query {
	return d.queries[d.cursor.QueryIndex]
}

func (d *Driver) fetch(ctx context.Context) error {
	q := d.query()
	page, err := d.fetcher.FetchPage(ctx, q, d.page)
	if err == nil {
		d.failed = 0
		d.current = page
		d.state = StateDownloading
		logger.LogPageFetched(d.logger, q.Index, q.String(), d.page, len(page.Items))
		d.emit(Event{Kind: EventPageFetched, Items: len(page.Items)})
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	log := d.logger.WithFields(map[string]interface{}{
		"query_index": q.Index,
		"query":       q.String(),
		"page":        d.page,
	})

	if errs.Classify(err) == errs.Exhausted {
		log.Info("Query exhausted")
		d.state = StateAdvancingQuery
		return nil
	}

	d.failed++
	log.WithError(err).WithField("attempt", d.failed).Warn("Page fetch failed")
	d.emit(Event{Kind: EventFetchFailed, Attempt: d.failed, Err: err})

	if !d.opts.Policy.Allows(d.failed) {
		log.WithField("attempts", d.failed).Warn("Page fetch attempts exhausted, abandoning query")
		d.state = StateAdvancingQuery
		return nil
	}

	rotErr := d.rotator.Rotate(ctx)
	if rotErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.LogRotation(log, d.rotator.Name(), d.failed, rotErr)
		d.state = StateAdvancingQuery
		return nil
	}
	d.stats.Rotations++
	logger.LogRotation(log, d.rotator.Name(), d.failed, nil)
	d.emit(Event{Kind: EventRotated, Attempt: d.failed})

	return retry.Wait(ctx, d.opts.Policy.Pause(d.failed))
}

func (d *Driver) download(ctx context.Context) error {
	tasks := models.TasksFromItems(d.current.Items)
	summary, err := d.pool.Run(ctx, tasks)

	d.stats.Downloaded += summary.Downloaded
	d.stats.Skipped += summary.Skipped
	d.stats.Failed += summary.Failed
	if err != nil {
		// the page did not drain; it is fetched again on resume
		return err
	}

	d.cursor.LastCompletedPage = d.page
	if err := d.cursors.Save(d.cursor); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	logger.LogCursor(d.logger, d.cursor.QueryIndex, d.cursor.LastCompletedPage, len(d.queries))

	d.stats.Pages++
	d.current = nil
	d.emit(Event{Kind: EventBatchDone, Items: len(tasks)})

	d.page++
	if d.ceilingReached() {
		d.logger.WithField("max_pages", d.opts.MaxPages).Info("Page ceiling reached")
		d.state = StateAdvancingQuery
	} else {
		d.state = StateFetchingPage
	}
	return nil
}

func (d *Driver) advance() error {
	if err := d.cursors.AdvanceQuery(&d.cursor); err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}
	d.stats.QueriesCompleted++
	d.failed = 0
	d.page = d.cursor.NextPage()
	logger.LogCursor(d.logger, d.cursor.QueryIndex, d.cursor.LastCompletedPage, len(d.queries))

	if d.cursor.QueryIndex >= len(d.queries) {
		d.state = StateDone
	} else {
		d.state = StateFetchingPage
	}
	d.emit(Event{Kind: EventQueryAdvanced})
	return nil
}

func (d *Driver) emit(e Event) {
	e.Time = time.Now()
	e.Queries = len(d.queries)
	e.QueryIndex = d.cursor.QueryIndex
	if d.cursor.QueryIndex < len(d.queries) {
		e.Query = d.query().String()
	}
	if e.Page == 0 {
		e.Page = d.page
	}
	if e.Kind != EventDone {
		e.Stats = d.stats
	}
	d.opts.Observer.OnEvent(e)
}

func (d *Driver) finish() Stats {
	d.stats.Duration = time.Since(d.started)
	return d.stats
}
