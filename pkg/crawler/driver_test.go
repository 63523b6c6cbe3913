package crawler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmscraper/internal/downloader"
	"tmscraper/pkg/checkpoint"
	errs "tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
	"tmscraper/pkg/models"
	"tmscraper/pkg/queryspace"
	"tmscraper/pkg/retry"
)

// memCursors is an in-memory cursor store recording every save
type memCursors struct {
	cursor checkpoint.Cursor
	saves  []checkpoint.Cursor
}

func (m *memCursors) Load() (checkpoint.Cursor, error) { return m.cursor, nil }

func (m *memCursors) Save(c checkpoint.Cursor) error {
	m.cursor = c
	m.saves = append(m.saves, c)
	return nil
}

func (m *memCursors) AdvanceQuery(c *checkpoint.Cursor) error {
	c.QueryIndex++
	c.LastCompletedPage = 0
	return m.Save(*c)
}

type fetchCall struct {
	query int
	page  int
}

// scriptedFetcher answers page requests from a function
type scriptedFetcher struct {
	mu     sync.Mutex
	calls  []fetchCall
	answer func(call fetchCall, n int) (*models.Page, error)
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, q queryspace.Query, page int) (*models.Page, error) {
	f.mu.Lock()
	call := fetchCall{query: q.Index, page: page}
	f.calls = append(f.calls, call)
	n := len(f.calls)
	f.mu.Unlock()
	return f.answer(call, n)
}

// pagesOf returns n items per page for pages up to last, exhausted after
func pagesOf(last, n int) func(fetchCall, int) (*models.Page, error) {
	return func(c fetchCall, _ int) (*models.Page, error) {
		if c.page > last {
			return nil, fmt.Errorf("empty: %w", errs.ErrExhausted)
		}
		items := make([]models.Item, n)
		for i := range items {
			id := fmt.Sprintf("Q%dP%dI%d", c.query, c.page, i)
			items[i] = models.Item{ID: id, ImageURL: "http://img/" + id}
		}
		return &models.Page{Number: c.page, Items: items}, nil
	}
}

// countingPool pretends every task downloads
type countingPool struct {
	batches [][]models.DownloadTask
	err     error
}

func (p *countingPool) Run(ctx context.Context, tasks []models.DownloadTask) (downloader.Summary, error) {
	p.batches = append(p.batches, tasks)
	if p.err != nil {
		return downloader.Summary{}, p.err
	}
	return downloader.Summary{Downloaded: len(tasks)}, nil
}

type countingRotator struct {
	calls int
	err   error
}

func (r *countingRotator) Rotate(ctx context.Context) error {
	r.calls++
	return r.err
}

func (r *countingRotator) Name() string { return "test" }

func testQueries(n int) []queryspace.Query {
	types := make([]string, n)
	for i := range types {
		types[i] = fmt.Sprintf("T%d", i)
	}
	return queryspace.Enumerate(queryspace.Base{PageSize: 100}, []string{"Filed"}, []int{1}, types)
}

func testOptions() Options {
	return Options{
		Policy: retry.Policy{Backoff: retry.Fixed(0)},
		Logger: logger.NewNopLogger(),
	}
}

func TestSingleQueryEndToEnd(t *testing.T) {
	cursors := &memCursors{}
	fetcher := &scriptedFetcher{answer: pagesOf(1, 1)}
	pool := &countingPool{}

	d := New(testQueries(1), cursors, fetcher, pool, &countingRotator{}, testOptions())
	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, d.State())
	assert.Equal(t, 1, stats.Downloaded)
	assert.Equal(t, 1, stats.Pages)
	assert.Equal(t, 1, stats.QueriesCompleted)
	assert.Equal(t, []fetchCall{{0, 1}, {0, 2}}, fetcher.calls)

	assert.Equal(t, 1, cursors.cursor.QueryIndex)
	assert.Equal(t, 0, cursors.cursor.LastCompletedPage)
	require.Len(t, cursors.saves, 2)
	assert.Equal(t, 1, cursors.saves[0].LastCompletedPage)
}

func TestResumeAtNextPage(t *testing.T) {
	cursors := &memCursors{cursor: checkpoint.Cursor{QueryIndex: 2, LastCompletedPage: 4}}
	fetcher := &scriptedFetcher{answer: pagesOf(5, 2)}

	d := New(testQueries(3), cursors, fetcher, &countingPool{}, nil, testOptions())
	_, err := d.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, fetcher.calls)
	assert.Equal(t, fetchCall{query: 2, page: 5}, fetcher.calls[0])
	assert.Equal(t, 3, cursors.cursor.QueryIndex)
}

func TestExhaustionAdvancesToNextQuery(t *testing.T) {
	cursors := &memCursors{}
	fetcher := &scriptedFetcher{answer: func(c fetchCall, _ int) (*models.Page, error) {
		if c.query == 0 {
			return nil, errs.ErrExhausted
		}
		return pagesOf(1, 1)(c, 0)
	}}

	d := New(testQueries(2), cursors, fetcher, &countingPool{}, nil, testOptions())
	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fetchCall{query: 1, page: 1}, fetcher.calls[1])
	assert.Equal(t, checkpoint.Cursor{QueryIndex: 1}, cursors.saves[0])
	assert.Equal(t, 2, stats.QueriesCompleted)
	assert.Equal(t, 1, stats.Downloaded)
}

func TestTransientFailuresRotateAndRetry(t *testing.T) {
	cursors := &memCursors{}
	fetcher := &scriptedFetcher{answer: func(c fetchCall, n int) (*models.Page, error) {
		if n <= 3 {
			return nil, errs.Network("connection reset", stderrors.New("reset"))
		}
		return pagesOf(1, 1)(c, n)
	}}
	rotator := &countingRotator{}

	var savesBeforeSuccess int
	obs := ObserverFunc(func(e Event) {
		if e.Kind == EventPageFetched {
			savesBeforeSuccess = len(cursors.saves)
		}
	})

	opts := testOptions()
	opts.Observer = obs
	d := New(testQueries(1), cursors, fetcher, &countingPool{}, rotator, opts)
	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, rotator.calls)
	assert.Equal(t, 3, stats.Rotations)
	assert.Equal(t, 0, savesBeforeSuccess)
	for _, c := range fetcher.calls[:4] {
		assert.Equal(t, fetchCall{query: 0, page: 1}, c)
	}
	assert.Equal(t, 1, stats.Downloaded)
}

func TestRotationFailureAbandonsQuery(t *testing.T) {
	cursors := &memCursors{}
	fetcher := &scriptedFetcher{answer: func(c fetchCall, _ int) (*models.Page, error) {
		if c.query == 0 {
			return nil, errs.Status(403, "blocked")
		}
		return nil, errs.ErrExhausted
	}}
	rotator := &countingRotator{err: errs.New(errs.ErrorTypeRotationUnavailable, "vpn down", 0, nil)}

	d := New(testQueries(2), cursors, fetcher, &countingPool{}, rotator, testOptions())
	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rotator.calls)
	assert.Equal(t, 0, stats.Rotations)
	assert.Equal(t, []fetchCall{{0, 1}, {1, 1}}, fetcher.calls)
	assert.Equal(t, 2, cursors.cursor.QueryIndex)
}

func TestAttemptCapAbandonsQuery(t *testing.T) {
	cursors := &memCursors{}
	fetcher := &scriptedFetcher{answer: func(fetchCall, int) (*models.Page, error) {
		return nil, errs.Parsing("not json", nil)
	}}
	rotator := &countingRotator{}

	opts := testOptions()
	opts.Policy.MaxAttempts = 3
	d := New(testQueries(1), cursors, fetcher, &countingPool{}, rotator, opts)
	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, fetcher.calls, 3)
	assert.Equal(t, 2, rotator.calls)
	assert.Equal(t, 1, cursors.cursor.QueryIndex)
}

func TestPageCeiling(t *testing.T) {
	cursors := &memCursors{}
	fetcher := &scriptedFetcher{answer: pagesOf(100, 1)}

	opts := testOptions()
	opts.MaxPages = 2
	d := New(testQueries(2), cursors, fetcher, &countingPool{}, nil, opts)
	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []fetchCall{{0, 1}, {0, 2}, {1, 1}, {1, 2}}, fetcher.calls)
	assert.Equal(t, 4, stats.Pages)
}

func TestResumePastCeilingAdvances(t *testing.T) {
	cursors := &memCursors{cursor: checkpoint.Cursor{QueryIndex: 0, LastCompletedPage: 7}}
	fetcher := &scriptedFetcher{answer: pagesOf(0, 1)}

	opts := testOptions()
	opts.MaxPages = 5
	d := New(testQueries(2), cursors, fetcher, &countingPool{}, nil, opts)
	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fetchCall{query: 1, page: 1}, fetcher.calls[0])
}

func TestFinishedCursorIsDone(t *testing.T) {
	cursors := &memCursors{cursor: checkpoint.Cursor{QueryIndex: 3}}
	fetcher := &scriptedFetcher{answer: pagesOf(1, 1)}

	d := New(testQueries(3), cursors, fetcher, &countingPool{}, nil, testOptions())
	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, d.State())
	assert.Empty(t, fetcher.calls)
	assert.Empty(t, cursors.saves)
	assert.Equal(t, 0, stats.QueriesCompleted)
}

func TestInterruptedBatchIsNotSaved(t *testing.T) {
	cursors := &memCursors{cursor: checkpoint.Cursor{QueryIndex: 0, LastCompletedPage: 3}}
	fetcher := &scriptedFetcher{answer: pagesOf(10, 2)}
	pool := &countingPool{err: context.Canceled}

	d := New(testQueries(1), cursors, fetcher, pool, nil, testOptions())
	_, err := d.Run(context.Background())
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, cursors.saves)
	assert.Equal(t, 3, cursors.cursor.LastCompletedPage)
}

func TestCancelledDuringBackoff(t *testing.T) {
	cursors := &memCursors{}
	fetcher := &scriptedFetcher{answer: func(fetchCall, int) (*models.Page, error) {
		return nil, errs.Status(503, "unavailable")
	}}

	opts := testOptions()
	opts.Policy = retry.DefaultPolicy(time.Hour)
	d := New(testQueries(1), cursors, fetcher, &countingPool{}, nil, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, fetcher.calls, 1)
	assert.Empty(t, cursors.saves)
}

func TestItemsWithoutImageAreNotDownloaded(t *testing.T) {
	cursors := &memCursors{}
	fetcher := &scriptedFetcher{answer: func(c fetchCall, _ int) (*models.Page, error) {
		if c.page > 1 {
			return nil, errs.ErrExhausted
		}
		return &models.Page{Number: 1, Items: []models.Item{
			{ID: "A", ImageURL: "http://img/A"},
			{ID: "B"},
		}}, nil
	}}
	pool := &countingPool{}

	d := New(testQueries(1), cursors, fetcher, pool, nil, testOptions())
	_, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, pool.batches, 1)
	require.Len(t, pool.batches[0], 1)
	assert.Equal(t, "A", pool.batches[0][0].ItemID)
}

func TestObserverSeesTransitions(t *testing.T) {
	var kinds []EventKind
	opts := testOptions()
	opts.Observer = ObserverFunc(func(e Event) { kinds = append(kinds, e.Kind) })

	d := New(testQueries(1), &memCursors{}, &scriptedFetcher{answer: pagesOf(1, 1)}, &countingPool{}, nil, opts)
	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []EventKind{EventPageFetched, EventBatchDone, EventQueryAdvanced, EventDone}, kinds)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "FETCHING_PAGE", StateFetchingPage.String())
	assert.Equal(t, "DOWNLOADING", StateDownloading.String())
	assert.Equal(t, "ADVANCING_QUERY", StateAdvancingQuery.String())
	assert.Equal(t, "DONE", StateDone.String())
}
