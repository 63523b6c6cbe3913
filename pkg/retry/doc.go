// Package retry provides backoff schedules and a generic retry loop.
//
// The image downloader hands a whole operation to Do. The crawl driver
// keeps its own loop, since it rotates identity between attempts, and only
// consults Policy.Allows and Policy.Pause.
//
//	data, err := retry.Do(ctx, retry.Policy{
//		MaxAttempts: 3,
//		Backoff:     retry.Doubling{Initial: 500 * time.Millisecond, Ceiling: 5 * time.Second},
//	}, func() ([]byte, error) {
//		return client.DownloadImage(ctx, url)
//	})
package retry
