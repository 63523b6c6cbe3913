// Package ratelimit paces requests to the trademark search service and its
// image host.
//
// Search pages go through a SlidingWindow, so a burst after an idle spell
// never exceeds the per-minute budget. Image downloads share one
// TokenBucket across all workers. Every Wait returns the context's error
// as soon as the crawl is cancelled.
//
//	limiter := ratelimit.New(cfg.RateLimit.RequestsPerMinute, time.Minute, true)
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
package ratelimit
