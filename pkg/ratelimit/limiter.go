package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests.
type Limiter interface {
	// Allow takes a slot if one is free right now
	Allow() bool
	// Wait blocks until a slot is taken or ctx is done
	Wait(ctx context.Context) error
	// Reset forgets all past requests
	Reset()
}

// New admits n requests per period. A sliding window spreads them evenly
// over any period-long span; a token bucket refills all n at once.
// A non-positive n disables limiting.
func New(n int, period time.Duration, sliding bool) Limiter {
	switch {
	case n <= 0:
		return Unlimited{}
	case sliding:
		return NewSlidingWindow(n, period)
	default:
		return NewTokenBucket(n, period)
	}
}

// Unlimited admits everything.
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}

// take reports whether a slot was taken, and otherwise how long until one frees up.
type take func() (bool, time.Duration)

func wait(ctx context.Context, try take) error {
	for {
		ok, delay := try()
		if ok {
			return ctx.Err()
		}
		if delay <= 0 {
			delay = time.Millisecond
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// TokenBucket admits bursts of up to burst requests and refills at
// burst per period.
type TokenBucket struct {
	mu     sync.Mutex
	lim    *rate.Limiter
	burst  int
	period time.Duration
}

// NewTokenBucket returns a full bucket.
func NewTokenBucket(burst int, period time.Duration) *TokenBucket {
	b := &TokenBucket{burst: burst, period: period}
	b.Reset()
	return b
}

func (b *TokenBucket) limiter() *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lim
}

func (b *TokenBucket) Allow() bool {
	return b.limiter().Allow()
}

func (b *TokenBucket) Wait(ctx context.Context) error {
	if err := b.limiter().Wait(ctx); err != nil {
		// rate refuses waits that would outlive the deadline
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (b *TokenBucket) Reset() {
	lim := rate.NewLimiter(rate.Every(b.period/time.Duration(b.burst)), b.burst)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lim = lim
}

// SlidingWindow admits at most limit requests in any span of one window.
// The timestamps of the last limit requests live in a ring.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	ring   []time.Time
	oldest int
}

// NewSlidingWindow returns an empty window.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window, limit: limit, ring: make([]time.Time, 0, limit)}
}

func (w *SlidingWindow) take() (bool, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if len(w.ring) < w.limit {
		w.ring = append(w.ring, now)
		return true, 0
	}
	if age := now.Sub(w.ring[w.oldest]); age < w.window {
		return false, w.window - age
	}
	w.ring[w.oldest] = now
	w.oldest = (w.oldest + 1) % w.limit
	return true, 0
}

func (w *SlidingWindow) Allow() bool {
	ok, _ := w.take()
	return ok
}

func (w *SlidingWindow) Wait(ctx context.Context) error {
	return wait(ctx, w.take)
}

// Used returns how many requests fell inside the current window.
func (w *SlidingWindow) Used() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := time.Now().Add(-w.window)
	n := 0
	for _, t := range w.ring {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

func (w *SlidingWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ring = w.ring[:0]
	w.oldest = 0
}
