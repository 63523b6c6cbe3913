package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "tmscraper/pkg/errors"
)

// Policy bounds how often and how fast a failing operation is tried again.
type Policy struct {
	// MaxAttempts caps the attempts; 0 means unlimited
	MaxAttempts int
	Backoff     Backoff
	// Retryable filters errors worth another attempt; Transient when nil
	Retryable func(error) bool
	// OnRetry observes each failure that will be retried
	OnRetry func(failed int, err error, pause time.Duration)
}

// DefaultPolicy retries without limit after a fixed pause.
func DefaultPolicy(pause time.Duration) Policy {
	return Policy{Backoff: Fixed(pause)}
}

// Allows reports whether another attempt may follow the given number of failed attempts.
func (p Policy) Allows(failed int) bool {
	return p.MaxAttempts <= 0 || failed < p.MaxAttempts
}

// Pause returns the wait after the given number of failed attempts.
func (p Policy) Pause(failed int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff.Pause(failed)
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return Transient(err)
}

// Transient reports whether err is likely to clear up on its own.
// Cancellation never is; a download status only when the server may recover.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var e *errs.Error
	if !errors.As(err, &e) {
		return true
	}
	if e.Type == errs.ErrorTypeDownload {
		return errs.IsRetryableStatusCode(e.Code)
	}
	return errs.IsRetryable(e.Type)
}

// Do calls op until it succeeds, fails permanently, exhausts the policy or ctx ends.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	var zero T
	for failed := 0; ; {
		v, err := op()
		if err == nil {
			return v, nil
		}
		failed++

		if !p.retryable(err) {
			return zero, err
		}
		if !p.Allows(failed) {
			return zero, fmt.Errorf("gave up after %d attempts: %w", failed, err)
		}

		pause := p.Pause(failed)
		if p.OnRetry != nil {
			p.OnRetry(failed, err, pause)
		}
		if werr := Wait(ctx, pause); werr != nil {
			return zero, fmt.Errorf("retry interrupted: %w", werr)
		}
	}
}
