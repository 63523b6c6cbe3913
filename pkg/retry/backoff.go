package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff maps a count of failed attempts to the pause before the next one.
type Backoff interface {
	Pause(failed int) time.Duration
}

// Fixed pauses the same amount after every failure.
type Fixed time.Duration

// Pause implements Backoff.
func (f Fixed) Pause(failed int) time.Duration {
	if failed <= 0 || f < 0 {
		return 0
	}
	return time.Duration(f)
}

// Doubling grows the pause geometrically from Initial, never beyond Ceiling.
// Spread randomizes each pause by up to that fraction in either direction.
type Doubling struct {
	Initial time.Duration
	Ceiling time.Duration
	// Factor defaults to 2
	Factor float64
	Spread float64
}

// Pause implements Backoff.
func (d Doubling) Pause(failed int) time.Duration {
	if failed <= 0 || d.Initial <= 0 {
		return 0
	}
	factor := d.Factor
	if factor < 1 {
		factor = 2
	}

	pause := float64(d.Initial) * math.Pow(factor, float64(failed-1))
	if d.Ceiling > 0 {
		pause = math.Min(pause, float64(d.Ceiling))
	}
	if d.Spread > 0 {
		pause *= 1 + d.Spread*(2*rand.Float64()-1)
	}
	return time.Duration(math.Max(pause, 0))
}

// Wait sleeps for d unless ctx ends first, in which case it returns ctx.Err().
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
