package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "tmscraper/pkg/errors"
)

func TestDoublingPause(t *testing.T) {
	b := Doubling{Initial: 100 * time.Millisecond, Ceiling: time.Second}

	want := []time.Duration{0, 100, 200, 400, 800, 1000, 1000}
	for failed, ms := range want {
		assert.Equal(t, ms*time.Millisecond, b.Pause(failed), "after %d failures", failed)
	}

	triple := Doubling{Initial: time.Second, Factor: 3}
	assert.Equal(t, 9*time.Second, triple.Pause(3))
}

func TestDoublingSpread(t *testing.T) {
	b := Doubling{Initial: 100 * time.Millisecond, Ceiling: time.Second, Spread: 0.3}

	seen := map[time.Duration]struct{}{}
	for range 20 {
		p := b.Pause(2)
		assert.GreaterOrEqual(t, p, 140*time.Millisecond)
		assert.LessOrEqual(t, p, 260*time.Millisecond)
		seen[p] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestFixedPause(t *testing.T) {
	f := Fixed(10 * time.Second)
	assert.Zero(t, f.Pause(0))
	assert.Equal(t, 10*time.Second, f.Pause(1))
	assert.Equal(t, 10*time.Second, f.Pause(500))
}

func TestPolicyLimits(t *testing.T) {
	unlimited := DefaultPolicy(10 * time.Second)
	for _, failed := range []int{0, 1, 100, 100000} {
		assert.True(t, unlimited.Allows(failed))
	}
	assert.Equal(t, 10*time.Second, unlimited.Pause(3))

	capped := Policy{MaxAttempts: 3, Backoff: Fixed(time.Millisecond)}
	assert.True(t, capped.Allows(2))
	assert.False(t, capped.Allows(3))

	assert.Zero(t, Policy{}.Pause(1))
}

func TestDoRecovers(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{MaxAttempts: 5}, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "jpeg", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "jpeg", got)
	assert.Equal(t, 3, calls)
}

func TestDoGivesUp(t *testing.T) {
	calls, retried := 0, 0
	boom := errors.New("still broken")
	_, err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		Backoff:     Fixed(time.Millisecond),
		OnRetry:     func(int, error, time.Duration) { retried++ },
	}, func() (int, error) {
		calls++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retried)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	missing := errs.New(errs.ErrorTypeDownload, "image missing", 404, nil)
	_, err := Do(context.Background(), Policy{MaxAttempts: 5}, func() (int, error) {
		calls++
		return 0, missing
	})
	assert.Same(t, missing, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Policy{MaxAttempts: 5, Backoff: Fixed(time.Millisecond)}, func() (int, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return 0, errors.New("flaky")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"network", errs.Network("reset", nil), true},
		{"download 503", errs.New(errs.ErrorTypeDownload, "unavailable", 503, nil), true},
		{"download 403", errs.New(errs.ErrorTypeDownload, "forbidden", 403, nil), false},
		{"conflict", errs.New(errs.ErrorTypeConflict, "taken", 0, nil), false},
		{"plain", errors.New("eof"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Transient(tt.err))
		})
	}
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
