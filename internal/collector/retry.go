package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts    = 3
	DefaultRateLimitDelay = time.Second
	DefaultRetryDelay     = time.Minute
)

// Retrier runs upstream calls with a fixed number of attempts.
// Delays are constant: RateLimitDelay after every success, RetryDelay between failures.
type Retrier struct {
	MaxAttempts    int
	RateLimitDelay time.Duration
	RetryDelay     time.Duration

	// Timer drives both delays. Nil means a real timer.
	Timer backoff.Timer
	// OnRetry is called after each failed attempt that will be retried.
	OnRetry func(op string, attempt int, err error)
}

// NewRetrier returns a Retrier with the given settings, falling back to defaults for zero values.
func NewRetrier(maxAttempts int, rateLimitDelay, retryDelay time.Duration) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if rateLimitDelay < 0 {
		rateLimitDelay = DefaultRateLimitDelay
	}
	if retryDelay < 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Retrier{
		MaxAttempts:    maxAttempts,
		RateLimitDelay: rateLimitDelay,
		RetryDelay:     retryDelay,
	}
}

// Do executes op until it succeeds or MaxAttempts is reached.
// The final failure is returned as a *FetchExhaustedError.
func (r *Retrier) Do(ctx context.Context, name string, op func() error) error {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	attempt := 0
	var lastErr error
	operation := func() error {
		attempt++
		lastErr = op()
		return lastErr
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("upstream call failed, retrying",
			"op", name, "attempt", attempt, "max_attempts", attempts, "retry_in", wait, "error", err)
		if r.OnRetry != nil {
			r.OnRetry(name, attempt, err)
		}
	}

	// A single attempt never waits.
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if attempts > 1 {
		policy = backoff.WithMaxRetries(backoff.NewConstantBackOff(r.RetryDelay), uint64(attempts-1))
	}
	b := backoff.WithContext(policy, ctx)
	if err := backoff.RetryNotifyWithTimer(operation, b, notify, r.Timer); err != nil {
		if lastErr == nil || ctx.Err() != nil {
			return err
		}
		slog.Error("upstream call failed", "op", name, "attempt", attempt, "error", lastErr)
		return &FetchExhaustedError{Op: name, Attempts: attempt, Err: lastErr}
	}

	return r.pause(ctx)
}

// pause waits RateLimitDelay so consecutive calls stay under the upstream limit.
func (r *Retrier) pause(ctx context.Context) error {
	if r.RateLimitDelay <= 0 {
		return nil
	}
	t := r.Timer
	if t == nil {
		t = &realTimer{}
	}
	t.Start(r.RateLimitDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// realTimer mirrors backoff's default timer, which is unexported.
type realTimer struct {
	timer *time.Timer
}

func (t *realTimer) C() <-chan time.Time { return t.timer.C }

func (t *realTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = time.NewTimer(d)
	} else {
		t.timer.Reset(d)
	}
}

func (t *realTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}
