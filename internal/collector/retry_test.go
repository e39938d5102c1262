package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer fires immediately and records every requested delay.
type fakeTimer struct {
	delays []time.Duration
	ch     chan time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{ch: make(chan time.Time, 1)}
}

func (f *fakeTimer) Start(d time.Duration) {
	f.delays = append(f.delays, d)
	f.ch <- time.Time{}
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time { return f.ch }

func (f *fakeTimer) count(d time.Duration) int {
	n := 0
	for _, v := range f.delays {
		if v == d {
			n++
		}
	}
	return n
}

func testRetrier(timer *fakeTimer) *Retrier {
	r := NewRetrier(3, time.Second, time.Minute)
	r.Timer = timer
	return r
}

func TestRetrier_SuccessWaitsRateLimitDelay(t *testing.T) {
	timer := newFakeTimer()
	calls := 0

	err := testRetrier(timer).Do(context.Background(), "op", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []time.Duration{time.Second}, timer.delays)
}

func TestRetrier_SucceedsOnThirdAttempt(t *testing.T) {
	timer := newFakeTimer()
	calls := 0
	var retried []int

	r := testRetrier(timer)
	r.OnRetry = func(_ string, attempt int, _ error) { retried = append(retried, attempt) }
	err := r.Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("429 too many requests")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, timer.count(time.Minute), "exactly two retry delays")
	assert.Equal(t, 1, timer.count(time.Second), "one rate-limit delay after success")
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetrier_ExhaustedAfterMaxAttempts(t *testing.T) {
	timer := newFakeTimer()
	calls := 0
	last := errors.New("boom 3")

	err := testRetrier(timer).Do(context.Background(), "market_chart/range bitcoin", func() error {
		calls++
		if calls == 3 {
			return last
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrFetchExhausted)
	assert.ErrorIs(t, err, last, "last underlying failure is carried")

	var fe *FetchExhaustedError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 3, fe.Attempts)
	assert.Equal(t, 2, timer.count(time.Minute))
	assert.Zero(t, timer.count(time.Second), "no rate-limit delay after failure")
}

func TestRetrier_SingleAttempt(t *testing.T) {
	timer := newFakeTimer()
	r := NewRetrier(1, 0, time.Minute)
	r.Timer = timer

	err := r.Do(context.Background(), "op", func() error { return errors.New("nope") })
	assert.ErrorIs(t, err, ErrFetchExhausted)
	assert.Empty(t, timer.delays)
}

func TestRetrier_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetrier(3, 0, time.Hour)
	calls := 0

	err := r.Do(ctx, "op", func() error {
		calls++
		cancel()
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewRetrier_Defaults(t *testing.T) {
	r := NewRetrier(0, -1, -1)
	assert.Equal(t, DefaultMaxAttempts, r.MaxAttempts)
	assert.Equal(t, DefaultRateLimitDelay, r.RateLimitDelay)
	assert.Equal(t, DefaultRetryDelay, r.RetryDelay)
}
