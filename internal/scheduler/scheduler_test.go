package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DipTracker/internal/model"
	"DipTracker/internal/runner"
)

type fakeJob struct {
	mu      sync.Mutex
	calls   []time.Time
	err     error
	last    *model.RunSummary
	started chan struct{}
	block   chan struct{}
}

func (f *fakeJob) Run(_ context.Context, asOf time.Time) (*model.RunSummary, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, asOf)
	if f.err != nil {
		return nil, f.err
	}
	f.last = &model.RunSummary{AsOf: asOf, Coins: 1}
	return f.last, nil
}

func (f *fakeJob) Last() *model.RunSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeJob) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type captureNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (c *captureNotifier) Notify(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return nil
}

func fixedNow() time.Time { return time.Date(2024, 10, 1, 9, 30, 0, 0, time.UTC) }

func TestRunNow_UsesClock(t *testing.T) {
	job := &fakeJob{}
	s := NewScheduler(context.Background(), job, nil)
	s.Now = fixedNow

	summary, err := s.RunNow()
	require.NoError(t, err)
	require.Len(t, job.calls, 1)
	assert.Equal(t, fixedNow(), job.calls[0])
	assert.Equal(t, fixedNow(), summary.AsOf)
}

func TestRunNow_FailureIsNotified(t *testing.T) {
	n := &captureNotifier{}
	s := NewScheduler(context.Background(), &fakeJob{err: errors.New("cache unreadable")}, n)
	s.Now = fixedNow

	_, err := s.RunNow()
	require.Error(t, err)
	require.Len(t, n.texts, 1)
	assert.Contains(t, n.texts[0], "cache unreadable")
	assert.Contains(t, n.texts[0], "2024-10-01")
}

func TestRunNow_EmptyCoinListIsQuiet(t *testing.T) {
	n := &captureNotifier{}
	s := NewScheduler(context.Background(), &fakeJob{err: runner.ErrEmptyCoinList}, n)

	_, err := s.RunNow()
	assert.ErrorIs(t, err, runner.ErrEmptyCoinList)
	assert.Empty(t, n.texts)
}

func TestRegister_InvalidExpression(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeJob{}, nil)
	assert.Error(t, s.Register("not a cron"))
}

func TestScheduler_FiresEverySecond(t *testing.T) {
	job := &fakeJob{}
	s := NewScheduler(context.Background(), job, nil)
	require.NoError(t, s.Register("* * * * * *"))
	s.Start()

	assert.Eventually(t, func() bool { return job.count() >= 1 }, 3*time.Second, 20*time.Millisecond)
	s.Stop()
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	job := &fakeJob{block: make(chan struct{})}
	s := NewScheduler(context.Background(), job, nil)
	require.NoError(t, s.Register("* * * * * *"))
	s.Start()

	// Let several ticks fire while the first run is blocked.
	time.Sleep(2500 * time.Millisecond)
	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	time.Sleep(50 * time.Millisecond)
	close(job.block)
	<-stopped

	assert.Equal(t, 1, job.count())
}

func TestHandleCommand(t *testing.T) {
	job := &fakeJob{}
	s := NewScheduler(context.Background(), job, nil)

	assert.Equal(t, "No run has completed yet.", s.HandleCommand("/last"))
	assert.Equal(t, "No run is scheduled.", s.HandleCommand("/next"))
	assert.Contains(t, s.HandleCommand("/help"), "/run")

	s.Now = fixedNow
	require.NoError(t, s.Register("0 0 6 * * *"))
	assert.Equal(t, "Next run: 2024-10-02T06:00:00Z", s.HandleCommand("/next"))

	assert.Equal(t, "Run started.", s.HandleCommand("/run"))
	assert.Eventually(t, func() bool { return job.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Contains(t, s.HandleCommand("/last"), "DipTracker")
}

func TestRunNow_RejectsConcurrentRun(t *testing.T) {
	job := &fakeJob{started: make(chan struct{}, 1), block: make(chan struct{})}
	s := NewScheduler(context.Background(), job, nil)

	done := make(chan struct{})
	go func() {
		s.RunNow()
		close(done)
	}()
	<-job.started

	_, err := s.RunNow()
	assert.ErrorIs(t, err, ErrBusy)
	close(job.block)
	<-done
	assert.Equal(t, 1, job.count())
}

func TestHandleCommand_RunWhileBusy(t *testing.T) {
	job := &fakeJob{started: make(chan struct{}, 1), block: make(chan struct{})}
	s := NewScheduler(context.Background(), job, nil)

	assert.Equal(t, "Run started.", s.HandleCommand("/run"))
	<-job.started
	assert.Equal(t, "A run is already in progress.", s.HandleCommand("/run"))

	close(job.block)
	assert.Eventually(t, func() bool { return job.count() == 1 }, time.Second, 10*time.Millisecond)
	// The lock is released once the run returns.
	assert.Eventually(t, func() bool { return s.HandleCommand("/run") == "Run started." }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return job.count() == 2 }, time.Second, 10*time.Millisecond)
}
