package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"DipTracker/internal/model"
	"DipTracker/internal/notifier"
	"DipTracker/internal/runner"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("a run is already in progress")

// Job is a batch run, normally *runner.Runner.
type Job interface {
	Run(ctx context.Context, asOf time.Time) (*model.RunSummary, error)
	Last() *model.RunSummary
}

// Scheduler triggers runs from a cron expression with seconds.
type Scheduler struct {
	Cron     *cron.Cron
	Job      Job
	Notifier notifier.Notifier
	Ctx      context.Context
	TopN     int
	Now      func() time.Time

	busy sync.Mutex
}

// NewScheduler creates a new Scheduler. A run still in progress when the next
// tick fires causes that tick to be skipped.
func NewScheduler(ctx context.Context, job Job, n notifier.Notifier) *Scheduler {
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		Job:      job,
		Notifier: n,
		Ctx:      ctx,
		TopN:     10,
		Now:      time.Now,
	}
}

// Register adds the batch run under expr.
func (s *Scheduler) Register(expr string) error {
	if _, err := s.Cron.AddFunc(expr, s.runTask); err != nil {
		return fmt.Errorf("register run task: %w", err)
	}
	slog.Info("run task registered", "cron", expr)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunNow executes a run immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() (*model.RunSummary, error) {
	return s.run()
}

func (s *Scheduler) runTask() {
	s.run()
}

func (s *Scheduler) run() (*model.RunSummary, error) {
	if !s.busy.TryLock() {
		slog.Warn("run requested while another is in progress")
		return nil, ErrBusy
	}
	defer s.busy.Unlock()
	return s.runLocked()
}

// runLocked expects s.busy to be held.
func (s *Scheduler) runLocked() (*model.RunSummary, error) {
	asOf := s.Now().UTC()
	slog.Info("running scheduled batch", "as_of", asOf.Format("2006-01-02"))
	summary, err := s.Job.Run(s.Ctx, asOf)
	switch {
	case errors.Is(err, runner.ErrEmptyCoinList):
		slog.Warn("nothing to do: coin list is empty")
	case errors.Is(err, context.Canceled):
		slog.Info("run cancelled")
	case err != nil:
		slog.Error("scheduled run failed", "err", err)
		if nerr := s.Notifier.Notify(s.Ctx, notifier.FormatFailure(asOf.Format("2006-01-02"), err)); nerr != nil {
			slog.Error("send failure notice", "err", nerr)
		}
	}
	return summary, err
}

// HandleCommand processes a Telegram command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/run":
		if !s.busy.TryLock() {
			return "A run is already in progress."
		}
		// The run sends its own report.
		go func() {
			defer s.busy.Unlock()
			s.runLocked()
		}()
		return "Run started."
	case "/last":
		last := s.Job.Last()
		if last == nil {
			return "No run has completed yet."
		}
		return notifier.FormatRunReport(last, s.TopN)
	case "/next":
		entries := s.Cron.Entries()
		if len(entries) == 0 {
			return "No run is scheduled."
		}
		next := entries[0].Schedule.Next(s.Now())
		return "Next run: " + next.UTC().Format(time.RFC3339)
	default:
		return "Commands:\n/run - start a run now\n/last - show the last report\n/next - show the next scheduled run"
	}
}
