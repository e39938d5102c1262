// Package runner drives one batch run from coin list to ranked report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"DipTracker/internal/calculator"
	"DipTracker/internal/collector"
	"DipTracker/internal/config"
	"DipTracker/internal/metrics"
	"DipTracker/internal/model"
	"DipTracker/internal/notifier"
	"DipTracker/internal/recorder"
	"DipTracker/internal/report"
)

// ErrEmptyCoinList is returned when no coins are configured. Nothing else is touched.
var ErrEmptyCoinList = errors.New("coin list is empty")

// Options configures a Runner.
type Options struct {
	CoinListFile string
	Periods      []model.Period
	Investment   calculator.Options
	ReportDir    string
	// TopN limits the coins listed in the notification.
	TopN int
	// MetricsTextfile, when set, receives the metrics after every run.
	MetricsTextfile string
}

// Runner executes batch runs. Runs must not overlap.
type Runner struct {
	Options   Options
	Collector *collector.Collector
	Recorder  recorder.Recorder
	Notifier  notifier.Notifier
	Metrics   *metrics.Metrics

	mu   sync.Mutex
	last *model.RunSummary
}

// New creates a Runner with a noop recorder and notifier.
func New(opts Options, col *collector.Collector, m *metrics.Metrics) *Runner {
	return &Runner{
		Options:   opts,
		Collector: col,
		Recorder:  recorder.NewNoopRecorder(),
		Notifier:  notifier.NoopNotifier{},
		Metrics:   m,
	}
}

// Run performs one batch for the as-of date. Coins that fail are skipped and
// listed in the summary; only coin list, cache and report failures abort the run.
func (r *Runner) Run(ctx context.Context, asOf time.Time) (*model.RunSummary, error) {
	started := time.Now()
	asOf = asOf.UTC()

	coins, err := config.LoadCoins(r.Options.CoinListFile)
	if err != nil {
		return nil, err
	}
	if len(coins) == 0 {
		slog.Warn("no coins configured", "file", r.Options.CoinListFile)
		return nil, ErrEmptyCoinList
	}

	summary := &model.RunSummary{
		RunID:     uuid.NewString(),
		AsOf:      asOf,
		StartedAt: started,
		Coins:     len(coins),
		Skipped:   make(map[string]string),
	}
	log := slog.With("run_id", summary.RunID)
	log.Info("run started", "as_of", asOf.Format("2006-01-02"), "coins", len(coins), "periods", len(r.Options.Periods))

	if err := r.Collector.Cache.Load(ctx); err != nil {
		return nil, err
	}
	r.Collector.ResetStats()

	skip := func(coin, stage string, err error) {
		log.Error("skipping coin", "coin", coin, "stage", stage, "err", err)
		summary.Skipped[coin] = err.Error()
		r.Metrics.CoinFailed(stage)
	}

	snapshots := make([]*model.CoinSnapshot, 0, len(coins))
	for _, coin := range coins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snap, err := r.Collector.Snapshot(ctx, coin, r.Options.Periods)
		if err != nil {
			skip(coin, metrics.StageLowest, err)
			continue
		}
		snapshots = append(snapshots, snap)
	}

	priceErrs := make(map[string]error)
	for _, snap := range snapshots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.Collector.CurrentPrice(ctx, snap, asOf); err != nil {
			log.Warn("no current price", "coin", snap.Coin, "err", err)
			priceErrs[snap.Coin] = err
		}
	}

	for _, snap := range snapshots {
		res, err := calculator.Compute(snap, r.Options.Periods, asOf, r.Options.Investment)
		if err != nil {
			if perr := priceErrs[snap.Coin]; perr != nil && errors.Is(err, calculator.ErrCurrentPriceMissing) {
				skip(snap.Coin, metrics.StageCurrent, fmt.Errorf("%w: %v", err, perr))
			} else {
				skip(snap.Coin, metrics.StageCalculate, err)
			}
			continue
		}
		for _, ir := range res.Results {
			log.Info("investment result", "coin", snap.Coin, "period", ir.Period,
				"coins_acquired", ir.CoinsAcquired.String(), "current_value", ir.CurrentValue.StringFixed(2),
				"profit_loss", ir.ProfitLoss.StringFixed(2), "profit_loss_pct", ir.ProfitLossPercentage.StringFixed(2))
		}
		summary.Summaries = append(summary.Summaries, model.CoinSummary{Coin: snap.Coin, TotalCurrentValue: res.TotalCurrentValue})
	}

	calculator.Rank(summary.Summaries)
	path, err := report.Write(r.Options.ReportDir, asOf, summary.Summaries)
	if err != nil {
		return nil, err
	}
	summary.ReportPath = path

	stats := r.Collector.Stats()
	summary.CacheHits = stats.CacheHits
	summary.Fetches = stats.Fetches
	summary.FinishedAt = time.Now()

	log.Info("run finished", "report", path, "reported", len(summary.Summaries), "skipped", len(summary.Skipped),
		"cache_hits", summary.CacheHits, "fetches", summary.Fetches, "duration", summary.FinishedAt.Sub(started))

	r.record(summary)
	if err := r.Notifier.Notify(ctx, notifier.FormatRunReport(summary, r.Options.TopN)); err != nil {
		log.Error("send run report", "err", err)
	}
	r.Metrics.RunFinished(len(summary.Summaries), started, summary.FinishedAt)
	if err := r.Metrics.WriteTextfile(r.Options.MetricsTextfile); err != nil {
		log.Error("write metrics textfile", "path", r.Options.MetricsTextfile, "err", err)
	}

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()
	return summary, nil
}

// Last returns the summary of the most recent successful run, or nil.
func (r *Runner) Last() *model.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Runner) record(s *model.RunSummary) {
	if err := r.Recorder.RecordRun(&recorder.RunEvent{
		RunID:         s.RunID,
		AsOf:          s.AsOf,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		ReportPath:    s.ReportPath,
		CoinsTotal:    s.Coins,
		CoinsReported: len(s.Summaries),
		CoinsSkipped:  len(s.Skipped),
		CacheHits:     s.CacheHits,
		Fetches:       s.Fetches,
	}); err != nil {
		slog.Error("record run", "run_id", s.RunID, "err", err)
		return
	}
	for i, cs := range s.Summaries {
		if err := r.Recorder.RecordCoinResult(&recorder.CoinResultEvent{
			RunID:             s.RunID,
			Coin:              cs.Coin,
			Status:            recorder.StatusReported,
			Rank:              i + 1,
			TotalCurrentValue: cs.TotalCurrentValue.String(),
		}); err != nil {
			slog.Error("record coin result", "coin", cs.Coin, "err", err)
		}
	}
	for coin, reason := range s.Skipped {
		if err := r.Recorder.RecordCoinResult(&recorder.CoinResultEvent{
			RunID:  s.RunID,
			Coin:   coin,
			Status: recorder.StatusSkipped,
			Reason: reason,
		}); err != nil {
			slog.Error("record coin result", "coin", coin, "err", err)
		}
	}
}
