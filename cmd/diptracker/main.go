package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"DipTracker/internal/collector"
	"DipTracker/internal/config"
	"DipTracker/internal/logger"
	"DipTracker/internal/metrics"
	"DipTracker/internal/notifier"
	"DipTracker/internal/pricecache"
	"DipTracker/internal/recorder"
	"DipTracker/internal/runner"
	"DipTracker/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "", "config file (default $CONFIG_PATH or configs/config.yaml)")
	date := flag.String("date", "", "as-of date YYYY-MM-DD (default $DATE or today UTC)")
	daemon := flag.Bool("daemon", false, "stay running and trigger runs from schedule.cron")
	flag.Parse()

	// A missing .env is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env", "err", err)
	}

	path := *cfgPath
	if path == "" {
		path = "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("load config", "err", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config validation", "err", err)
		return 1
	}

	logCloser, err := logger.Setup(cfg.Logging)
	if err != nil {
		slog.Error("init logger", "err", err)
		return 1
	}
	defer logCloser.Close()
	slog.Info("DipTracker starting", "config", path)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()

	// Opened by the first run, after the coin list is known to be non-empty.
	cache := pricecache.NewLazy(cfg.CacheOptions())
	defer cache.Close()

	retrier := collector.NewRetrier(cfg.API.MaxAttempts, cfg.API.RateLimitDelay, cfg.API.RetryDelay)
	retrier.OnRetry = func(string, int, error) { m.Retry() }
	fetcher := collector.NewCoinGeckoFetcher(cfg.API.BaseURL, cfg.Proxy, cfg.API.Timeout, retrier, cfg.API.RequestsPerMinute)
	fetcher.VsCurrency = cfg.API.VsCurrency
	slog.Info("price source", "name", fetcher.Name(), "base_url", cfg.API.BaseURL)

	periods, err := cfg.ParsePeriods()
	if err != nil {
		slog.Error("parse periods", "err", err)
		return 1
	}

	r := runner.New(runner.Options{
		CoinListFile:    cfg.CoinListFile,
		Periods:         periods,
		Investment:      cfg.InvestmentOptions(),
		ReportDir:       cfg.Report.Dir,
		TopN:            cfg.Telegram.TopN,
		MetricsTextfile: cfg.Metrics.TextfilePath,
	}, collector.NewCollector(fetcher, cache, m), m)

	if cfg.Recorder.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Recorder.SQLitePath)
		if err != nil {
			slog.Warn("init sqlite recorder failed, using noop", "err", err)
		} else {
			r.Recorder = sr
			defer sr.Close()
		}
	}

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		r.Notifier = tn
	}

	if *daemon || os.Getenv("RUN_MODE") == "daemon" {
		return runDaemon(ctx, cfg, r, tn)
	}
	return runOnce(ctx, r, *date)
}

func runOnce(ctx context.Context, r *runner.Runner, dateFlag string) int {
	asOf, err := config.RunDate(dateFlag, time.Now())
	if err != nil {
		slog.Error("run date", "err", err)
		return 1
	}
	summary, err := r.Run(ctx, asOf)
	if errors.Is(err, runner.ErrEmptyCoinList) {
		slog.Info("no coins to process, exiting")
		return 0
	}
	if err != nil {
		slog.Error("run failed", "err", err)
		return 1
	}
	slog.Info("report written", "path", summary.ReportPath, "coins", len(summary.Summaries), "skipped", len(summary.Skipped))
	return 0
}

func runDaemon(ctx context.Context, cfg *config.Config, r *runner.Runner, tn *notifier.TelegramNotifier) int {
	if cfg.Schedule.Cron == "" {
		slog.Error("daemon mode needs schedule.cron or CRON_SCHEDULE")
		return 1
	}

	var n notifier.Notifier = notifier.NoopNotifier{}
	if tn != nil {
		n = tn
	}
	sched := scheduler.NewScheduler(ctx, r, n)
	sched.TopN = cfg.Telegram.TopN
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		slog.Error("register cron task", "err", err)
		return 1
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		slog.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		slog.Info("RUN_ON_START enabled, executing a run now")
		go sched.RunNow()
	}

	slog.Info("DipTracker is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	slog.Info("shutdown signal received, stopping...")
	return 0
}
