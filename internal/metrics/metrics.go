// Package metrics exposes run counters through the Prometheus textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch kinds.
const (
	FetchHistorical = "historical"
	FetchCurrent    = "current"
)

// Failure stages.
const (
	StageLowest    = "lowest_price"
	StageCurrent   = "current_price"
	StageCalculate = "calculate"
)

const namespace = "diptracker"

// Metrics holds the collectors of one process. All methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	CacheHits       prometheus.Counter
	Fetches         *prometheus.CounterVec
	FetchRetries    prometheus.Counter
	CoinFailures    *prometheus.CounterVec
	CoinsReported   prometheus.Gauge
	LastRunTime     prometheus.Gauge
	LastRunDuration prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Lowest-price lookups served from the price cache",
		}),
		Fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Price API fetches by kind and result",
		}, []string{"kind", "result"}),
		FetchRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Failed upstream attempts that were retried",
		}),
		CoinFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coin_failures_total",
			Help:      "Coins skipped, by the stage that failed",
		}, []string{"stage"}),
		CoinsReported: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coins_reported",
			Help:      "Coins present in the last report",
		}),
		LastRunTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		LastRunDuration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
	}
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// Fetch counts one price API call of kind, labelled ok or error.
func (m *Metrics) Fetch(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Fetches.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.FetchRetries.Inc()
}

func (m *Metrics) CoinFailed(stage string) {
	if m == nil {
		return
	}
	m.CoinFailures.WithLabelValues(stage).Inc()
}

// RunFinished records the outcome of a completed run.
func (m *Metrics) RunFinished(reported int, started, finished time.Time) {
	if m == nil {
		return
	}
	m.CoinsReported.Set(float64(reported))
	m.LastRunTime.Set(float64(finished.Unix()))
	m.LastRunDuration.Set(finished.Sub(started).Seconds())
}

// WriteTextfile writes every collector to path for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
