package recorder

import "time"

// RunEvent holds the outcome of one batch run.
type RunEvent struct {
	RunID         string
	AsOf          time.Time
	StartedAt     time.Time
	FinishedAt    time.Time
	ReportPath    string
	CoinsTotal    int
	CoinsReported int
	CoinsSkipped  int
	CacheHits     int
	Fetches       int
}

// CoinResultEvent records what happened to one coin in a run.
type CoinResultEvent struct {
	RunID             string
	Coin              string
	Status            string // "REPORTED" or "SKIPPED"
	Rank              int    // 1-based, 0 when skipped
	TotalCurrentValue string // decimal string, empty when skipped
	Reason            string
}

const (
	StatusReported = "REPORTED"
	StatusSkipped  = "SKIPPED"
)

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	RecordCoinResult(evt *CoinResultEvent) error
	Close() error
}
