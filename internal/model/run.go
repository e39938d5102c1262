package model

import "time"

// RunSummary describes one completed batch run.
type RunSummary struct {
	RunID      string
	AsOf       time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	ReportPath string
	Coins      int
	Summaries  []CoinSummary     // ranked, best first
	Skipped    map[string]string // coin -> reason
	CacheHits  int
	Fetches    int
}
