package recorder

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id         TEXT PRIMARY KEY,
			as_of          INTEGER NOT NULL,
			started_at     INTEGER NOT NULL,
			finished_at    INTEGER NOT NULL,
			report_path    TEXT,
			coins_total    INTEGER,
			coins_reported INTEGER,
			coins_skipped  INTEGER,
			cache_hits     INTEGER,
			fetches        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_as_of ON runs(as_of)`,

		`CREATE TABLE IF NOT EXISTS coin_results (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id              TEXT NOT NULL,
			coin                TEXT NOT NULL,
			status              TEXT NOT NULL,
			rank                INTEGER,
			total_current_value TEXT,
			reason              TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_coin_results_run ON coin_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_coin_results_coin ON coin_results(coin)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO runs
		(run_id, as_of, started_at, finished_at, report_path,
		 coins_total, coins_reported, coins_skipped, cache_hits, fetches)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		evt.RunID, evt.AsOf.Unix(), evt.StartedAt.Unix(), evt.FinishedAt.Unix(), evt.ReportPath,
		evt.CoinsTotal, evt.CoinsReported, evt.CoinsSkipped, evt.CacheHits, evt.Fetches,
	)
	return err
}

func (r *SQLiteRecorder) RecordCoinResult(evt *CoinResultEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO coin_results
		(run_id, coin, status, rank, total_current_value, reason)
		VALUES (?,?,?,?,?,?)`,
		evt.RunID, evt.Coin, evt.Status, evt.Rank, evt.TotalCurrentValue, evt.Reason,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	slog.Info("closing sqlite recorder")
	return r.db.Close()
}
