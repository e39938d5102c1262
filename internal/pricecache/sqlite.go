package pricecache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"DipTracker/internal/model"
)

// SQLiteStore keeps the cache in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and creates the table.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS price_cache (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		coin              TEXT    NOT NULL,
		period_start      TEXT    NOT NULL,
		period_end        TEXT    NOT NULL,
		lowest_price      REAL    NOT NULL,
		lowest_price_date TEXT    NOT NULL,
		UNIQUE (coin, period_start, period_end)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create price_cache: %w", err)
	}

	slog.Info("sqlite price cache opened", "path", dbPath)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]model.CacheRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT coin, period_start, period_end, lowest_price, lowest_price_date
		FROM price_cache ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query price_cache: %w", err)
	}
	defer rows.Close()

	records := []model.CacheRecord{}
	for rows.Next() {
		var (
			rec                  model.CacheRecord
			start, end, lowestAt string
		)
		if err := rows.Scan(&rec.Coin, &start, &end, &rec.LowestPrice, &lowestAt); err != nil {
			return nil, fmt.Errorf("scan price_cache: %w", err)
		}
		if rec.PeriodStart, err = model.ParseISO(start); err != nil {
			return nil, err
		}
		if rec.PeriodEnd, err = model.ParseISO(end); err != nil {
			return nil, err
		}
		if rec.LowestPriceDate, err = model.ParseISO(lowestAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Persist replaces the table contents in one transaction.
func (s *SQLiteStore) Persist(ctx context.Context, records []model.CacheRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM price_cache`); err != nil {
		return fmt.Errorf("clear price_cache: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO price_cache
		(coin, period_start, period_end, lowest_price, lowest_price_date)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Coin,
			model.FormatISO(r.PeriodStart), model.FormatISO(r.PeriodEnd),
			r.LowestPrice, model.FormatISO(r.LowestPriceDate),
		); err != nil {
			return fmt.Errorf("insert price_cache: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	slog.Info("closing sqlite price cache")
	return s.db.Close()
}
