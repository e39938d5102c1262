package pricecache

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"DipTracker/internal/model"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS price_cache (
	id                BIGSERIAL PRIMARY KEY,
	coin              TEXT             NOT NULL,
	period_start      TIMESTAMPTZ      NOT NULL,
	period_end        TIMESTAMPTZ      NOT NULL,
	lowest_price      DOUBLE PRECISION NOT NULL,
	lowest_price_date TIMESTAMPTZ      NOT NULL,
	UNIQUE (coin, period_start, period_end)
)`

// PostgresStore keeps the cache in a PostgreSQL table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and creates the table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create price_cache: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]model.CacheRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT coin, period_start, period_end, lowest_price, lowest_price_date
		FROM price_cache ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query price_cache: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CacheRecord, error) {
		var r model.CacheRecord
		err := row.Scan(&r.Coin, &r.PeriodStart, &r.PeriodEnd, &r.LowestPrice, &r.LowestPriceDate)
		r.PeriodStart = r.PeriodStart.UTC()
		r.PeriodEnd = r.PeriodEnd.UTC()
		r.LowestPriceDate = r.LowestPriceDate.UTC()
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan price_cache: %w", err)
	}
	return records, nil
}

// Persist replaces the table contents in one transaction.
func (s *PostgresStore) Persist(ctx context.Context, records []model.CacheRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM price_cache`); err != nil {
		return fmt.Errorf("clear price_cache: %w", err)
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`INSERT INTO price_cache
			(coin, period_start, period_end, lowest_price, lowest_price_date)
			VALUES ($1, $2, $3, $4, $5)`,
			r.Coin, r.PeriodStart, r.PeriodEnd, r.LowestPrice, r.LowestPriceDate)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert price_cache: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
