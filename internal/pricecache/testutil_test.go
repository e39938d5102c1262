package pricecache

import (
	"context"
	"time"

	"DipTracker/internal/model"
)

// memStore is an in-memory Store that counts Persist calls.
type memStore struct {
	records  []model.CacheRecord
	persists int
	err      error
}

func (m *memStore) LoadAll(context.Context) ([]model.CacheRecord, error) {
	out := make([]model.CacheRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memStore) Persist(_ context.Context, records []model.CacheRecord) error {
	if m.err != nil {
		return m.err
	}
	m.persists++
	m.records = append(m.records[:0:0], records...)
	return nil
}

func (m *memStore) Close() error { return nil }

func day(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func sampleRecords() []model.CacheRecord {
	return []model.CacheRecord{
		{
			Coin:            "bitcoin",
			PeriodStart:     day(2024, 8, 4),
			PeriodEnd:       day(2024, 8, 6),
			LowestPrice:     49121.2379,
			LowestPriceDate: time.Date(2024, 8, 5, 7, 3, 12, 345e6, time.UTC),
		},
		{
			Coin:            "solana",
			PeriodStart:     day(2024, 9, 6),
			PeriodEnd:       day(2024, 9, 8),
			LowestPrice:     0.000012345678,
			LowestPriceDate: time.Date(2024, 9, 7, 0, 0, 0, 0, time.UTC),
		},
	}
}
