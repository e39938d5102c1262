// Package pricecache keeps the durable (coin, period) -> lowest price mapping.
package pricecache

import (
	"context"
	"errors"

	"DipTracker/internal/model"
)

// ErrDuplicateKey is returned when a record for the same (coin, period) already exists.
// Records are append-only within a run.
var ErrDuplicateKey = errors.New("duplicate key: cache record already exists")

// Store is the durable backing for the cache.
// Persist always receives the complete record set and replaces the stored contents.
type Store interface {
	LoadAll(ctx context.Context) ([]model.CacheRecord, error)
	Persist(ctx context.Context, records []model.CacheRecord) error
	Close() error
}
