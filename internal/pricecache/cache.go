package pricecache

import (
	"context"
	"fmt"

	"DipTracker/internal/model"
)

// Cache is the in-memory record set of one run, backed by a Store.
// It is owned by a single goroutine and never shared between processes.
type Cache struct {
	store   Store
	open    func(ctx context.Context) (Store, error)
	records []model.CacheRecord
}

// New creates an empty cache on top of store. Call Load before use.
func New(store Store) *Cache {
	return &Cache{store: store}
}

// NewLazy creates a cache whose backend is opened by the first Load.
// Until then no file is created and no connection is made.
func NewLazy(opts Options) *Cache {
	return &Cache{open: func(ctx context.Context) (Store, error) { return Open(ctx, opts) }}
}

// Load replaces the in-memory records with the store's contents,
// opening the backend first if needed.
func (c *Cache) Load(ctx context.Context) error {
	if c.store == nil {
		if c.open == nil {
			return fmt.Errorf("load price cache: no store")
		}
		store, err := c.open(ctx)
		if err != nil {
			return fmt.Errorf("open price cache: %w", err)
		}
		c.store = store
	}
	records, err := c.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load price cache: %w", err)
	}
	c.records = records
	return nil
}

// Lookup returns the cached lowest price for coin over p.
func (c *Cache) Lookup(coin string, p model.Period) (model.LowestPrice, bool) {
	for _, r := range c.records {
		if r.Matches(coin, p) {
			return r.Lowest(), true
		}
	}
	return model.LowestPrice{}, false
}

// Append adds rec and immediately persists the complete record set,
// so progress survives a crash later in the run.
func (c *Cache) Append(ctx context.Context, rec model.CacheRecord) error {
	p := model.Period{Start: rec.PeriodStart, End: rec.PeriodEnd}
	if _, ok := c.Lookup(rec.Coin, p); ok {
		return fmt.Errorf("%s %s: %w", rec.Coin, p.Key(), ErrDuplicateKey)
	}
	if c.store == nil {
		return fmt.Errorf("append to price cache: not loaded")
	}
	c.records = append(c.records, rec)
	if err := c.store.Persist(ctx, c.records); err != nil {
		return fmt.Errorf("persist price cache: %w", err)
	}
	return nil
}

// Records returns a copy of the current record set.
func (c *Cache) Records() []model.CacheRecord {
	out := make([]model.CacheRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of records held.
func (c *Cache) Len() int { return len(c.records) }

// Close releases the backing store, if it was opened.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
