package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"DipTracker/internal/calculator"
	"DipTracker/internal/metrics"
	"DipTracker/internal/model"
	"DipTracker/internal/pricecache"
)

// Collector resolves per-period lowest prices and as-of prices for coins.
// It is the only writer of the price cache.
type Collector struct {
	Source  PriceSource
	Cache   *pricecache.Cache
	Metrics *metrics.Metrics

	stats Stats
}

// Stats counts cache hits and upstream fetches since the last ResetStats.
type Stats struct {
	CacheHits int
	Fetches   int
}

// NewCollector creates a new Collector.
func NewCollector(source PriceSource, cache *pricecache.Cache, m *metrics.Metrics) *Collector {
	return &Collector{Source: source, Cache: cache, Metrics: m}
}

// ResolveLowest returns the lowest price of coin over p, from the cache when
// possible. A freshly fetched value is appended to the cache and persisted
// before it is returned.
func (c *Collector) ResolveLowest(ctx context.Context, coin string, p model.Period) (model.LowestPrice, error) {
	if lowest, ok := c.Cache.Lookup(coin, p); ok {
		slog.Info("using cached lowest price", "coin", coin, "period", p.Label())
		c.Metrics.CacheHit()
		c.stats.CacheHits++
		return lowest, nil
	}

	slog.Info("fetching price history", "coin", coin, "period", p.Label(), "source", c.Source.Name())
	points, err := c.Source.HistoricalPrices(ctx, coin, p)
	c.Metrics.Fetch(metrics.FetchHistorical, err)
	c.stats.Fetches++
	if err != nil {
		return model.LowestPrice{}, fmt.Errorf("historical prices %s %s: %w", coin, p.Label(), err)
	}

	lowest, err := calculator.FindLowestPrice(points)
	if err != nil {
		if errors.Is(err, calculator.ErrEmptySeries) {
			return model.LowestPrice{}, fmt.Errorf("historical prices %s %s: %w", coin, p.Label(), ErrNoData)
		}
		return model.LowestPrice{}, err
	}

	rec := model.CacheRecord{
		Coin:            coin,
		PeriodStart:     p.Start,
		PeriodEnd:       p.End,
		LowestPrice:     lowest.Price,
		LowestPriceDate: lowest.Time,
	}
	if err := c.Cache.Append(ctx, rec); err != nil {
		return model.LowestPrice{}, err
	}
	return lowest, nil
}

// Snapshot resolves every period for coin in order and stops at the first failure.
func (c *Collector) Snapshot(ctx context.Context, coin string, periods []model.Period) (*model.CoinSnapshot, error) {
	snap := model.NewCoinSnapshot(coin)
	for _, p := range periods {
		lowest, err := c.ResolveLowest(ctx, coin, p)
		if err != nil {
			return nil, err
		}
		snap.LowestPrices[p.Key()] = lowest
	}
	return snap, nil
}

// CurrentPrice fetches the as-of price and stores it on the snapshot.
// On failure the snapshot is left without a current price.
func (c *Collector) CurrentPrice(ctx context.Context, snap *model.CoinSnapshot, asOf time.Time) error {
	price, err := c.Source.PriceAt(ctx, snap.Coin, asOf)
	c.Metrics.Fetch(metrics.FetchCurrent, err)
	c.stats.Fetches++
	if err != nil {
		return fmt.Errorf("price of %s at %s: %w", snap.Coin, asOf.Format("2006-01-02"), err)
	}
	snap.CurrentPrice = &price
	slog.Info("fetched as-of price", "coin", snap.Coin, "date", asOf.Format("2006-01-02"), "price", price)
	return nil
}

// Stats returns the counters accumulated since the last ResetStats.
func (c *Collector) Stats() Stats { return c.stats }

func (c *Collector) ResetStats() { c.stats = Stats{} }
