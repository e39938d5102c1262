package collector

import (
	"context"
	"time"

	"DipTracker/internal/model"
)

// PriceSource fetches price data for a coin.
type PriceSource interface {
	// HistoricalPrices returns the full USD price series between period.Start and period.End.
	HistoricalPrices(ctx context.Context, coin string, period model.Period) ([]model.PricePoint, error)
	// PriceAt returns the price used as the coin's value on the as-of date.
	PriceAt(ctx context.Context, coin string, asOf time.Time) (float64, error)
	Name() string
}
