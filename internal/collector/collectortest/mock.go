// Package collectortest provides an in-memory price source for tests.
package collectortest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"DipTracker/internal/model"
)

// ErrNoPrice is returned by PriceAt for coins without a configured price.
var ErrNoPrice = errors.New("no as-of price configured")

// MockFetcher returns controllable fixed data and counts calls.
type MockFetcher struct {
	// Series maps coin -> period key -> points. Missing entries produce an empty series.
	Series map[string]map[string][]model.PricePoint
	// Prices maps coin -> as-of price. Missing coins fail with ErrNoPrice.
	Prices map[string]float64
	// Errors maps coin -> error returned by every call for that coin.
	Errors map[string]error

	mu              sync.Mutex
	HistoricalCalls int
	PriceCalls      int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) HistoricalPrices(_ context.Context, coin string, p model.Period) ([]model.PricePoint, error) {
	m.mu.Lock()
	m.HistoricalCalls++
	m.mu.Unlock()

	if err := m.Errors[coin]; err != nil {
		return nil, err
	}
	return m.Series[coin][p.Key()], nil
}

func (m *MockFetcher) PriceAt(_ context.Context, coin string, asOf time.Time) (float64, error) {
	m.mu.Lock()
	m.PriceCalls++
	m.mu.Unlock()

	if err := m.Errors[coin]; err != nil {
		return 0, err
	}
	price, ok := m.Prices[coin]
	if !ok {
		return 0, fmt.Errorf("price of %s at %s: %w", coin, asOf.Format("2006-01-02"), ErrNoPrice)
	}
	return price, nil
}

// SetSeries registers a series for coin over p.
func (m *MockFetcher) SetSeries(coin string, p model.Period, points ...model.PricePoint) {
	if m.Series == nil {
		m.Series = make(map[string]map[string][]model.PricePoint)
	}
	if m.Series[coin] == nil {
		m.Series[coin] = make(map[string][]model.PricePoint)
	}
	m.Series[coin][p.Key()] = points
}
