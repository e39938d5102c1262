package model

import "time"

// PricePoint is a single sample from a price series.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// LowestPrice is the minimum-price sample of a series over a period.
type LowestPrice struct {
	Time  time.Time
	Price float64
}

// CoinSnapshot holds everything collected for one coin during a run.
type CoinSnapshot struct {
	Coin         string
	LowestPrices map[string]LowestPrice // keyed by Period.Key()
	CurrentPrice *float64               // nil when the as-of price could not be fetched
}

// NewCoinSnapshot returns an empty snapshot for coin.
func NewCoinSnapshot(coin string) *CoinSnapshot {
	return &CoinSnapshot{Coin: coin, LowestPrices: make(map[string]LowestPrice)}
}
