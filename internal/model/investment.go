package model

import "github.com/shopspring/decimal"

// InvestmentResult is the outcome of buying a fixed amount at a period's low.
type InvestmentResult struct {
	Period               string
	InvestmentAmount     decimal.Decimal
	CoinsAcquired        decimal.Decimal
	CurrentValue         decimal.Decimal
	ProfitLoss           decimal.Decimal
	ProfitLossPercentage decimal.Decimal
}

// InvestmentReport aggregates the results for one coin.
type InvestmentReport struct {
	Results           []InvestmentResult
	TotalCurrentValue decimal.Decimal
}

// CoinSummary is one row of the ranking report.
type CoinSummary struct {
	Coin              string
	TotalCurrentValue decimal.Decimal
}
