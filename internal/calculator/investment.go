package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"DipTracker/internal/model"
)

var (
	ErrInvalidPrice        = errors.New("lowest price must be positive")
	ErrCurrentPriceMissing = errors.New("current price is not available")
	ErrNoEligiblePeriod    = errors.New("no period ended before the as-of date")
	ErrMissingPeriod       = errors.New("no lowest price for period")
)

// PeriodMode selects which configured periods are evaluated.
type PeriodMode string

const (
	// PeriodsAll evaluates every configured period.
	PeriodsAll PeriodMode = "all"
	// PeriodsLatest evaluates only the last configured period that ended before the as-of day.
	PeriodsLatest PeriodMode = "latest"
)

// MissingPricePolicy decides what happens when a coin has no current price.
type MissingPricePolicy string

const (
	// MissingPriceFail rejects the coin with ErrCurrentPriceMissing.
	MissingPriceFail MissingPricePolicy = "fail"
	// MissingPriceZero values the coin at zero.
	MissingPriceZero MissingPricePolicy = "zero"
)

// DefaultInvestmentAmount is the simulated purchase per period, in USD.
var DefaultInvestmentAmount = decimal.NewFromInt(100)

// Options controls Compute.
type Options struct {
	Amount       decimal.Decimal
	PeriodMode   PeriodMode
	MissingPrice MissingPricePolicy
}

// DefaultOptions returns amount 100, all periods, fail on missing price.
func DefaultOptions() Options {
	return Options{
		Amount:       DefaultInvestmentAmount,
		PeriodMode:   PeriodsAll,
		MissingPrice: MissingPriceFail,
	}
}

// SelectPeriods returns the periods evaluated under mode for the given as-of date.
func SelectPeriods(periods []model.Period, mode PeriodMode, asOf time.Time) ([]model.Period, error) {
	switch mode {
	case "", PeriodsAll:
		return periods, nil
	case PeriodsLatest:
		day := asOf.UTC().Truncate(24 * time.Hour)
		var latest []model.Period
		for _, p := range periods {
			if p.End.Before(day) {
				latest = []model.Period{p}
			}
		}
		if latest == nil {
			return nil, ErrNoEligiblePeriod
		}
		return latest, nil
	default:
		return nil, fmt.Errorf("unknown period mode %q", mode)
	}
}

// Compute simulates buying opts.Amount at each selected period's lowest price
// and marks every position to the snapshot's current price.
func Compute(snap *model.CoinSnapshot, periods []model.Period, asOf time.Time, opts Options) (*model.InvestmentReport, error) {
	amount := opts.Amount
	if amount.IsZero() {
		amount = DefaultInvestmentAmount
	}

	var current decimal.Decimal
	switch {
	case snap.CurrentPrice != nil:
		if !finite(*snap.CurrentPrice) || *snap.CurrentPrice < 0 {
			return nil, fmt.Errorf("current price: %w (got %v)", ErrInvalidPrice, *snap.CurrentPrice)
		}
		current = decimal.NewFromFloat(*snap.CurrentPrice)
	case opts.MissingPrice == MissingPriceZero:
		current = decimal.Zero
	default:
		return nil, ErrCurrentPriceMissing
	}

	selected, err := SelectPeriods(periods, opts.PeriodMode, asOf)
	if err != nil {
		return nil, err
	}

	hundred := decimal.NewFromInt(100)
	report := &model.InvestmentReport{TotalCurrentValue: decimal.Zero}
	for _, p := range selected {
		lowest, ok := snap.LowestPrices[p.Key()]
		if !ok {
			return nil, fmt.Errorf("%s: %w", p.Label(), ErrMissingPeriod)
		}
		if !finite(lowest.Price) || lowest.Price <= 0 {
			return nil, fmt.Errorf("%s: %w (got %v)", p.Label(), ErrInvalidPrice, lowest.Price)
		}

		coins := amount.Div(decimal.NewFromFloat(lowest.Price))
		value := coins.Mul(current)
		pl := value.Sub(amount)

		report.TotalCurrentValue = report.TotalCurrentValue.Add(value)
		report.Results = append(report.Results, model.InvestmentResult{
			Period:               p.Label(),
			InvestmentAmount:     amount,
			CoinsAcquired:        coins,
			CurrentValue:         value,
			ProfitLoss:           pl,
			ProfitLossPercentage: pl.Div(amount).Mul(hundred),
		})
	}
	return report, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Rank sorts summaries by TotalCurrentValue, highest first. Ties keep input order.
func Rank(summaries []model.CoinSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TotalCurrentValue.GreaterThan(summaries[j].TotalCurrentValue)
	})
}
