package model

import (
	"fmt"
	"time"
)

// isoLayout matches the millisecond UTC form used by the cache file.
const isoLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t as an ISO-8601 UTC timestamp with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseISO parses an ISO-8601 timestamp. Fractional seconds are optional.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Period is a fixed historical window over which the lowest price is sought.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a period and checks start < end.
func NewPeriod(start, end time.Time) (Period, error) {
	if !start.Before(end) {
		return Period{}, fmt.Errorf("period start %s must be before end %s", FormatISO(start), FormatISO(end))
	}
	return Period{Start: start.UTC(), End: end.UTC()}, nil
}

// Key identifies the period inside a snapshot.
func (p Period) Key() string {
	return FormatISO(p.Start) + "_" + FormatISO(p.End)
}

// Label is the human-readable form used in reports.
func (p Period) Label() string {
	return p.Start.UTC().Format("2006-01-02") + " to " + p.End.UTC().Format("2006-01-02")
}

// CacheRecord is a persisted (coin, period) -> lowest price fact.
type CacheRecord struct {
	Coin            string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	LowestPrice     float64
	LowestPriceDate time.Time
}

// Matches reports whether the record belongs to coin and period.
// Timestamps are compared on their normalized ISO form.
func (r CacheRecord) Matches(coin string, p Period) bool {
	return r.Coin == coin &&
		FormatISO(r.PeriodStart) == FormatISO(p.Start) &&
		FormatISO(r.PeriodEnd) == FormatISO(p.End)
}

// Lowest returns the cached value as a LowestPrice.
func (r CacheRecord) Lowest() LowestPrice {
	return LowestPrice{Time: r.LowestPriceDate, Price: r.LowestPrice}
}
