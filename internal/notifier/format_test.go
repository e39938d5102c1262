package notifier

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"DipTracker/internal/model"
)

func sampleSummary() *model.RunSummary {
	return &model.RunSummary{
		AsOf:       time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
		ReportPath: "results/2024/10/2024-10-01.csv",
		Coins:      4,
		Summaries: []model.CoinSummary{
			{Coin: "B", TotalCurrentValue: decimal.NewFromInt(600)},
			{Coin: "A", TotalCurrentValue: decimal.NewFromInt(300)},
			{Coin: "C", TotalCurrentValue: decimal.RequireFromString("150.555")},
		},
		Skipped:   map[string]string{"<x>": "no data"},
		CacheHits: 5,
		Fetches:   3,
	}
}

func TestFormatRunReport(t *testing.T) {
	msg := FormatRunReport(sampleSummary(), 0)
	assert.Contains(t, msg, "2024-10-01")
	assert.Contains(t, msg, "Coins: 4 | reported: 3 | skipped: 1")
	assert.Contains(t, msg, "1. B: 600.00")
	assert.Contains(t, msg, "3. C: 150.56")
	assert.Contains(t, msg, "&lt;x&gt;: no data")
	assert.Contains(t, msg, "results/2024/10/2024-10-01.csv")
}

func TestFormatRunReport_TopN(t *testing.T) {
	msg := FormatRunReport(sampleSummary(), 2)
	assert.Contains(t, msg, "2. A: 300.00")
	assert.NotContains(t, msg, "3. C")
	assert.Contains(t, msg, "and 1 more")
}

func TestFormatRunReport_NothingRanked(t *testing.T) {
	s := sampleSummary()
	s.Summaries = nil
	assert.Contains(t, FormatRunReport(s, 10), "No coins could be ranked.")
}

func TestFormatFailure(t *testing.T) {
	msg := FormatFailure("2024-10-01", errors.New("cache <broken>"))
	assert.Contains(t, msg, "cache &lt;broken&gt;")
}

func TestFormatRunReport_ShortensReasons(t *testing.T) {
	s := sampleSummary()
	s.Skipped = map[string]string{"dogecoin": "fetch prices: status 500, body: " + strings.Repeat("x", 600)}

	msg := FormatRunReport(s, 10)
	assert.NotContains(t, msg, strings.Repeat("x", maxReasonRunes))
	assert.Contains(t, msg, "…")
}

func TestFormatRunReport_StaysUnderTelegramLimit(t *testing.T) {
	s := sampleSummary()
	s.Skipped = make(map[string]string)
	for i := 0; i < 200; i++ {
		s.Skipped[fmt.Sprintf("coin-%03d", i)] = strings.Repeat("upstream failure ", 20)
	}
	for i := 0; i < 300; i++ {
		s.Summaries = append(s.Summaries, model.CoinSummary{Coin: fmt.Sprintf("rank-%03d", i), TotalCurrentValue: decimal.NewFromInt(int64(i))})
	}

	msg := FormatRunReport(s, 0)
	assert.LessOrEqual(t, utf8.RuneCountInString(msg), maxMessageRunes)
	assert.Contains(t, msg, "more skipped")
	assert.Contains(t, msg, "results/2024/10/2024-10-01.csv")
}
