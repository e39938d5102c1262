package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"unicode/utf8"

	"DipTracker/internal/model"
)

// Telegram rejects messages longer than 4096 characters.
const (
	maxMessageRunes = 4000
	maxReasonRunes  = 160
)

// FormatRunReport renders a run summary as a Telegram HTML message.
// At most topN ranked coins are listed; topN <= 0 lists all that fit.
// Skip reasons are shortened and the message never exceeds maxMessageRunes.
func FormatRunReport(s *model.RunSummary, topN int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📉 <b>DipTracker</b> | %s\n\n", s.AsOf.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "Coins: %d | reported: %d | skipped: %d\n", s.Coins, len(s.Summaries), len(s.Skipped))
	fmt.Fprintf(&b, "Cache hits: %d | fetches: %d\n\n", s.CacheHits, s.Fetches)

	var footer string
	if s.ReportPath != "" {
		footer = fmt.Sprintf("\nReport: <code>%s</code>", html.EscapeString(s.ReportPath))
	}
	// Room is kept for one "and N more" line per section.
	const moreLine = 40
	fits := func(line string) bool {
		return utf8.RuneCountInString(b.String())+utf8.RuneCountInString(line)+utf8.RuneCountInString(footer)+2*moreLine <= maxMessageRunes
	}

	rows := s.Summaries
	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	if len(rows) > 0 {
		b.WriteString("<b>Ranking</b> (total current value)\n")
		listed := 0
		for i, cs := range rows {
			line := fmt.Sprintf("%d. %s: %s\n", i+1, html.EscapeString(cs.Coin), cs.TotalCurrentValue.StringFixed(2))
			if !fits(line) {
				break
			}
			b.WriteString(line)
			listed++
		}
		if more := len(s.Summaries) - listed; more > 0 {
			fmt.Fprintf(&b, "… and %d more\n", more)
		}
	} else {
		b.WriteString("No coins could be ranked.\n")
	}

	if len(s.Skipped) > 0 {
		coins := make([]string, 0, len(s.Skipped))
		for c := range s.Skipped {
			coins = append(coins, c)
		}
		sort.Strings(coins)
		b.WriteString("\n<b>Skipped</b>\n")
		listed := 0
		for _, c := range coins {
			line := fmt.Sprintf("• %s: %s\n", html.EscapeString(c), html.EscapeString(shorten(s.Skipped[c], maxReasonRunes)))
			if !fits(line) {
				break
			}
			b.WriteString(line)
			listed++
		}
		if more := len(coins) - listed; more > 0 {
			fmt.Fprintf(&b, "… and %d more skipped\n", more)
		}
	}

	b.WriteString(footer)
	return b.String()
}

// shorten cuts s to at most n runes, marking the cut with an ellipsis.
func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// FormatFailure renders a run that aborted before producing a report.
func FormatFailure(asOfLabel string, err error) string {
	return fmt.Sprintf("❌ <b>DipTracker</b> | %s\n\nRun failed: %s", asOfLabel, html.EscapeString(shorten(err.Error(), maxMessageRunes-100)))
}
