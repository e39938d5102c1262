// Package report writes the dated ranking file of a run.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"DipTracker/internal/model"
)

var header = []string{"coin", "totalCurrentValue"}

// Path returns dir/<YYYY>/<MM>/<YYYY-MM-DD>.csv for the UTC day of asOf.
func Path(dir string, asOf time.Time) string {
	d := asOf.UTC()
	return filepath.Join(dir, d.Format("2006"), d.Format("01"), d.Format("2006-01-02")+".csv")
}

// Write stores the ranked summaries and returns the file path. Rows are
// written in the order given; callers rank them first. An existing report
// for the same day is replaced.
func Write(dir string, asOf time.Time, summaries []model.CoinSummary) (string, error) {
	path := Path(dir, asOf)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}

	w := csv.NewWriter(f)
	w.Write(header)
	for _, s := range summaries {
		w.Write([]string{s.Coin, s.TotalCurrentValue.String()})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}
