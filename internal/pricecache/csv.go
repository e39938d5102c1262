package pricecache

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"DipTracker/internal/model"
)

var csvHeader = []string{"coin", "periodStart", "periodEnd", "lowestPrice", "lowestPriceDate"}

// CSVStore keeps the cache in a single CSV file.
type CSVStore struct {
	Path string
}

// NewCSVStore returns a store backed by path. The file need not exist yet.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{Path: path}
}

// LoadAll reads every record. A missing file is an empty cache.
func (s *CSVStore) LoadAll(_ context.Context) ([]model.CacheRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.CacheRecord{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return decodeCSV(f)
}

// Persist rewrites the whole file. The new contents are written to a
// temporary file first and renamed over the old one.
func (s *CSVStore) Persist(_ context.Context, records []model.CacheRecord) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".price_cache-*.csv")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encodeCSV(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

func (s *CSVStore) Close() error { return nil }

func decodeCSV(r io.Reader) ([]model.CacheRecord, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read cache csv: %w", err)
	}
	if len(rows) == 0 {
		return []model.CacheRecord{}, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, name := range csvHeader {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("read cache csv: missing column %q", name)
		}
	}

	records := make([]model.CacheRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rec, err := parseRow(row, col)
		if err != nil {
			return nil, fmt.Errorf("read cache csv line %d: %w", n+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, col map[string]int) (model.CacheRecord, error) {
	var rec model.CacheRecord
	var err error
	rec.Coin = row[col["coin"]]
	if rec.PeriodStart, err = model.ParseISO(row[col["periodStart"]]); err != nil {
		return rec, err
	}
	if rec.PeriodEnd, err = model.ParseISO(row[col["periodEnd"]]); err != nil {
		return rec, err
	}
	if rec.LowestPrice, err = strconv.ParseFloat(row[col["lowestPrice"]], 64); err != nil {
		return rec, fmt.Errorf("parse lowestPrice: %w", err)
	}
	if math.IsNaN(rec.LowestPrice) || math.IsInf(rec.LowestPrice, 0) {
		return rec, fmt.Errorf("lowestPrice %q is not a finite number", row[col["lowestPrice"]])
	}
	if rec.LowestPriceDate, err = model.ParseISO(row[col["lowestPriceDate"]]); err != nil {
		return rec, err
	}
	return rec, nil
}

func encodeCSV(w io.Writer, records []model.CacheRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write cache csv: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Coin,
			model.FormatISO(r.PeriodStart),
			model.FormatISO(r.PeriodEnd),
			strconv.FormatFloat(r.LowestPrice, 'g', -1, 64),
			model.FormatISO(r.LowestPriceDate),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write cache csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write cache csv: %w", err)
	}
	return nil
}
