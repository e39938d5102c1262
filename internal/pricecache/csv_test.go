package pricecache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVStore_MissingFileIsEmpty(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "nope", "price_data.csv"))

	records, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results", "price_data.csv")
	s := NewCSVStore(path)

	want := sampleRecords()
	require.NoError(t, s.Persist(ctx, want))

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Coin, got[i].Coin)
		assert.True(t, want[i].PeriodStart.Equal(got[i].PeriodStart))
		assert.True(t, want[i].PeriodEnd.Equal(got[i].PeriodEnd))
		assert.Equal(t, want[i].LowestPrice, got[i].LowestPrice)
		assert.True(t, want[i].LowestPriceDate.Equal(got[i].LowestPriceDate))
	}
}

func TestCSVStore_PersistOverwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "price_data.csv")
	s := NewCSVStore(path)

	all := sampleRecords()
	require.NoError(t, s.Persist(ctx, all))
	require.NoError(t, s.Persist(ctx, all[:1]))

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestCSVStore_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "price_data.csv")
	content := "coin,periodStart,periodEnd,lowestPrice,lowestPriceDate\n" +
		"bitcoin,2024-08-04T00:00:00.000Z,2024-08-06T00:00:00.000Z,49121.5,2024-08-05T07:00:00.000Z\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := NewCSVStore(path).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bitcoin", got[0].Coin)
	assert.Equal(t, 49121.5, got[0].LowestPrice)
	assert.True(t, day(2024, 8, 4).Equal(got[0].PeriodStart))
}

func TestCSVStore_RejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()

	missingCol := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(missingCol, []byte("coin,periodStart\nbitcoin,2024-08-04T00:00:00Z\n"), 0o644))
	_, err := NewCSVStore(missingCol).LoadAll(context.Background())
	assert.ErrorContains(t, err, "missing column")

	badPrice := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(badPrice, []byte("coin,periodStart,periodEnd,lowestPrice,lowestPriceDate\n"+
		"bitcoin,2024-08-04T00:00:00Z,2024-08-06T00:00:00Z,cheap,2024-08-05T00:00:00Z\n"), 0o644))
	_, err = NewCSVStore(badPrice).LoadAll(context.Background())
	assert.ErrorContains(t, err, "line 2")

	for i, v := range []string{"NaN", "Inf", "-Inf"} {
		path := filepath.Join(dir, fmt.Sprintf("nonfinite-%d.csv", i))
		require.NoError(t, os.WriteFile(path, []byte("coin,periodStart,periodEnd,lowestPrice,lowestPriceDate\n"+
			"bitcoin,2024-08-04T00:00:00Z,2024-08-06T00:00:00Z,"+v+",2024-08-05T00:00:00Z\n"), 0o644))
		_, err = NewCSVStore(path).LoadAll(context.Background())
		assert.ErrorContains(t, err, "not a finite number", v)
	}
}
