package pricecache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_RoundTripAndRewrite(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	empty, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	want := sampleRecords()
	require.NoError(t, s.Persist(ctx, want))
	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].Coin, got[i].Coin)
		assert.True(t, want[i].PeriodStart.Equal(got[i].PeriodStart))
		assert.True(t, want[i].PeriodEnd.Equal(got[i].PeriodEnd))
		assert.Equal(t, want[i].LowestPrice, got[i].LowestPrice)
		assert.True(t, want[i].LowestPriceDate.Equal(got[i].LowestPriceDate))
	}

	// Persisting the same set twice must not trip the unique constraint.
	require.NoError(t, s.Persist(ctx, want))
	got, err = s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Options{CSVPath: filepath.Join(dir, "c.csv")})
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, s)

	s, err = Open(ctx, Options{Backend: BackendSQLite, SQLitePath: filepath.Join(dir, "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Backend: BackendPostgres})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: "redis"})
	assert.ErrorContains(t, err, "unknown cache backend")
}

func TestNewLazy_OpensBackendOnFirstLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "cache.db")
	c := NewLazy(Options{Backend: BackendSQLite, SQLitePath: path})
	assert.NoFileExists(t, path)

	require.NoError(t, c.Close())
	assert.NoFileExists(t, path)

	require.NoError(t, c.Load(ctx))
	assert.FileExists(t, path)
	require.NoError(t, c.Append(ctx, sampleRecords()[0]))

	// Later loads reuse the open store.
	require.NoError(t, c.Load(ctx))
	assert.Equal(t, 1, c.Len())
	require.NoError(t, c.Close())
}

func TestNewLazy_AppendBeforeLoad(t *testing.T) {
	c := NewLazy(Options{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "cache.db")})
	assert.Error(t, c.Append(context.Background(), sampleRecords()[0]))
}

func TestNewLazy_OpenFailure(t *testing.T) {
	c := NewLazy(Options{Backend: "redis"})
	assert.ErrorContains(t, c.Load(context.Background()), "open price cache")
}
