package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DipTracker/internal/model"
)

func series(prices ...float64) []model.PricePoint {
	base := time.Date(2024, 8, 4, 0, 0, 0, 0, time.UTC)
	points := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = model.PricePoint{Time: base.Add(time.Duration(i) * time.Hour), Price: p}
	}
	return points
}

func TestFindLowestPrice(t *testing.T) {
	points := series(120, 95.5, 101, 99)

	got, err := FindLowestPrice(points)
	require.NoError(t, err)
	assert.Equal(t, 95.5, got.Price)
	assert.Equal(t, points[1].Time, got.Time)
}

func TestFindLowestPrice_TieKeepsFirst(t *testing.T) {
	points := series(10, 7, 9, 7, 7)

	got, err := FindLowestPrice(points)
	require.NoError(t, err)
	assert.Equal(t, points[1].Time, got.Time)

	again, err := FindLowestPrice(points)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestFindLowestPrice_SinglePointAndZero(t *testing.T) {
	got, err := FindLowestPrice(series(42))
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.Price)

	got, err = FindLowestPrice(series(3, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Price)
}

func TestFindLowestPrice_Empty(t *testing.T) {
	_, err := FindLowestPrice(nil)
	assert.ErrorIs(t, err, ErrEmptySeries)
}
