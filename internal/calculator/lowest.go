package calculator

import (
	"errors"

	"DipTracker/internal/model"
)

// ErrEmptySeries is returned when there is nothing to reduce.
var ErrEmptySeries = errors.New("empty price series")

// FindLowestPrice returns the sample with the smallest price.
// Ties keep the first occurrence.
func FindLowestPrice(points []model.PricePoint) (model.LowestPrice, error) {
	if len(points) == 0 {
		return model.LowestPrice{}, ErrEmptySeries
	}
	lowest := points[0]
	for _, p := range points[1:] {
		if p.Price < lowest.Price {
			lowest = p
		}
	}
	return model.LowestPrice{Time: lowest.Time, Price: lowest.Price}, nil
}
