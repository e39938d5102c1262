package collector

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchExhausted is matched by every FetchExhaustedError.
	ErrFetchExhausted = errors.New("fetch attempts exhausted")

	// ErrNoData is returned when the price API answers with an empty series.
	ErrNoData = errors.New("no price data available")
)

// FetchExhaustedError reports that all retry attempts of an upstream call failed.
type FetchExhaustedError struct {
	Op       string
	Attempts int
	Err      error // last underlying failure
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("%s: all %d attempts failed: %v", e.Op, e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetchExhausted) hold for any FetchExhaustedError.
func (e *FetchExhaustedError) Is(target error) bool { return target == ErrFetchExhausted }
