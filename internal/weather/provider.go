package weather

import (
	"context"
	"errors"
)

var (
	// ErrUpstreamUnavailable marks a date the history endpoint could not
	// serve (non-success status, transport failure, open circuit).
	ErrUpstreamUnavailable = errors.New("weather upstream unavailable")

	// ErrMalformedPayload marks a successful response missing an expected key.
	ErrMalformedPayload = errors.New("malformed weather payload")
)

// HistoryProvider fetches the weather history of a single calendar date.
type HistoryProvider interface {
	Name() string
	FetchForDate(ctx context.Context, date string) (DailyRecord, error)
}

// Store is the contract every cache backend satisfies.
//
// Load never fails: a missing or unreadable cache is an empty cache.
// Save overwrites the whole cache, keeping slice order.
type Store interface {
	Load(ctx context.Context) []DailyRecord
	Save(ctx context.Context, records []DailyRecord) error
}
