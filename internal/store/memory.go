package store

import (
	"context"
	"sync"

	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory weather cache.
type MemoryStore struct {
	mu      sync.RWMutex
	records []weather.DailyRecord

	// number of completed saves
	saves int
}

// NewMemoryStore creates a MemoryStore seeded with records.
func NewMemoryStore(records ...weather.DailyRecord) *MemoryStore {
	return &MemoryStore{records: cloneRecords(records)}
}

// Load returns a copy of the stored records.
func (s *MemoryStore) Load(_ context.Context) []weather.DailyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

// Save replaces the stored records.
func (s *MemoryStore) Save(_ context.Context, records []weather.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cloneRecords(records)
	s.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func cloneRecords(records []weather.DailyRecord) []weather.DailyRecord {
	out := make([]weather.DailyRecord, len(records))
	copy(out, records)
	return out
}
