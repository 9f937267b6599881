package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

// DefaultCacheFile is the cache file name used when none is configured.
const DefaultCacheFile = "weather_data.json"

// cacheDocument is the on-disk layout: the record list under "weatherData".
type cacheDocument struct {
	WeatherData *[]weather.DailyRecord `json:"weatherData"`
}

// JSONFileStore persists the cache as a single JSON document.
//
// The file is not locked; concurrent writers from separate processes race
// and the last writer wins.
type JSONFileStore struct {
	path string
}

func NewJSONFileStore(path string) *JSONFileStore {
	if path == "" {
		path = DefaultCacheFile
	}
	return &JSONFileStore{path: path}
}

// Path returns the backing file path.
func (s *JSONFileStore) Path() string {
	return s.path
}

// Load reads the cache. A missing file, a missing "weatherData" key or an
// undecodable document all yield an empty cache.
func (s *JSONFileStore) Load(_ context.Context) []weather.DailyRecord {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []weather.DailyRecord{}
	} else if err != nil {
		log.Printf("WARN: cannot open weather cache %s, starting empty: %v", s.path, err)
		return []weather.DailyRecord{}
	}
	defer f.Close()

	var doc cacheDocument
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		log.Printf("WARN: weather cache %s is not valid JSON, starting empty: %v", s.path, err)
		return []weather.DailyRecord{}
	}
	if doc.WeatherData == nil {
		return []weather.DailyRecord{}
	}
	return *doc.WeatherData
}

// Save overwrites the file with the full record list.
func (s *JSONFileStore) Save(_ context.Context, records []weather.DailyRecord) error {
	if records == nil {
		records = []weather.DailyRecord{}
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(cacheDocument{WeatherData: &records}, "", " ")
	if err != nil {
		return fmt.Errorf("failed converting the cache to json: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed storing the cache file: %w", err)
	}
	return nil
}
