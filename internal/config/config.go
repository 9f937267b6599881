package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-sensor-dashboard/internal/sensor/datacake"
	"github.com/i474232898/weather-sensor-dashboard/internal/store"
	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

// Cache backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Default location: the sensor site.
const (
	DefaultLat = 49.185159
	DefaultLon = 8.548294
)

type AppConfig struct {
	WeatherAPIKey  string
	DatacakeAPIKey string
	DeviceID       string

	Lat float64 `validate:"latitude"`
	Lon float64 `validate:"longitude"`

	// Optional city lookup, used instead of Lat/Lon when a geocoder key is set.
	LocationCity    string
	LocationCountry string
	GeocoderAPIKey  string

	IncludeHourly bool
	WeatherFields []string `validate:"min=1,dive,oneof=maxtemp_c mintemp_c avgtemp_c totalprecip_mm avghumidity uv"`
	BackfillDays  int      `validate:"min=1,max=7"`

	CacheBackend    string `validate:"oneof=json sqlite memory"`
	CacheFile       string `validate:"required_if=CacheBackend json"`
	CacheSQLitePath string `validate:"required_if=CacheBackend sqlite"`

	DatacakeEndpoint string `validate:"required,url"`

	HTTPTimeout time.Duration `validate:"gt=0"`

	// FetchInterval controls how often the cache is backfilled (0 = disabled).
	FetchInterval time.Duration `validate:"gte=0"`

	// ChartPalette overrides chart colors per metric.
	ChartPalette map[string]string `validate:"dive,keys,required,endkeys,hexcolor"`

	InstrumentationKey string

	Port string `validate:"required,numeric"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.WeatherAPIKey = os.Getenv("WEATHER")
	cfg.DatacakeAPIKey = os.Getenv("DATACAKE")
	cfg.DeviceID = os.Getenv("DEVICE")

	var err error
	if cfg.Lat, err = getenvFloat("WEATHER_LAT", DefaultLat); err != nil {
		return nil, err
	}
	if cfg.Lon, err = getenvFloat("WEATHER_LON", DefaultLon); err != nil {
		return nil, err
	}
	cfg.LocationCity = os.Getenv("WEATHER_LOCATION_CITY")
	cfg.LocationCountry = os.Getenv("WEATHER_LOCATION_COUNTRY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	hourly, err := strconv.ParseBool(getenvDefault("WEATHER_HOURLY", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_HOURLY: %w", err)
	}
	cfg.IncludeHourly = hourly

	cfg.WeatherFields = splitList(getenvDefault("WEATHER_FIELDS", strings.Join(weather.DayFields, ",")))
	cfg.BackfillDays = getenvInt("BACKFILL_DAYS", weather.MaxBackfillDays)

	cfg.CacheBackend = getenvDefault("CACHE_BACKEND", BackendJSON)
	cfg.CacheFile = getenvDefault("CACHE_FILE", store.DefaultCacheFile)
	cfg.CacheSQLitePath = getenvDefault("CACHE_SQLITE_PATH", "weather_data.db")

	cfg.DatacakeEndpoint = getenvDefault("DATACAKE_ENDPOINT", datacake.DefaultEndpoint)

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	if cfg.ChartPalette, err = parsePalette(os.Getenv("CHART_PALETTE")); err != nil {
		return nil, err
	}

	cfg.InstrumentationKey = os.Getenv("APPLICATIONINSIGHTS_INSTRUMENTATION_KEY")
	cfg.Port = getenvDefault("PORT", "8080")

	// geocoded coordinates go through the same checks as configured ones
	if err := cfg.resolveLocation(); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Coordinate is the point weather history is requested for.
func (c *AppConfig) Coordinate() weather.Coordinate {
	return weather.Coordinate{Lat: c.Lat, Lon: c.Lon}
}

// parsePalette reads "metric=#hex,metric=#hex".
func parsePalette(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range splitList(s) {
		metric, color, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid CHART_PALETTE entry %q: want metric=#rrggbb", pair)
		}
		out[strings.TrimSpace(metric)] = strings.TrimSpace(color)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
