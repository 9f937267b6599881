package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-sensor-dashboard/internal/api/http"
	"github.com/i474232898/weather-sensor-dashboard/internal/config"
	"github.com/i474232898/weather-sensor-dashboard/internal/dashboard"
	"github.com/i474232898/weather-sensor-dashboard/internal/scheduler"
	"github.com/i474232898/weather-sensor-dashboard/internal/sensor/datacake"
	"github.com/i474232898/weather-sensor-dashboard/internal/store"
	"github.com/i474232898/weather-sensor-dashboard/internal/telemetry"
	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
	"github.com/i474232898/weather-sensor-dashboard/internal/weather/providers"
)

const serviceName = "weather-sensor-dashboard"

func main() {
	// Load configuration (including .env).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	cache, closeCache, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open weather cache: %v", err)
	}
	defer closeCache()

	clk := clock.NewClock()

	weatherAPI := providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, cfg.Coordinate(), cfg.IncludeHourly)
	service := weather.NewService(cache, weatherAPI, clk, cfg.BackfillDays)

	sensors := datacake.NewClient(httpClient, cfg.DatacakeAPIKey, cfg.DatacakeEndpoint, clk)

	tracker := telemetry.New(cfg.InstrumentationKey, serviceName)
	defer tracker.Close()

	builder := dashboard.NewBuilder(service, sensors, cfg.DeviceID,
		dashboard.WithFields(cfg.WeatherFields),
		dashboard.WithPalette(cfg.ChartPalette),
		dashboard.WithTracker(tracker),
		dashboard.WithClock(clk),
	)

	// Scheduler that keeps the cache warm between page loads.
	sched := scheduler.New(cfg.FetchInterval, builder)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// a dashboard request runs a full backfill
		WriteTimeout: time.Duration(cfg.BackfillDays+1) * cfg.HTTPTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, builder)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s", cfg.Port)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// openStore selects the cache backend.
func openStore(cfg *config.AppConfig) (weather.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.BackendSQLite:
		s, err := store.NewSQLiteStore(cfg.CacheSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Printf("error closing sqlite cache: %v", err)
			}
		}, nil
	case config.BackendMemory:
		return store.NewMemoryStore(), func() {}, nil
	case config.BackendJSON:
		s := store.NewJSONFileStore(cfg.CacheFile)
		log.Printf("INFO: weather cache file %s", s.Path())
		return s, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
