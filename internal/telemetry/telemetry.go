// Package telemetry reports backfill runs to Application Insights.
package telemetry

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/microsoft/ApplicationInsights-Go/appinsights"

	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

// Tracker receives the outcome of every backfill run.
type Tracker interface {
	TrackBackfill(report weather.Report, err error)
	Close()
}

// Noop discards everything.
type Noop struct{}

func (Noop) TrackBackfill(weather.Report, error) {}
func (Noop) Close()                              {}

// AppInsights sends one "backfill" event per run.
type AppInsights struct {
	client appinsights.TelemetryClient
}

// New returns an Application Insights tracker, or Noop when no
// instrumentation key is configured.
func New(instrumentationKey, role string) Tracker {
	if instrumentationKey == "" {
		log.Printf("INFO: application insights instrumentation key not set; telemetry disabled")
		return Noop{}
	}

	cfg := appinsights.NewTelemetryConfiguration(instrumentationKey)
	cfg.MaxBatchSize = 8192
	cfg.MaxBatchInterval = 2 * time.Second

	client := appinsights.NewTelemetryClientFromConfig(cfg)
	client.Context().Tags.Cloud().SetRole(role)
	return NewAppInsights(client)
}

// NewAppInsights wraps an existing client.
func NewAppInsights(client appinsights.TelemetryClient) *AppInsights {
	return &AppInsights{client: client}
}

func (a *AppInsights) TrackBackfill(report weather.Report, err error) {
	a.client.Track(BackfillEvent(report, err))
}

// Close flushes pending telemetry, waiting a bounded time.
func (a *AppInsights) Close() {
	select {
	case <-a.client.Channel().Close(5 * time.Second):
	case <-time.After(10 * time.Second):
		log.Printf("telemetry: timed out flushing application insights")
	}
}

// BackfillEvent builds the event tracked for a run.
func BackfillEvent(report weather.Report, err error) *appinsights.EventTelemetry {
	e := appinsights.NewEventTelemetry("backfill")
	e.Properties["run-id"] = report.RunID.String()
	e.Properties["checked"] = fmt.Sprintf("%d", len(report.Checked))
	e.Properties["fetched"] = fmt.Sprintf("%d", len(report.Fetched))
	e.Properties["unavailable"] = strings.Join(report.Unavailable, ",")
	e.Properties["malformed"] = strings.Join(report.Malformed, ",")
	e.Properties["records"] = fmt.Sprintf("%d", len(report.Records))
	if err != nil {
		e.Properties["error"] = err.Error()
	}
	return e
}
