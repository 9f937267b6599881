// Package dashboard assembles the page view: weather tables, hourly rain,
// sensor history and their chart palettes.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/i474232898/weather-sensor-dashboard/internal/sensor"
	"github.com/i474232898/weather-sensor-dashboard/internal/table"
	"github.com/i474232898/weather-sensor-dashboard/internal/telemetry"
	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

// Caption is shown under the weather section.
const Caption = "Data from WeatherAPI, 7 days back from today"

// Keys of View.Errors.
const (
	ErrorKeySensor = "sensor"
	ErrorKeyCache  = "cache"
)

// Section is one table of the page, with its long form and color scale.
type Section struct {
	Table   table.Table     `json:"table"`
	Long    table.LongTable `json:"long"`
	Palette Scale           `json:"palette"`
}

// BackfillSummary is the part of weather.Report shown to clients.
type BackfillSummary struct {
	RunID       string   `json:"runId"`
	Fetched     []string `json:"fetched"`
	Unavailable []string `json:"unavailable"`
	Malformed   []string `json:"malformed"`
	Cached      int      `json:"cached"`
}

// View is everything a page shows.
type View struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Caption     string            `json:"caption"`
	Weather     Section           `json:"weather"`
	Hourly      Section           `json:"hourly"`
	Sensor      *Section          `json:"sensor"`
	Backfill    BackfillSummary   `json:"backfill"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// Builder runs the page flow.
type Builder struct {
	service  *weather.Service
	sensors  sensor.HistoryProvider
	deviceID string
	palette  Palette
	fields   []string
	tracker  telemetry.Tracker
	clock    clock.Clock
}

// Option customizes a Builder.
type Option func(*Builder)

// WithPalette overlays colors on DefaultPalette.
func WithPalette(p Palette) Option {
	return func(b *Builder) { b.palette = b.palette.Merge(p) }
}

// WithFields sets the weather fields used when a request names none.
func WithFields(fields []string) Option {
	return func(b *Builder) {
		if len(fields) > 0 {
			b.fields = append([]string(nil), fields...)
		}
	}
}

// WithTracker reports every backfill run to t.
func WithTracker(t telemetry.Tracker) Option {
	return func(b *Builder) {
		if t != nil {
			b.tracker = t
		}
	}
}

// WithClock sets the clock used for View.GeneratedAt.
func WithClock(clk clock.Clock) Option {
	return func(b *Builder) {
		if clk != nil {
			b.clock = clk
		}
	}
}

// NewBuilder creates a new Builder.
func NewBuilder(service *weather.Service, sensors sensor.HistoryProvider, deviceID string, opts ...Option) *Builder {
	b := &Builder{
		service:  service,
		sensors:  sensors,
		deviceID: deviceID,
		palette:  DefaultPalette(),
		fields:   table.FullFields(),
		tracker:  telemetry.Noop{},
		clock:    clock.NewClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DefaultFields returns the fields used when a request names none.
func (b *Builder) DefaultFields() []string {
	return append([]string(nil), b.fields...)
}

// Backfill runs the backfill and reports it to the tracker.
func (b *Builder) Backfill(ctx context.Context) (weather.Report, error) {
	report, err := b.service.Backfill(ctx)
	b.tracker.TrackBackfill(report, err)
	return report, err
}

// Build backfills the cache and assembles the full view. Only an invalid
// field selection fails the build; upstream and cache problems land in
// View.Errors.
func (b *Builder) Build(ctx context.Context, fields []string) (View, error) {
	fields = b.resolve(fields)
	if err := table.ValidateFields(fields); err != nil {
		return View{}, err
	}

	view := View{
		GeneratedAt: b.clock.Now(),
		Caption:     Caption,
		Errors:      map[string]string{},
	}

	report, err := b.Backfill(ctx)
	if err != nil {
		log.Printf("ERROR: %v", err)
		view.Errors[ErrorKeyCache] = err.Error()
	}
	view.Backfill = summarize(report)

	if view.Weather, err = b.weatherSection(report.Records, fields); err != nil {
		return View{}, err
	}
	if view.Hourly, err = b.hourlySection(report.Records); err != nil {
		return View{}, err
	}

	sensorSection, err := b.SensorSection(ctx)
	if err != nil {
		log.Printf("ERROR: sensor section: %v", err)
		view.Errors[ErrorKeySensor] = err.Error()
	} else {
		view.Sensor = &sensorSection
	}

	if len(view.Errors) == 0 {
		view.Errors = nil
	}
	return view, nil
}

// WeatherSection projects the cached records without fetching.
func (b *Builder) WeatherSection(ctx context.Context, fields []string) (Section, error) {
	return b.weatherSection(b.service.Records(ctx), b.resolve(fields))
}

// HourlySection projects the first cached record's hours without fetching.
func (b *Builder) HourlySection(ctx context.Context) (Section, error) {
	return b.hourlySection(b.service.Records(ctx))
}

// SensorSection fetches the device history and projects it.
func (b *Builder) SensorSection(ctx context.Context) (Section, error) {
	history, err := b.sensors.FetchHistory(ctx, b.deviceID)
	if err != nil {
		return Section{}, err
	}
	tbl := table.SensorToTable(history)
	key, values := sensorAxes(tbl)
	long, err := table.Melt(tbl, key, values...)
	if err != nil {
		return Section{}, fmt.Errorf("melt sensor table: %w", err)
	}
	return b.section(tbl, long), nil
}

func (b *Builder) weatherSection(records []weather.DailyRecord, fields []string) (Section, error) {
	tbl, err := table.WeatherToTable(records, fields)
	if err != nil {
		return Section{}, err
	}
	long, err := table.Melt(tbl, table.DateColumn)
	if err != nil {
		return Section{}, fmt.Errorf("melt weather table: %w", err)
	}
	return b.section(tbl, long), nil
}

func (b *Builder) hourlySection(records []weather.DailyRecord) (Section, error) {
	tbl := table.HourlyRainTable(records)
	long, err := table.Melt(tbl, table.TimeColumn)
	if err != nil {
		return Section{}, fmt.Errorf("melt hourly table: %w", err)
	}
	return b.section(tbl, long), nil
}

func (b *Builder) section(tbl table.Table, long table.LongTable) Section {
	return Section{
		Table:   tbl,
		Long:    long,
		Palette: b.palette.Scale(long.Metrics),
	}
}

func (b *Builder) resolve(fields []string) []string {
	if len(fields) == 0 {
		return b.DefaultFields()
	}
	return fields
}

// sensorAxes picks the key and value columns of the sensor chart. Histories
// without a time key are keyed by DISTANCE and chart only the change.
func sensorAxes(tbl table.Table) (string, []string) {
	if tbl.HasColumn(table.TimeColumn) {
		return table.TimeColumn, []string{sensor.DistanceField, table.ChangeColumn}
	}
	return sensor.DistanceField, []string{table.ChangeColumn}
}

func summarize(r weather.Report) BackfillSummary {
	return BackfillSummary{
		RunID:       r.RunID.String(),
		Fetched:     nonNil(r.Fetched),
		Unavailable: nonNil(r.Unavailable),
		Malformed:   nonNil(r.Malformed),
		Cached:      len(r.Records),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
