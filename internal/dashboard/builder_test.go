package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-sensor-dashboard/internal/sensor"
	"github.com/i474232898/weather-sensor-dashboard/internal/store"
	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

type stubWeather struct {
	down map[string]bool
}

func (stubWeather) Name() string { return "stub" }

func (s stubWeather) FetchForDate(_ context.Context, date string) (weather.DailyRecord, error) {
	if s.down[date] {
		return weather.DailyRecord{}, fmt.Errorf("%w: status 503", weather.ErrUpstreamUnavailable)
	}
	hours := []weather.HourEntry{{Time: date + " 00:00", PrecipMM: 0.2}}
	return weather.NewDailyRecord(date, weather.Location{}, date,
		weather.Day{MaxTempC: 10, TotalPrecipMM: 1.5}, hours), nil
}

type stubSensor struct {
	history sensor.History
	err     error
	device  string
}

func (s *stubSensor) FetchHistory(_ context.Context, deviceID string) (sensor.History, error) {
	s.device = deviceID
	return s.history, s.err
}

type recordingTracker struct {
	reports []weather.Report
	errs    []error
}

func (r *recordingTracker) TrackBackfill(report weather.Report, err error) {
	r.reports = append(r.reports, report)
	r.errs = append(r.errs, err)
}

func (r *recordingTracker) Close() {}

type brokenStore struct {
	*store.MemoryStore
}

func (brokenStore) Save(context.Context, []weather.DailyRecord) error {
	return errors.New("read-only file system")
}

func newFakeClock() *fakeclock.FakeClock {
	return fakeclock.NewFakeClock(time.Date(2024, 1, 7, 12, 0, 0, 0, time.Local))
}

func TestBuildFullView(t *testing.T) {
	clk := newFakeClock()
	svc := weather.NewService(store.NewMemoryStore(), stubWeather{down: map[string]bool{"2024-01-03": true}}, clk, 7)
	sensors := &stubSensor{history: sensor.History{
		{"time": "2024-01-07T10:00", "DISTANCE": 120.0},
		{"time": "2024-01-07T11:00", "DISTANCE": 118.0},
	}}
	tracker := &recordingTracker{}

	b := NewBuilder(svc, sensors, "dev-1", WithTracker(tracker), WithClock(clk),
		WithPalette(Palette{"totalprecip_mm": "#123456"}))

	view, err := b.Build(context.Background(), []string{"totalprecip_mm"})
	require.NoError(t, err)

	assert.Equal(t, Caption, view.Caption)
	assert.Equal(t, clk.Now(), view.GeneratedAt)
	assert.Nil(t, view.Errors)
	assert.Equal(t, "dev-1", sensors.device)

	assert.Len(t, view.Weather.Table.Rows, 6)
	assert.Equal(t, []string{"date", "totalprecip_mm"}, view.Weather.Table.Columns)
	assert.Len(t, view.Weather.Long.Rows, 6)
	assert.Equal(t, Scale{Domain: []string{"totalprecip_mm"}, Range: []string{"#123456"}}, view.Weather.Palette)

	require.Len(t, view.Hourly.Table.Rows, 1)
	assert.Equal(t, "2024-01-07 00:00", view.Hourly.Table.Rows[0]["time"])

	require.NotNil(t, view.Sensor)
	assert.Len(t, view.Sensor.Long.Rows, 4)
	assert.Equal(t, []string{"DISTANCE", "change"}, view.Sensor.Palette.Domain)

	assert.Equal(t, []string{"2024-01-03"}, view.Backfill.Unavailable)
	assert.Equal(t, []string{}, view.Backfill.Malformed)
	assert.Equal(t, 6, view.Backfill.Cached)

	require.Len(t, tracker.reports, 1)
	assert.NoError(t, tracker.errs[0])
}

func TestBuildSensorFailureKeepsWeather(t *testing.T) {
	svc := weather.NewService(store.NewMemoryStore(), stubWeather{}, newFakeClock(), 2)
	b := NewBuilder(svc, &stubSensor{err: fmt.Errorf("%w: status 401", sensor.ErrBadResponse)}, "dev-1")

	view, err := b.Build(context.Background(), nil)
	require.NoError(t, err)

	assert.Nil(t, view.Sensor)
	assert.Contains(t, view.Errors[ErrorKeySensor], "status 401")
	assert.Len(t, view.Weather.Table.Rows, 2)
	assert.Len(t, view.Weather.Table.Columns, 7, "default fields are all day fields")
}

func TestBuildCacheFailureIsReported(t *testing.T) {
	tracker := &recordingTracker{}
	svc := weather.NewService(brokenStore{store.NewMemoryStore()}, stubWeather{}, newFakeClock(), 1)
	b := NewBuilder(svc, &stubSensor{history: sensor.History{}}, "dev-1", WithTracker(tracker))

	view, err := b.Build(context.Background(), nil)
	require.NoError(t, err)

	assert.Contains(t, view.Errors[ErrorKeyCache], "read-only file system")
	assert.Len(t, view.Weather.Table.Rows, 1, "fetched records are still shown")
	require.Len(t, tracker.errs, 1)
	assert.Error(t, tracker.errs[0])
}

func TestBuildRejectsUnknownField(t *testing.T) {
	svc := weather.NewService(store.NewMemoryStore(), stubWeather{}, newFakeClock(), 1)
	b := NewBuilder(svc, &stubSensor{}, "dev-1")

	_, err := b.Build(context.Background(), []string{"wind_kph"})
	assert.ErrorContains(t, err, "wind_kph")
}

func TestWeatherSectionReadsCacheOnly(t *testing.T) {
	cached := weather.NewDailyRecord("2024-01-01", weather.Location{}, "2024-01-01", weather.Day{UV: 2}, nil)
	mem := store.NewMemoryStore(cached)
	svc := weather.NewService(mem, stubWeather{}, newFakeClock(), 7)
	b := NewBuilder(svc, &stubSensor{}, "dev-1", WithFields([]string{"uv"}))

	sec, err := b.WeatherSection(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, sec.Table.Rows, 1)
	assert.Equal(t, 2.0, *sec.Table.Rows[0]["uv"].(*float64))
	assert.Equal(t, 0, mem.Saves())

	hourly, err := b.HourlySection(context.Background())
	require.NoError(t, err)
	assert.Empty(t, hourly.Table.Rows)
}

func TestSensorSectionWithoutTime(t *testing.T) {
	svc := weather.NewService(store.NewMemoryStore(), stubWeather{}, newFakeClock(), 1)
	b := NewBuilder(svc, &stubSensor{history: sensor.History{{"DISTANCE": 3.0}, {"DISTANCE": 4.0}}}, "dev-1")

	sec, err := b.SensorSection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DISTANCE", sec.Long.KeyColumn)
	assert.Equal(t, []string{"change"}, sec.Long.Metrics)
}

func TestPaletteScaleFallsBack(t *testing.T) {
	s := DefaultPalette().Scale([]string{"uv", "unknown"})
	assert.Equal(t, []string{"#ffa500", fallbackColor}, s.Range)
}
