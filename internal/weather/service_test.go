package weather_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-sensor-dashboard/internal/store"
	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

// fakeProvider serves a record for every date unless told otherwise.
type fakeProvider struct {
	unavailable map[string]bool
	malformed   map[string]bool
	calls       []string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) FetchForDate(_ context.Context, date string) (weather.DailyRecord, error) {
	p.calls = append(p.calls, date)
	if p.unavailable[date] {
		return weather.DailyRecord{}, fmt.Errorf("%w: status 500", weather.ErrUpstreamUnavailable)
	}
	if p.malformed[date] {
		return weather.DailyRecord{}, fmt.Errorf("%w: missing key %q", weather.ErrMalformedPayload, "forecast")
	}
	return weather.NewDailyRecord(date, weather.Location{Name: "Test"}, date, weather.Day{TotalPrecipMM: 1}, nil), nil
}

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) Save(context.Context, []weather.DailyRecord) error {
	return errors.New("disk full")
}

// 2024-01-07 local noon; the window is 2024-01-07 back to 2024-01-01.
func newClock() *fakeclock.FakeClock {
	return fakeclock.NewFakeClock(time.Date(2024, 1, 7, 12, 0, 0, 0, time.Local))
}

func dates(records []weather.DailyRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Date)
	}
	return out
}

func TestWindowDatesTodayFirst(t *testing.T) {
	svc := weather.NewService(store.NewMemoryStore(), &fakeProvider{}, newClock(), 7)
	assert.Equal(t, []string{
		"2024-01-07", "2024-01-06", "2024-01-05", "2024-01-04",
		"2024-01-03", "2024-01-02", "2024-01-01",
	}, svc.WindowDates())
}

func TestNewServiceClampsDays(t *testing.T) {
	assert.Len(t, weather.NewService(store.NewMemoryStore(), &fakeProvider{}, newClock(), 30).WindowDates(), 7)
	assert.Len(t, weather.NewService(store.NewMemoryStore(), &fakeProvider{}, newClock(), 0).WindowDates(), 7)
	assert.Len(t, weather.NewService(store.NewMemoryStore(), &fakeProvider{}, newClock(), 3).WindowDates(), 3)
}

func TestBackfillPartialFailureThenRecovery(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	prov := &fakeProvider{unavailable: map[string]bool{"2024-01-05": true, "2024-01-02": true}}
	svc := weather.NewService(mem, prov, newClock(), 7)

	report, err := svc.Backfill(ctx)
	require.NoError(t, err)

	first := mem.Load(ctx)
	assert.Equal(t, []string{"2024-01-07", "2024-01-06", "2024-01-04", "2024-01-03", "2024-01-01"}, dates(first))
	assert.Equal(t, []string{"2024-01-05", "2024-01-02"}, report.Unavailable)
	assert.Len(t, report.Checked, 7)

	// the two dates come back
	prov.unavailable = nil
	prov.calls = nil
	report, err = svc.Backfill(ctx)
	require.NoError(t, err)

	second := mem.Load(ctx)
	require.Len(t, second, 7)
	assert.Equal(t, first, second[:5], "existing entries keep their order")
	assert.Equal(t, []string{"2024-01-05", "2024-01-02"}, dates(second[5:]), "new entries are appended")
	assert.Equal(t, []string{"2024-01-05", "2024-01-02"}, prov.calls)
	assert.Equal(t, []string{"2024-01-05", "2024-01-02"}, report.Fetched)
}

func TestBackfillIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	prov := &fakeProvider{}
	svc := weather.NewService(mem, prov, newClock(), 7)

	_, err := svc.Backfill(ctx)
	require.NoError(t, err)
	first := mem.Load(ctx)

	prov.calls = nil
	report, err := svc.Backfill(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, mem.Load(ctx))
	assert.Empty(t, prov.calls)
	assert.Empty(t, report.Fetched)
	assert.Equal(t, 2, mem.Saves())
}

func TestBackfillNeverDuplicatesDates(t *testing.T) {
	ctx := context.Background()
	seed := []weather.DailyRecord{
		weather.NewDailyRecord("2023-12-01", weather.Location{}, "2023-12-01", weather.Day{}, nil),
		weather.NewDailyRecord("2024-01-04", weather.Location{}, "2024-01-04", weather.Day{}, nil),
	}
	mem := store.NewMemoryStore(seed...)
	clk := newClock()
	svc := weather.NewService(mem, &fakeProvider{}, clk, 7)

	for i := 0; i < 3; i++ {
		_, err := svc.Backfill(ctx)
		require.NoError(t, err)
		clk.Increment(24 * time.Hour)
	}

	got := dates(mem.Load(ctx))
	seen := map[string]bool{}
	for _, d := range got {
		assert.False(t, seen[d], "duplicate date %s", d)
		seen[d] = true
	}
	assert.Equal(t, []string{"2023-12-01", "2024-01-04"}, got[:2])
	// 7 days on day one, then one new day per later run
	assert.Len(t, got, 2+6+2)
}

func TestBackfillMalformedPayloadSkipsDate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	prov := &fakeProvider{malformed: map[string]bool{"2024-01-06": true}}
	svc := weather.NewService(mem, prov, newClock(), 7)

	report, err := svc.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-06"}, report.Malformed)
	assert.Empty(t, report.Unavailable)
	assert.Len(t, mem.Load(ctx), 6)
	assert.NotContains(t, dates(mem.Load(ctx)), "2024-01-06")
}

func TestBackfillSaveErrorKeepsRecords(t *testing.T) {
	svc := weather.NewService(failingStore{store.NewMemoryStore()}, &fakeProvider{}, newClock(), 7)

	report, err := svc.Backfill(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, report.Records, 7)
}

func TestBackfillStopsOnCancelledContext(t *testing.T) {
	mem := store.NewMemoryStore()
	prov := &fakeProvider{}
	svc := weather.NewService(mem, prov, newClock(), 7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Backfill(ctx)
	require.NoError(t, err)
	assert.Empty(t, prov.calls)
	assert.Empty(t, report.Checked)
	assert.Equal(t, 1, mem.Saves())
}

// cancellingProvider cancels the run while fetching its n-th date.
type cancellingProvider struct {
	fakeProvider
	cancel  context.CancelFunc
	cancelN int
}

func (p *cancellingProvider) FetchForDate(ctx context.Context, date string) (weather.DailyRecord, error) {
	rec, err := p.fakeProvider.FetchForDate(ctx, date)
	if len(p.calls) == p.cancelN {
		p.cancel()
	}
	return rec, err
}

func TestBackfillCancelledRunStillPersistsToSQLite(t *testing.T) {
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "weather.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	prov := &cancellingProvider{cancel: cancel, cancelN: 2}
	svc := weather.NewService(db, prov, newClock(), 7)

	report, err := svc.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-07", "2024-01-06"}, report.Fetched)

	persisted := db.Load(context.Background())
	assert.Equal(t, []string{"2024-01-07", "2024-01-06"}, dates(persisted))
}

func TestBackfillPartialFailureOnJSONFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache", "weather_data.json")
	file := store.NewJSONFileStore(path)
	prov := &fakeProvider{unavailable: map[string]bool{"2024-01-05": true, "2024-01-02": true}}
	svc := weather.NewService(file, prov, newClock(), 7)

	_, err := svc.Backfill(ctx)
	require.NoError(t, err)
	first := store.NewJSONFileStore(path).Load(ctx)
	assert.Equal(t, []string{"2024-01-07", "2024-01-06", "2024-01-04", "2024-01-03", "2024-01-01"}, dates(first))

	prov.unavailable = nil
	_, err = svc.Backfill(ctx)
	require.NoError(t, err)

	second := store.NewJSONFileStore(path).Load(ctx)
	require.Len(t, second, 7)
	assert.Equal(t, dates(first), dates(second[:5]))
	assert.Equal(t, []string{"2024-01-05", "2024-01-02"}, dates(second[5:]))
}
