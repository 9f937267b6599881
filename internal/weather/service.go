package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"

	"github.com/i474232898/weather-sensor-dashboard/internal/common"
)

// MaxBackfillDays bounds the trailing window; older dates are never fetched.
const MaxBackfillDays = 7

// saveTimeout bounds persisting the cache at the end of a run.
const saveTimeout = 30 * time.Second

// Report summarizes a single backfill run.
type Report struct {
	RunID       uuid.UUID     `json:"runId"`
	StartedAt   time.Time     `json:"startedAt"`
	Checked     []string      `json:"checked"`
	Fetched     []string      `json:"fetched"`
	Unavailable []string      `json:"unavailable"`
	Malformed   []string      `json:"malformed"`
	Records     []DailyRecord `json:"-"`
}

// Service is the merge/backfill controller: it keeps the cache filled for
// the trailing window of days.
type Service struct {
	store    Store
	provider HistoryProvider
	clock    clock.Clock
	days     int

	// serializes read-modify-write of the cache within this process
	mu sync.Mutex
}

// NewService creates a new Service. days outside 1..MaxBackfillDays is
// clamped into range.
func NewService(store Store, provider HistoryProvider, clk clock.Clock, days int) *Service {
	if clk == nil {
		clk = clock.NewClock()
	}
	if days <= 0 || days > MaxBackfillDays {
		days = MaxBackfillDays
	}
	return &Service{
		store:    store,
		provider: provider,
		clock:    clk,
		days:     days,
	}
}

// WindowDates returns the trailing window, today first.
func (s *Service) WindowDates() []string {
	today := s.clock.Now()
	dates := make([]string, 0, s.days)
	for i := 0; i < s.days; i++ {
		dates = append(dates, today.AddDate(0, 0, -i).Format(DateLayout))
	}
	return dates
}

// Backfill loads the cache, fetches every window date that is not cached
// yet, appends the successes and persists the full cache.
//
// A failed date is skipped without aborting the loop. New records are
// appended in fetch order; existing records are never reordered.
func (s *Service) Backfill(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := Report{
		RunID:     uuid.New(),
		StartedAt: s.clock.Now(),
	}

	records := s.store.Load(ctx)
	known := make(map[string]struct{}, len(records))
	for _, r := range records {
		known[r.Date] = struct{}{}
	}

	log.Printf("DEBUG: backfill %s starting with %d cached records", report.RunID, len(records))

	for _, date := range s.WindowDates() {
		if ctx.Err() != nil {
			log.Printf("backfill %s: stopping early: %v", report.RunID, ctx.Err())
			break
		}

		report.Checked = append(report.Checked, date)
		if _, ok := known[date]; ok {
			continue
		}

		rec, err := s.provider.FetchForDate(ctx, date)
		if err != nil {
			switch {
			case errors.Is(err, ErrMalformedPayload):
				report.Malformed = append(report.Malformed, date)
			default:
				report.Unavailable = append(report.Unavailable, date)
			}
			if code := common.StatusCode(err); code != 0 {
				log.Printf("Failed to retrieve data for %s from %s: %d", date, s.provider.Name(), code)
			} else {
				log.Printf("Failed to retrieve data for %s from %s: %v", date, s.provider.Name(), err)
			}
			continue
		}

		// the cache is keyed by the requested date, not the upstream one
		rec.Date = date
		records = append(records, rec)
		known[date] = struct{}{}
		report.Fetched = append(report.Fetched, date)
	}

	report.Records = records

	// records fetched before a cancellation are still persisted
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if err := s.store.Save(saveCtx, records); err != nil {
		return report, fmt.Errorf("save weather cache: %w", err)
	}

	log.Printf("INFO: backfill %s done: fetched=%d unavailable=%d malformed=%d total=%d",
		report.RunID, len(report.Fetched), len(report.Unavailable), len(report.Malformed), len(records))
	return report, nil
}

// Records returns the current cache contents without fetching.
func (s *Service) Records(ctx context.Context) []DailyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx)
}
