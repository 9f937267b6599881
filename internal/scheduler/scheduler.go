package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

// runTimeout bounds a single scheduled backfill.
const runTimeout = 2 * time.Minute

// Backfiller fills the weather cache.
type Backfiller interface {
	Backfill(ctx context.Context) (weather.Report, error)
}

// Scheduler periodically backfills the weather cache so page loads find it
// warm.
type Scheduler struct {
	scheduler *gocron.Scheduler
	backfill  Backfiller
	interval  time.Duration
}

// New creates a new Scheduler.
func New(interval time.Duration, backfill Backfiller) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	return &Scheduler{
		scheduler: s,
		backfill:  backfill,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately. A non-positive interval disables it.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: FETCH_INTERVAL is 0; periodic backfill disabled")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 1
	}

	_, err := s.scheduler.Every(minutes).Minutes().SingletonMode().Do(s.Run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Run performs one backfill.
func (s *Scheduler) Run() {
	log.Println("scheduler: running weather backfill job")

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	report, err := s.backfill.Backfill(ctx)
	if err != nil {
		log.Printf("scheduler: backfill %s failed: %v", report.RunID, err)
		return
	}
	log.Printf("scheduler: completed weather backfill job, %d records cached", len(report.Records))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
