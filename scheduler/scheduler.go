package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"car_tracker/config"
	"car_tracker/models"
	"car_tracker/workers"
)

// Runner executes a bulk run. workers.BulkOrchestrator satisfies it.
type Runner interface {
	BulkTrackListings(ctx context.Context, req workers.BulkRequest) models.BulkResult
}

// Scheduler triggers bulk runs over the scheduled locations, either on a cron
// expression or on a fixed interval. Overlapping runs are skipped.
type Scheduler struct {
	cfg     *config.Config
	runner  Runner
	cron    *cron.Cron
	ticker  *time.Ticker
	stopCh  chan struct{}
	stop    sync.Once
	running atomic.Bool
	now     func() time.Time
}

func New(cfg *config.Config, runner Runner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.TriggerNow(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.TriggerNow(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon is idle")
	}

	return nil
}

func (s *Scheduler) Stop() {
	s.stop.Do(func() {
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
}

// TriggerNow runs one bulk pass unless one is already in progress. It reports
// whether a run happened.
func (s *Scheduler) TriggerNow(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("Scheduled run skipped, previous run still in progress")
		return false
	}
	defer s.running.Store(false)

	locations := s.cfg.ScheduledLocations()
	if len(locations) == 0 {
		log.Println("Scheduled run skipped, no scheduled locations")
		return false
	}

	req := s.request(locations)
	res := s.runner.BulkTrackListings(ctx, req)
	log.Printf("Scheduled run %s finished for %d locations starting %s", res.RunID, len(locations), req.Start.Format("2006-01-02"))
	return true
}

// request builds tomorrow's search for the given locations.
func (s *Scheduler) request(locations []string) workers.BulkRequest {
	y, m, d := s.now().AddDate(0, 0, 1).Date()
	return workers.BulkRequest{
		Locations: locations,
		Durations: s.cfg.Bulk.Durations,
		Start:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Lang:      s.cfg.Scheduler.Lang,
		Currency:  "EUR",
	}
}
