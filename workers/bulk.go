package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"car_tracker/config"
	"car_tracker/models"
	"car_tracker/services"
)

// Tracker runs one search. services.Tracker satisfies it.
type Tracker interface {
	TrackListings(ctx context.Context, p services.TrackParams) (models.TrackResult, error)
}

// RunStore records bulk run bookkeeping. storage.SQLiteStore satisfies it.
type RunStore interface {
	CreateRun(ctx context.Context, run *models.BulkRun) error
	FinishRun(ctx context.Context, run *models.BulkRun) error
	Log(ctx context.Context, runID string, level models.LogLevel, message, location string) error
}

type BulkRequest struct {
	Locations        []string
	Durations        []int // days; config defaults when empty
	Start            time.Time
	PickupTime       string // 15:04, default 10:00
	Lang             string
	Currency         string
	SupplierPriority string
}

// BulkOrchestrator fans (location, duration) units out under a concurrency
// limit and retries each unit independently.
type BulkOrchestrator struct {
	tracker Tracker
	cfg     config.BulkConfig
	runs    RunStore
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewBulkOrchestrator(tracker Tracker, cfg config.BulkConfig, runs RunStore) *BulkOrchestrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if len(cfg.Durations) == 0 {
		cfg.Durations = config.DefaultDurations
	}
	return &BulkOrchestrator{tracker: tracker, cfg: cfg, runs: runs, sleep: sleepCtx}
}

// BulkTrackListings runs every unit and returns results in input order:
// locations as given, durations as given within each location.
func (o *BulkOrchestrator) BulkTrackListings(ctx context.Context, req BulkRequest) models.BulkResult {
	durations := req.Durations
	if len(durations) == 0 {
		durations = o.cfg.Durations
	}

	run := &models.BulkRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
		Units:     len(req.Locations) * len(durations),
	}
	if o.runs != nil {
		if err := o.runs.CreateRun(ctx, run); err != nil {
			log.Printf("[bulk] failed to record run %s: %v", run.ID, err)
		}
	}
	logf := o.logger(ctx, run.ID)
	logf(models.LogLevelInfo, "", fmt.Sprintf("Starting bulk run: %d locations x %d durations, concurrency %d",
		len(req.Locations), len(durations), o.cfg.Concurrency))

	results := make([]models.LocationResult, len(req.Locations))
	for i, loc := range req.Locations {
		results[i] = models.LocationResult{Location: loc, Durations: make([]models.UnitResult, len(durations))}
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for li, loc := range req.Locations {
		for di, days := range durations {
			g.Go(func() error {
				results[li].Durations[di] = o.runUnit(ctx, req, loc, days, logf)
				return nil
			})
		}
	}
	g.Wait()

	for _, lr := range results {
		for _, u := range lr.Durations {
			if u.Error != "" {
				run.UnitsFailed++
			}
			run.ItemsFound += u.Count
		}
	}
	now := time.Now()
	run.FinishedAt = &now
	run.Status = models.RunStatusCompleted
	if run.Units > 0 && run.UnitsFailed == run.Units {
		run.Status = models.RunStatusFailed
	}
	logf(models.LogLevelInfo, "", fmt.Sprintf("Completed: %d units, %d failed, %d listings in %s",
		run.Units, run.UnitsFailed, run.ItemsFound, now.Sub(run.StartedAt).Round(time.Millisecond)))
	if o.runs != nil {
		if err := o.runs.FinishRun(context.WithoutCancel(ctx), run); err != nil {
			log.Printf("[bulk] failed to finish run %s: %v", run.ID, err)
		}
	}

	return models.BulkResult{RunID: run.ID, Results: results}
}

// runUnit retries transient failures (errors and empty results) with linear
// backoff. Invalid requests are not retried.
func (o *BulkOrchestrator) runUnit(ctx context.Context, req BulkRequest, location string, days int, logf LogFunc) models.UnitResult {
	params := services.TrackParams{
		Location:         location,
		StartDate:        req.Start.Format("2006-01-02"),
		StartTime:        req.PickupTime,
		Days:             days,
		Lang:             req.Lang,
		Currency:         req.Currency,
		SupplierPriority: req.SupplierPriority,
	}

	unit := models.UnitResult{Days: days, Items: []models.NormalizedListing{}}
	var lastErr string
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		unit.Timing.Attempts = attempt

		res, err := o.tracker.TrackListings(ctx, params)
		unit.Timing.FetchMS += res.Timing.FetchMS
		unit.Timing.ParseMS += res.Timing.ParseMS
		if err == nil && len(res.Items) > 0 {
			unit.Items = res.Items
			unit.Count = len(res.Items)
			unit.Error = ""
			return unit
		}

		switch {
		case err != nil:
			lastErr = err.Error()
		case res.Note != "":
			lastErr = "no listings: " + res.Note
		default:
			lastErr = "no listings"
		}
		if errors.Is(err, services.ErrInvalidRequest) {
			break
		}

		if attempt < o.cfg.MaxRetries {
			delay := o.cfg.Backoff * time.Duration(attempt)
			logf(models.LogLevelWarn, location, fmt.Sprintf("%dd attempt %d/%d failed: %s, retrying in %s",
				days, attempt, o.cfg.MaxRetries, lastErr, delay))
			if err := o.sleep(ctx, delay); err != nil {
				lastErr = err.Error()
				break
			}
		}
	}

	unit.Error = lastErr
	logf(models.LogLevelError, location, fmt.Sprintf("%dd failed after %d attempts: %s", days, unit.Timing.Attempts, lastErr))
	return unit
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
