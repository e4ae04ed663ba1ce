package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// BulkRun is the bookkeeping row for one bulk invocation.
type BulkRun struct {
	ID          string     `json:"id" db:"id"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at" db:"finished_at"`
	Status      RunStatus  `json:"status" db:"status"`
	Units       int        `json:"units" db:"units"`
	UnitsFailed int        `json:"units_failed" db:"units_failed"`
	ItemsFound  int        `json:"items_found" db:"items_found"`
}

type UnitTiming struct {
	FetchMS  int64 `json:"fetch_ms"`
	ParseMS  int64 `json:"parse_ms"`
	Attempts int   `json:"attempts"`
}

// UnitResult is the outcome for one (location, duration) pair.
type UnitResult struct {
	Days   int                 `json:"days"`
	Count  int                 `json:"count"`
	Items  []NormalizedListing `json:"items"`
	Error  string              `json:"error,omitempty"`
	Timing UnitTiming          `json:"timing"`
}

type LocationResult struct {
	Location  string       `json:"location"`
	Durations []UnitResult `json:"durations"`
}

type BulkResult struct {
	RunID   string           `json:"run_id"`
	Results []LocationResult `json:"results"`
}

// Unit looks up a result by location and duration.
func (b BulkResult) Unit(location string, days int) (UnitResult, bool) {
	for _, loc := range b.Results {
		if loc.Location != location {
			continue
		}
		for _, u := range loc.Durations {
			if u.Days == days {
				return u, true
			}
		}
	}
	return UnitResult{}, false
}

// TrackResult answers a single search.
type TrackResult struct {
	Items     []NormalizedListing `json:"items"`
	Location  string              `json:"location"`
	StartDate string              `json:"start_date"`
	StartTime string              `json:"start_time"`
	EndDate   string              `json:"end_date"`
	EndTime   string              `json:"end_time"`
	Days      int                 `json:"days"`
	Note      string              `json:"note,omitempty"`
	Cached    bool                `json:"cached,omitempty"`
	Timing    UnitTiming          `json:"timing"`
}
