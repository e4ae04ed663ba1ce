package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car_tracker/config"
	"car_tracker/models"
	"car_tracker/services"
)

type fakeTracker struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration

	mu    sync.Mutex
	calls map[string]int
	// respond decides the outcome of the n-th call (1-based) for a unit
	respond func(p services.TrackParams, n int) (models.TrackResult, error)
}

func (f *fakeTracker) TrackListings(ctx context.Context, p services.TrackParams) (models.TrackResult, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if cur <= seen || f.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	key := fmt.Sprintf("%s/%d", p.Location, p.Days)
	f.calls[key]++
	n := f.calls[key]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.respond(p, n)
}

func (f *fakeTracker) callsFor(loc string, days int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[fmt.Sprintf("%s/%d", loc, days)]
}

func found(p services.TrackParams) models.TrackResult {
	car := fmt.Sprintf("%s %dd", p.Location, p.Days)
	return models.TrackResult{
		Items:  []models.NormalizedListing{{ClassifiedListing: models.ClassifiedListing{RawListing: models.RawListing{Car: car}}}},
		Timing: models.UnitTiming{FetchMS: 10, ParseMS: 2, Attempts: 1},
	}
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

type memRuns struct {
	mu      sync.Mutex
	created []models.BulkRun
	done    []models.BulkRun
	logs    []string
}

func (m *memRuns) CreateRun(_ context.Context, run *models.BulkRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *run)
	return nil
}

func (m *memRuns) FinishRun(_ context.Context, run *models.BulkRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = append(m.done, *run)
	return nil
}

func (m *memRuns) Log(_ context.Context, _ string, level models.LogLevel, message, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, string(level)+" "+location+" "+message)
	return nil
}

func TestBulkRespectsConcurrencyLimit(t *testing.T) {
	tr := &fakeTracker{
		delay:   30 * time.Millisecond,
		respond: func(p services.TrackParams, _ int) (models.TrackResult, error) { return found(p), nil },
	}
	o := NewBulkOrchestrator(tr, config.BulkConfig{Concurrency: 2, MaxRetries: 2}, nil)

	res := o.BulkTrackListings(context.Background(), BulkRequest{
		Locations: []string{"Faro"},
		Durations: []int{1, 2, 3, 4, 5},
		Start:     time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})

	require.Len(t, res.Results, 1)
	require.Len(t, res.Results[0].Durations, 5)
	for _, u := range res.Results[0].Durations {
		assert.Equal(t, 1, u.Count)
		assert.Empty(t, u.Error)
	}
	assert.LessOrEqual(t, tr.maxSeen.Load(), int32(2))
	assert.Equal(t, int32(2), tr.maxSeen.Load(), "expected the limit to be reached")
}

func TestBulkPreservesInputOrder(t *testing.T) {
	tr := &fakeTracker{
		respond: func(p services.TrackParams, _ int) (models.TrackResult, error) {
			// later units finish first
			time.Sleep(time.Duration(60-p.Days) * time.Millisecond / 10)
			return found(p), nil
		},
	}
	o := NewBulkOrchestrator(tr, config.BulkConfig{Concurrency: 6, MaxRetries: 1}, nil)

	locations := []string{"Porto", "Faro", "Albufeira"}
	durations := []int{7, 1, 31, 3}
	res := o.BulkTrackListings(context.Background(), BulkRequest{Locations: locations, Durations: durations, Start: time.Now()})

	require.Len(t, res.Results, 3)
	for i, loc := range locations {
		assert.Equal(t, loc, res.Results[i].Location)
		require.Len(t, res.Results[i].Durations, len(durations))
		for j, d := range durations {
			u := res.Results[i].Durations[j]
			assert.Equal(t, d, u.Days)
			require.Len(t, u.Items, 1)
			assert.Equal(t, fmt.Sprintf("%s %dd", loc, d), u.Items[0].Car)
		}
	}

	u, ok := res.Unit("Faro", 31)
	require.True(t, ok)
	assert.Equal(t, "Faro 31d", u.Items[0].Car)
}

func TestBulkRetriesWithLinearBackoff(t *testing.T) {
	tr := &fakeTracker{
		respond: func(p services.TrackParams, n int) (models.TrackResult, error) {
			if p.Days == 2 && n < 3 {
				if n == 1 {
					return models.TrackResult{}, fmt.Errorf("connection reset")
				}
				return models.TrackResult{Items: []models.NormalizedListing{}, Note: "empty"}, nil
			}
			return found(p), nil
		},
	}

	var mu sync.Mutex
	var delays []time.Duration
	o := NewBulkOrchestrator(tr, config.BulkConfig{Concurrency: 2, MaxRetries: 3, Backoff: 300 * time.Millisecond}, nil)
	o.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		delays = append(delays, d)
		return nil
	}

	res := o.BulkTrackListings(context.Background(), BulkRequest{Locations: []string{"Faro"}, Durations: []int{1, 2}, Start: time.Now()})

	u, ok := res.Unit("Faro", 2)
	require.True(t, ok)
	assert.Empty(t, u.Error)
	assert.Equal(t, 1, u.Count)
	assert.Equal(t, 3, u.Timing.Attempts)
	assert.Equal(t, int64(10), u.Timing.FetchMS)
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 600 * time.Millisecond}, delays)
	assert.Equal(t, 1, tr.callsFor("Faro", 1))
}

func TestBulkUnitFailureDoesNotAffectSiblings(t *testing.T) {
	tr := &fakeTracker{
		respond: func(p services.TrackParams, _ int) (models.TrackResult, error) {
			if p.Location == "Lisboa" {
				return models.TrackResult{}, fmt.Errorf("upstream timeout")
			}
			return found(p), nil
		},
	}
	runs := &memRuns{}
	o := NewBulkOrchestrator(tr, config.BulkConfig{Concurrency: 3, MaxRetries: 2}, runs)
	o.sleep = noSleep

	res := o.BulkTrackListings(context.Background(), BulkRequest{Locations: []string{"Faro", "Lisboa"}, Durations: []int{1, 3}, Start: time.Now()})

	for _, d := range []int{1, 3} {
		bad, _ := res.Unit("Lisboa", d)
		assert.Equal(t, "upstream timeout", bad.Error)
		assert.NotNil(t, bad.Items)
		assert.Empty(t, bad.Items)
		assert.Equal(t, 2, bad.Timing.Attempts)
		assert.Equal(t, 2, tr.callsFor("Lisboa", d))

		good, _ := res.Unit("Faro", d)
		assert.Empty(t, good.Error)
		assert.Equal(t, 1, good.Count)
	}

	require.Len(t, runs.created, 1)
	require.Len(t, runs.done, 1)
	assert.Equal(t, res.RunID, runs.done[0].ID)
	assert.Equal(t, 4, runs.done[0].Units)
	assert.Equal(t, 2, runs.done[0].UnitsFailed)
	assert.Equal(t, 2, runs.done[0].ItemsFound)
	assert.Equal(t, models.RunStatusCompleted, runs.done[0].Status)
	assert.NotEmpty(t, runs.logs)
}

func TestBulkDoesNotRetryInvalidRequests(t *testing.T) {
	tr := &fakeTracker{
		respond: func(p services.TrackParams, _ int) (models.TrackResult, error) {
			return models.TrackResult{}, fmt.Errorf("%w: location is required", services.ErrInvalidRequest)
		},
	}
	o := NewBulkOrchestrator(tr, config.BulkConfig{Concurrency: 1, MaxRetries: 3}, nil)
	o.sleep = noSleep

	res := o.BulkTrackListings(context.Background(), BulkRequest{Locations: []string{""}, Durations: []int{1}, Start: time.Now()})

	u, _ := res.Unit("", 1)
	assert.Contains(t, u.Error, "invalid request")
	assert.Equal(t, 1, u.Timing.Attempts)
	assert.Equal(t, 1, tr.callsFor("", 1))
}

func TestBulkDefaultsDurations(t *testing.T) {
	tr := &fakeTracker{respond: func(p services.TrackParams, _ int) (models.TrackResult, error) { return found(p), nil }}
	o := NewBulkOrchestrator(tr, config.BulkConfig{Concurrency: 4}, nil)

	res := o.BulkTrackListings(context.Background(), BulkRequest{Locations: []string{"Faro"}, Start: time.Now()})
	require.Len(t, res.Results, 1)
	assert.Len(t, res.Results[0].Durations, len(config.DefaultDurations))
}
