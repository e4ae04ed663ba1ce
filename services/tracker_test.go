package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car_tracker/cache"
	"car_tracker/config"
	"car_tracker/models"
	"car_tracker/normalizer"
	"car_tracker/scraper"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return string(data)
}

type fakeFetcher struct {
	mu      sync.Mutex
	result  scraper.Result
	targets []scraper.Target
}

func (f *fakeFetcher) Fetch(_ context.Context, target scraper.Target, _ scraper.Hints) scraper.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	return f.result
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.targets)
}

type recordingSink struct {
	mu    sync.Mutex
	keys  []models.SnapshotKey
	items int
	rows  []models.PriceSnapshot
}

func (r *recordingSink) SaveSnapshots(_ context.Context, key models.SnapshotKey, currency string, items []models.NormalizedListing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	r.items += len(items)
	r.rows = append(r.rows, models.Snapshots(key, currency, items, time.Now())...)
	return nil
}

func newTestTracker(f *fakeFetcher, sink *recordingSink) *Tracker {
	pricing := config.PricingConfig{AdjustmentPct: 10, OffsetEUR: 2, AdjustHost: "carjet.com"}
	pipeline := NewPipeline(f, nil, normalizer.New(pricing, normalizer.StaticRates(1.16)))
	return NewTracker(scraper.NewRequestBuilder(scraper.NewLocationTable(nil)), pipeline,
		cache.New(config.CacheConfig{TTL: time.Minute}), sink)
}

func TestTrackListings(t *testing.T) {
	f := &fakeFetcher{result: scraper.Result{HTML: loadFixture(t, "results.html"), Strategy: "direct", Attempts: 1, Accepted: true}}
	sink := &recordingSink{}
	tr := newTestTracker(f, sink)

	res, err := tr.TrackListings(context.Background(), TrackParams{
		Location:  "Faro Airport",
		StartDate: "2025-07-01",
		Days:      3,
	})
	require.NoError(t, err)

	assert.Equal(t, "Faro Airport", res.Location)
	assert.Equal(t, "2025-07-01", res.StartDate)
	assert.Equal(t, "10:00", res.StartTime)
	assert.Equal(t, "2025-07-04", res.EndDate)
	assert.Equal(t, 3, res.Days)
	assert.Empty(t, res.Note)
	require.Len(t, res.Items, 2)

	clio := res.Items[0]
	assert.Equal(t, "Renault Clio", clio.Car)
	assert.Equal(t, "Sixt", clio.Supplier)
	assert.Equal(t, "Economy", clio.Category)
	assert.Equal(t, "40,50 €", clio.PriceText)
	require.NotNil(t, clio.OriginalPrice)
	assert.InDelta(t, 35, *clio.OriginalPrice, 1e-9)
	assert.Equal(t, "Fiat 500", res.Items[1].Car)
	assert.Equal(t, "Mini 4 Doors", res.Items[1].Category)

	require.Len(t, f.targets, 1)
	assert.Equal(t, "FAO02", f.targets[0].Form.Get("pickupId"))
	assert.Equal(t, "01/07/2025", f.targets[0].Form.Get("fechaRecogida"))
	assert.Equal(t, "04/07/2025", f.targets[0].Form.Get("fechaEntrega"))

	require.Len(t, sink.keys, 1)
	assert.Equal(t, 2, sink.items)
	assert.Equal(t, 3, sink.keys[0].Days)
}

func TestTrackListingsUsesCache(t *testing.T) {
	f := &fakeFetcher{result: scraper.Result{HTML: loadFixture(t, "results.html"), Accepted: true}}
	sink := &recordingSink{}
	tr := newTestTracker(f, sink)
	p := TrackParams{Location: "faro", StartDate: "2025-07-01", StartTime: "09:30", EndDate: "2025-07-03"}

	first, err := tr.TrackListings(context.Background(), p)
	require.NoError(t, err)
	second, err := tr.TrackListings(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls(), "second identical search should be served from cache")
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, "09:30", second.EndTime)
	assert.Len(t, sink.keys, 1)
}

func TestTrackListingsEmptyResult(t *testing.T) {
	f := &fakeFetcher{result: scraper.Result{HTML: loadFixture(t, "homepage.html"), Strategy: "browser", Attempts: 4}}
	sink := &recordingSink{}
	tr := newTestTracker(f, sink)
	p := TrackParams{Location: "Lisboa", StartDate: "2025-07-01", Days: 2}

	res, err := tr.TrackListings(context.Background(), p)
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Contains(t, res.Note, "4 attempts")

	// empty results are not cached or recorded
	_, err = tr.TrackListings(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls())
	assert.Empty(t, sink.keys)
}

func TestTrackListingsValidation(t *testing.T) {
	tr := newTestTracker(&fakeFetcher{}, &recordingSink{})
	cases := map[string]TrackParams{
		"missing location": {StartDate: "2025-07-01", Days: 3},
		"missing start":    {Location: "Faro", Days: 3},
		"bad start":        {Location: "Faro", StartDate: "01/07/2025", Days: 3},
		"no end or days":   {Location: "Faro", StartDate: "2025-07-01"},
		"end before start": {Location: "Faro", StartDate: "2025-07-05", EndDate: "2025-07-01"},
		"end equals start": {Location: "Faro", StartDate: "2025-07-05", EndDate: "2025-07-05"},
		"bad end time":     {Location: "Faro", StartDate: "2025-07-05", EndDate: "2025-07-06", EndTime: "25:00"},
	}
	for name, p := range cases {
		_, err := tr.TrackListings(context.Background(), p)
		assert.ErrorIs(t, err, ErrInvalidRequest, name)
	}
}

func TestTrackListingsUnknownLocationDegrades(t *testing.T) {
	f := &fakeFetcher{result: scraper.Result{HTML: loadFixture(t, "results.html"), Accepted: true}}
	tr := newTestTracker(f, &recordingSink{})

	res, err := tr.TrackListings(context.Background(), TrackParams{Location: "Atlantis", StartDate: "2025-07-01", Days: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Items)
	assert.Equal(t, scraper.DefaultLocationCode, f.targets[0].Form.Get("pickupId"))
}

func TestTrackURL(t *testing.T) {
	f := &fakeFetcher{result: scraper.Result{HTML: loadFixture(t, "results.html"), Accepted: true}}
	tr := newTestTracker(f, &recordingSink{})

	_, err := tr.TrackURL(context.Background(), "not a url", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = tr.TrackURL(context.Background(), "ftp://www.carjet.com/x", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	res, err := tr.TrackURL(context.Background(), "https://www.carjet.com/do/list/pt?s=abc", "GREEN")
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Fiat 500", res.Items[0].Car, "priority supplier first")
	require.Len(t, f.targets, 1)
	assert.Empty(t, f.targets[0].Form)
}

func TestTrackListingsSnapshotsKeepConvertedCurrency(t *testing.T) {
	f := &fakeFetcher{result: scraper.Result{HTML: loadFixture(t, "results.html"), Accepted: true}}
	sink := &recordingSink{}
	tr := newTestTracker(f, sink)

	res, err := tr.TrackListings(context.Background(), TrackParams{
		Location:  "Faro Airport",
		StartDate: "2025-07-01",
		Days:      3,
		Currency:  "GBP",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)

	require.Len(t, sink.rows, len(res.Items))
	for i, row := range sink.rows {
		assert.Equal(t, res.Items[i].Currency, row.Currency)
		assert.Equal(t, "EUR", row.Currency, row.Car)
	}
}
