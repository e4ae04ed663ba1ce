package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"car_tracker/cache"
	"car_tracker/models"
	"car_tracker/normalizer"
	"car_tracker/scraper"
	"car_tracker/storage"
)

var ErrInvalidRequest = errors.New("invalid request")

const (
	dateLayout       = "2006-01-02"
	timeLayout       = "15:04"
	defaultStartTime = "10:00"
)

// TrackParams is a single search as callers express it.
type TrackParams struct {
	Location         string
	StartDate        string // 2006-01-02
	StartTime        string // 15:04, default 10:00
	EndDate          string
	EndTime          string // defaults to StartTime
	Days             int    // used when EndDate is empty
	Lang             string
	Currency         string
	SupplierPriority string
}

// Request validates p and converts it into a ListingRequest.
func (p TrackParams) Request() (models.ListingRequest, error) {
	loc := strings.TrimSpace(p.Location)
	if loc == "" {
		return models.ListingRequest{}, fmt.Errorf("%w: location is required", ErrInvalidRequest)
	}
	if p.StartDate == "" {
		return models.ListingRequest{}, fmt.Errorf("%w: start date is required", ErrInvalidRequest)
	}

	startTime := orDefault(p.StartTime, defaultStartTime)
	pickup, err := time.Parse(dateLayout+" "+timeLayout, p.StartDate+" "+startTime)
	if err != nil {
		return models.ListingRequest{}, fmt.Errorf("%w: start: %v", ErrInvalidRequest, err)
	}

	var ret time.Time
	switch {
	case p.EndDate != "":
		ret, err = time.Parse(dateLayout+" "+timeLayout, p.EndDate+" "+orDefault(p.EndTime, startTime))
		if err != nil {
			return models.ListingRequest{}, fmt.Errorf("%w: end: %v", ErrInvalidRequest, err)
		}
	case p.Days > 0:
		ret = pickup.AddDate(0, 0, p.Days)
	default:
		return models.ListingRequest{}, fmt.Errorf("%w: end date or days is required", ErrInvalidRequest)
	}

	req := models.ListingRequest{
		Location:         loc,
		Pickup:           pickup,
		Return:           ret,
		Language:         p.Lang,
		Currency:         p.Currency,
		SupplierPriority: p.SupplierPriority,
	}
	if err := req.Validate(); err != nil {
		return models.ListingRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return req, nil
}

// Tracker answers single searches, consulting the cache first and recording
// price snapshots for fresh non-empty results.
type Tracker struct {
	builder  *scraper.RequestBuilder
	pipeline *Pipeline
	cache    *cache.Cache
	sink     storage.SnapshotSink
}

func NewTracker(builder *scraper.RequestBuilder, pipeline *Pipeline, c *cache.Cache, sink storage.SnapshotSink) *Tracker {
	if sink == nil {
		sink = storage.NopSink{}
	}
	return &Tracker{builder: builder, pipeline: pipeline, cache: c, sink: sink}
}

func (t *Tracker) TrackListings(ctx context.Context, p TrackParams) (models.TrackResult, error) {
	req, err := p.Request()
	if err != nil {
		return models.TrackResult{}, err
	}

	search := t.builder.Build(req)
	if !search.Resolved {
		log.Printf("[track] unknown location %q, using %s", req.Location, search.Request.LocationCode)
	}
	req = search.Request
	days := req.Days()

	base := models.TrackResult{
		Location:  req.Location,
		StartDate: req.Pickup.Format(dateLayout),
		StartTime: req.Pickup.Format(timeLayout),
		EndDate:   req.Return.Format(dateLayout),
		EndTime:   req.Return.Format(timeLayout),
		Days:      days,
	}

	key := search.CacheKeyURL()
	if hit, ok := t.cache.Get(key); ok {
		log.Printf("[track] cache hit for %s %s %dd", req.Location, base.StartDate, days)
		return hit, nil
	}

	hints := scraper.Hints{
		Lang:     req.Language,
		Currency: req.Currency,
		Tag:      fmt.Sprintf("%s-%s-%dd", req.Location, base.StartDate, days),
	}
	src := normalizer.Source{URL: search.URL, Currency: req.Currency, SupplierPriority: req.SupplierPriority}
	out := t.pipeline.Run(ctx, search.Target(), hints, src)

	res := base
	res.Items = out.Items
	res.Timing = out.Timing
	if len(res.Items) == 0 {
		res.Items = []models.NormalizedListing{}
		res.Note = out.Note
		return res, nil
	}

	snapKey := models.SnapshotKey{Location: req.Location, Pickup: req.Pickup, Days: days}
	if err := t.sink.SaveSnapshots(ctx, snapKey, req.Currency, res.Items); err != nil {
		log.Printf("[track] failed to save snapshots for %s: %v", hints.Tag, err)
	}
	t.cache.Set(key, res)
	return res, nil
}

// TrackURL runs the pipeline against an already-built results URL.
func (t *Tracker) TrackURL(ctx context.Context, rawURL, supplierPriority string) (models.TrackResult, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.TrackResult{}, fmt.Errorf("%w: not an absolute http(s) url: %q", ErrInvalidRequest, rawURL)
	}

	if hit, ok := t.cache.Get(u.String()); ok {
		return hit, nil
	}

	out := t.pipeline.Run(ctx, scraper.Target{URL: u.String()}, scraper.Hints{Tag: u.Host + u.Path},
		normalizer.Source{URL: u.String(), SupplierPriority: supplierPriority})

	res := models.TrackResult{Items: out.Items, Timing: out.Timing}
	if len(res.Items) == 0 {
		res.Items = []models.NormalizedListing{}
		res.Note = out.Note
		return res, nil
	}
	t.cache.Set(u.String(), res)
	return res, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}
