package normalizer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"

	"car_tracker/config"
	"car_tracker/models"
)

// RateProvider converts between currencies. Rate never fails; callers always
// get a usable multiplier.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) float64
}

// FXProvider fetches exchange rates over HTTP and keeps the last good value
// per pair. A pair is refreshed at most once per ttl, and after a failed
// refresh not again before retryAfter. Concurrent callers share one request.
type FXProvider struct {
	client     *resty.Client
	url        string
	ttl        time.Duration
	retryAfter time.Duration
	fallback   float64
	now        func() time.Time
	group      singleflight.Group

	mu     sync.Mutex
	rates  map[string]models.FXRate
	failed map[string]time.Time
}

type fxResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func NewFXProvider(cfg config.FXConfig, client *resty.Client) *FXProvider {
	if client == nil {
		client = resty.New().SetTimeout(5 * time.Second)
	}
	fallback := cfg.FallbackRate
	if fallback <= 0 {
		fallback = 1.16
	}
	retryAfter := cfg.RetryAfter
	if retryAfter <= 0 {
		retryAfter = time.Minute
	}
	return &FXProvider{
		client:     client,
		url:        cfg.URL,
		ttl:        cfg.TTL,
		retryAfter: retryAfter,
		fallback:   fallback,
		now:        time.Now,
		rates:      make(map[string]models.FXRate),
		failed:     make(map[string]time.Time),
	}
}

func (p *FXProvider) Rate(ctx context.Context, from, to string) float64 {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1
	}
	pair := from + "->" + to

	if rate, ok := p.cached(pair); ok {
		return rate
	}

	v, _, _ := p.group.Do(pair, func() (any, error) {
		if rate, ok := p.cached(pair); ok {
			return rate, nil
		}
		fresh, err := p.Fetch(context.WithoutCancel(ctx), from, to)

		p.mu.Lock()
		defer p.mu.Unlock()
		if err == nil {
			p.rates[pair] = fresh
			delete(p.failed, pair)
			return fresh.Rate, nil
		}
		p.failed[pair] = p.now()
		if last, ok := p.rates[pair]; ok {
			log.Printf("[fx] Refresh of %s failed, using last good rate %.4f: %v", pair, last.Rate, err)
			return last.Rate, nil
		}
		log.Printf("[fx] No rate for %s, using fallback %.4f: %v", pair, p.fallback, err)
		return p.fallback, nil
	})
	return v.(float64)
}

// cached returns the rate to use without a request: a fresh rate, or the
// last good (or fallback) rate while a failed refresh is cooling down.
func (p *FXProvider) cached(pair string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	last, ok := p.rates[pair]
	if ok && now.Sub(last.FetchedAt) < p.ttl {
		return last.Rate, true
	}
	if failedAt, failed := p.failed[pair]; failed && now.Sub(failedAt) < p.retryAfter {
		if ok {
			return last.Rate, true
		}
		return p.fallback, true
	}
	return 0, false
}

// Fetch asks the rate service for one pair.
func (p *FXProvider) Fetch(ctx context.Context, from, to string) (models.FXRate, error) {
	var body fxResponse
	res, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"base": from, "symbols": to}).
		SetResult(&body).
		Get(p.url)
	if err != nil {
		return models.FXRate{}, fmt.Errorf("fx request: %w", err)
	}
	if res.IsError() {
		return models.FXRate{}, fmt.Errorf("fx request: status %d", res.StatusCode())
	}

	rate := body.Rates[to]
	if rate <= 0 {
		return models.FXRate{}, fmt.Errorf("fx response has no %s rate", to)
	}
	return models.FXRate{Pair: from + "->" + to, Rate: rate, FetchedAt: p.now()}, nil
}

// StaticRates is a fixed-rate provider.
type StaticRates float64

func (r StaticRates) Rate(_ context.Context, from, to string) float64 {
	if strings.EqualFold(from, to) {
		return 1
	}
	return float64(r)
}
