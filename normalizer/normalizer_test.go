package normalizer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car_tracker/config"
	"car_tracker/models"
)

func listing(supplier, car, price, category string) models.ClassifiedListing {
	return models.ClassifiedListing{
		RawListing: models.RawListing{Supplier: supplier, Car: car, PriceText: price},
		Category:   category,
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.010,29 €", 1010.29, true},
		{"1010.29", 1010.29, true},
		{"35,00 €", 35, true},
		{"£50.00", 50, true},
		{"€ 1 234,50", 1234.5, true},
		{"12 345,00 €", 12345, true},
		{"1,234.56", 1234.56, true},
		{"1.234.567", 1234567, true},
		{"1,234,567", 1234567, true},
		{"Total 99, taxas incluídas", 99, true},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		require.Equal(t, tc.ok, ok, "ParseAmount(%q) ok", tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, "ParseAmount(%q)", tc.in)
	}
}

func TestFormatEUR(t *testing.T) {
	cases := map[float64]string{
		1234.56:     "1.234,56 €",
		40.5:        "40,50 €",
		0:           "0,00 €",
		999.999:     "1.000,00 €",
		1234567.891: "1.234.567,89 €",
		-5.5:        "-5,50 €",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatEUR(in), "FormatEUR(%v)", in)
	}
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, "EUR", DetectCurrency("35,00 €"))
	assert.Equal(t, "EUR", DetectCurrency("EUR 35"))
	assert.Equal(t, "GBP", DetectCurrency("£50.00"))
	assert.Equal(t, "GBP", DetectCurrency("50 gbp"))
	assert.Equal(t, "", DetectCurrency("50.00"))
}

func TestNormalizeAdjustsConfiguredSource(t *testing.T) {
	n := New(config.PricingConfig{AdjustmentPct: 10, OffsetEUR: 2, AdjustHost: "carjet.com", TargetCurr: "EUR"}, StaticRates(1.16))

	out := n.Normalize(context.Background(), []models.ClassifiedListing{
		listing("Sixt", "Renault Clio", "35,00 €", "Economy"),
	}, Source{URL: "https://www.carjet.com/do/list/pt"})

	require.Len(t, out, 1)
	row := out[0]
	require.NotNil(t, row.PriceNum)
	assert.InDelta(t, 40.5, *row.PriceNum, 1e-9)
	assert.Equal(t, "40,50 €", row.PriceText)
	assert.Equal(t, "EUR", row.Currency)
	require.NotNil(t, row.OriginalPrice)
	assert.InDelta(t, 35, *row.OriginalPrice, 1e-9)
	assert.Equal(t, "35,00 €", row.OriginalPriceText)
}

func TestNormalizeSkipsOtherSources(t *testing.T) {
	n := New(config.PricingConfig{AdjustmentPct: 10, OffsetEUR: 2, AdjustHost: "carjet.com", TargetCurr: "EUR"}, StaticRates(1.16))

	out := n.Normalize(context.Background(), []models.ClassifiedListing{
		listing("Sixt", "Renault Clio", "35,00 €", "Economy"),
	}, Source{URL: "https://notcarjet.example/list"})

	require.Len(t, out, 1)
	assert.InDelta(t, 35, *out[0].PriceNum, 1e-9)
	assert.Equal(t, "35,00 €", out[0].PriceText)
	assert.Nil(t, out[0].OriginalPrice)
}

func TestNormalizeConvertsGBP(t *testing.T) {
	n := New(config.PricingConfig{TargetCurr: "EUR"}, StaticRates(1.16))

	out := n.Normalize(context.Background(), []models.ClassifiedListing{
		listing("Hertz", "Toyota Yaris", "£50.00", "Mini Automatic"),
	}, Source{})

	require.Len(t, out, 1)
	assert.Equal(t, "58,00 €", out[0].PriceText)
	assert.Equal(t, "EUR", out[0].Currency)
	assert.InDelta(t, 58, *out[0].PriceNum, 1e-9)
	assert.Equal(t, "£50.00", out[0].OriginalPriceText)
}

func TestNormalizeKeepsUnparsableRows(t *testing.T) {
	n := New(config.PricingConfig{}, nil)

	out := n.Normalize(context.Background(), []models.ClassifiedListing{
		listing("Avis", "Fiat 500", "sob consulta", "Mini"),
	}, Source{Currency: "eur"})

	require.Len(t, out, 1)
	assert.False(t, out[0].HasPrice())
	assert.Equal(t, "EUR", out[0].Currency)
	assert.Equal(t, "sob consulta", out[0].PriceText)
}

func TestNormalizeDeduplicates(t *testing.T) {
	n := New(config.PricingConfig{}, nil)

	out := n.Normalize(context.Background(), []models.ClassifiedListing{
		listing("Sixt", "VW Polo", "30,00 €", "Economy"),
		listing("sixt", "Volkswagen Polo ou similar", "30,00 €", "Economy"),
		listing("Sixt", "VW Polo", "31,00 €", "Economy"),
	}, Source{})

	assert.Len(t, out, 2)
}

func TestNormalizeSorts(t *testing.T) {
	n := New(config.PricingConfig{}, nil)

	out := n.Normalize(context.Background(), []models.ClassifiedListing{
		listing("Avis", "Fiat 500", "20,00 €", "Mini"),
		listing("Europcar", "Peugeot 208", "sob consulta", "Economy"),
		listing("Goldcar", "Renault Clio", "25,00 €", "Economy"),
		listing("Sixt", "Seat Ibiza", "40,00 €", "Economy"),
		listing("Budget", "Opel Corsa", "18,00 €", "Economy"),
		listing("Sixt", "Dacia Duster", "50,00 €", "SUV"),
	}, Source{SupplierPriority: "SIXT"})

	var got []string
	for _, r := range out {
		got = append(got, r.Car)
	}
	assert.Equal(t, []string{
		"Seat Ibiza", "Dacia Duster", // priority supplier
		"Opel Corsa", "Renault Clio", "Peugeot 208", // Economy by price, unparsable last
		"Fiat 500",
	}, got)
}

func newFXServer(t *testing.T, status *atomic.Int32, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("base") != "GBP" || r.URL.Query().Get("symbols") != "EUR" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		if code := int(status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"GBP","rates":{"EUR":1.2}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFXProviderCachesAndFallsBack(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusOK)
	srv := newFXServer(t, &status, &hits)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := NewFXProvider(config.FXConfig{URL: srv.URL, TTL: time.Hour, FallbackRate: 1.16}, resty.New())
	p.now = func() time.Time { return now }
	ctx := context.Background()

	assert.InDelta(t, 1.2, p.Rate(ctx, "GBP", "EUR"), 1e-9)
	assert.InDelta(t, 1.2, p.Rate(ctx, "gbp", "eur"), 1e-9)
	assert.Equal(t, int32(1), hits.Load(), "fresh rate should come from cache")

	// stale and the service is down: last good value
	now = now.Add(2 * time.Hour)
	status.Store(http.StatusInternalServerError)
	assert.InDelta(t, 1.2, p.Rate(ctx, "GBP", "EUR"), 1e-9)
	assert.Equal(t, int32(2), hits.Load())

	assert.Equal(t, float64(1), p.Rate(ctx, "EUR", "EUR"))
}

func TestFXProviderFallbackConstant(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	srv := newFXServer(t, &status, &hits)

	p := NewFXProvider(config.FXConfig{URL: srv.URL, TTL: time.Hour}, nil)
	assert.InDelta(t, 1.16, p.Rate(context.Background(), "GBP", "EUR"), 1e-9)
}

func TestNormalizeFetchesRateOncePerBatchDuringOutage(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	srv := newFXServer(t, &status, &hits)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := NewFXProvider(config.FXConfig{URL: srv.URL, TTL: time.Hour, RetryAfter: 5 * time.Minute, FallbackRate: 1.16}, resty.New())
	p.now = func() time.Time { return now }
	n := New(config.PricingConfig{}, p)

	items := make([]models.ClassifiedListing, 10)
	for i := range items {
		items[i] = listing("Sixt", fmt.Sprintf("Car %d", i), "£50.00", "Economy")
	}

	out := n.Normalize(context.Background(), items, Source{})
	require.Len(t, out, 10)
	assert.Equal(t, "58,00 €", out[0].PriceText)
	assert.Equal(t, int32(1), hits.Load(), "one rate request per batch")

	// a second batch inside the retry window does not hit the service again
	n.Normalize(context.Background(), items, Source{})
	assert.Equal(t, int32(1), hits.Load())

	// once the window has passed and the service is back, the rate refreshes
	now = now.Add(6 * time.Minute)
	status.Store(http.StatusOK)
	out = n.Normalize(context.Background(), items[:1], Source{})
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "60,00 €", out[0].PriceText)
}

func TestFXProviderSharesConcurrentRefresh(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"GBP","rates":{"EUR":1.2}}`))
	}))
	t.Cleanup(srv.Close)

	p := NewFXProvider(config.FXConfig{URL: srv.URL, TTL: time.Hour}, resty.New())

	var wg sync.WaitGroup
	rates := make([]float64, 8)
	for i := range rates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rates[i] = p.Rate(context.Background(), "GBP", "EUR")
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range rates {
		assert.InDelta(t, 1.2, r, 1e-9)
	}
	assert.Equal(t, int32(1), hits.Load())
}
