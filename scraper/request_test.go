package scraper

import (
	"net/url"
	"testing"
	"time"

	"car_tracker/config"
	"car_tracker/models"
)

func TestLocationTableResolve(t *testing.T) {
	table := NewLocationTable([]config.Location{
		{Name: "Sagres", Code: "SGR01", Aliases: []string{"Sagres Vila"}},
	})

	cases := []struct {
		name string
		code string
		ok   bool
	}{
		{"Faro Airport", "FAO02", true},
		{"  ALBUFEIRA   cidade ", "ABF01", true},
		{"Lisbon", "LIS01", true},
		{"sagres vila", "SGR01", true},
		{"Atlantis", DefaultLocationCode, false},
		{"", DefaultLocationCode, false},
	}
	for _, tc := range cases {
		code, ok := table.Resolve(tc.name)
		if code != tc.code || ok != tc.ok {
			t.Errorf("Resolve(%q) = %s, %v; want %s, %v", tc.name, code, ok, tc.code, tc.ok)
		}
	}
}

func TestRequestBuilderBuild(t *testing.T) {
	b := NewRequestBuilder(NewLocationTable(nil))
	b.newID = func() string { return "corr-1" }

	sr := b.Build(models.ListingRequest{
		Location: "Albufeira",
		Pickup:   time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC),
		Return:   time.Date(2025, 7, 8, 18, 0, 0, 0, time.UTC),
		Language: "EN",
		Currency: "gbp",
	})

	if sr.URL != "https://www.carjet.com/do/list/en" {
		t.Errorf("unexpected URL %s", sr.URL)
	}
	if !sr.Resolved || sr.Request.LocationCode != "ABF01" {
		t.Errorf("expected resolved ABF01, got %s (%v)", sr.Request.LocationCode, sr.Resolved)
	}
	if sr.CorrelationID != "corr-1" {
		t.Errorf("unexpected correlation id %s", sr.CorrelationID)
	}

	want := map[string]string{
		"pickupId":             "ABF01",
		"dst_id":               "ABF01",
		"fechaRecogida":        "01/07/2025",
		"fechaEntrega":         "08/07/2025",
		"fechaRecogidaSelHour": "09:30",
		"fechaEntregaSelHour":  "18:00",
		"frmFechaRecogida":     "01/07/2025 09:30",
		"frmFechaDevolucion":   "08/07/2025 18:00",
		"idioma":               "EN",
		"moneda":               "GBP",
		"frmMoneda":            "GBP",
		"chkOneWay":            "SI",
		"frmTipoVeh":           "CAR",
		"frmSession":           "corr-1",
	}
	for field, v := range want {
		if got := sr.Form.Get(field); got != v {
			t.Errorf("form %s = %q, want %q", field, got, v)
		}
	}

	target := sr.Target()
	if target.URL != sr.URL || target.Form.Get("pickupId") != "ABF01" {
		t.Errorf("target does not carry the request: %+v", target)
	}
}

func TestRequestBuilderDefaults(t *testing.T) {
	b := NewRequestBuilder(NewLocationTable(nil))
	sr := b.Build(models.ListingRequest{
		Location: "Nowhere",
		Pickup:   time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		Return:   time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC),
	})

	if sr.Resolved {
		t.Error("unknown location should not resolve")
	}
	if sr.Form.Get("pickupId") != DefaultLocationCode {
		t.Errorf("expected default code, got %s", sr.Form.Get("pickupId"))
	}
	if sr.URL != "https://www.carjet.com/do/list/pt" || sr.Form.Get("moneda") != "EUR" {
		t.Errorf("expected pt/EUR defaults, got %s %s", sr.URL, sr.Form.Get("moneda"))
	}
}

func TestCacheKeyURLIgnoresCorrelationID(t *testing.T) {
	b := NewRequestBuilder(NewLocationTable(nil))
	req := models.ListingRequest{
		Location: "Faro",
		Pickup:   time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		Return:   time.Date(2025, 7, 4, 10, 0, 0, 0, time.UTC),
	}

	first, second := b.Build(req), b.Build(req)
	if first.CorrelationID == second.CorrelationID {
		t.Fatal("expected a fresh correlation id per build")
	}
	if first.CacheKeyURL() != second.CacheKeyURL() {
		t.Errorf("cache keys differ:\n%s\n%s", first.CacheKeyURL(), second.CacheKeyURL())
	}

	u, err := url.Parse(first.CacheKeyURL())
	if err != nil {
		t.Fatalf("cache key is not a URL: %v", err)
	}
	if u.Query().Has(correlField) {
		t.Error("cache key carries the correlation id")
	}
	if u.Query().Get("fechaEntrega") != "04/07/2025" {
		t.Errorf("cache key lost the form: %s", u.RawQuery)
	}

	req.Return = req.Return.AddDate(0, 0, 1)
	if b.Build(req).CacheKeyURL() == first.CacheKeyURL() {
		t.Error("different searches share a cache key")
	}
}
