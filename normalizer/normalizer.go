package normalizer

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"car_tracker/config"
	"car_tracker/identity"
	"car_tracker/models"
)

// Source describes where a batch of listings came from.
type Source struct {
	URL              string
	Currency         string // assumed when a price text has no marker
	SupplierPriority string
}

type Normalizer struct {
	pricing config.PricingConfig
	rates   RateProvider
}

func New(pricing config.PricingConfig, rates RateProvider) *Normalizer {
	if pricing.TargetCurr == "" {
		pricing.TargetCurr = "EUR"
	}
	if rates == nil {
		rates = StaticRates(1.16)
	}
	return &Normalizer{pricing: pricing, rates: rates}
}

// Normalize converts, adjusts, deduplicates and sorts a batch. Each source
// currency is looked up once per batch.
func (n *Normalizer) Normalize(ctx context.Context, items []models.ClassifiedListing, src Source) []models.NormalizedListing {
	adjust := n.adjusts(src.URL)
	rates := make(map[string]float64)
	rate := func(cur string) float64 {
		r, ok := rates[cur]
		if !ok {
			r = n.rates.Rate(ctx, cur, n.pricing.TargetCurr)
			rates[cur] = r
		}
		return r
	}

	seen := make(map[string]bool, len(items))
	out := make([]models.NormalizedListing, 0, len(items))
	for _, it := range items {
		row := n.normalizeOne(it, src, adjust, rate)

		key := identity.ListingKey(row.Supplier, row.Car, row.PriceText)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}

	Sort(out, src.SupplierPriority)
	return out
}

func (n *Normalizer) normalizeOne(it models.ClassifiedListing, src Source, adjust bool, rate func(string) float64) models.NormalizedListing {
	row := models.NormalizedListing{ClassifiedListing: it}
	text := strings.TrimSpace(it.PriceText)
	row.PriceText = text

	cur := DetectCurrency(text)
	if cur == "" {
		cur = strings.ToUpper(src.Currency)
	}
	if cur == "" {
		cur = n.pricing.TargetCurr
	}
	row.Currency = cur

	amt, ok := ParseAmount(text)
	if !ok {
		return row
	}
	orig := amt

	target := n.pricing.TargetCurr
	if cur != target {
		amt = round2(amt * rate(cur))
		cur = target
	}
	if adjust && cur == "EUR" {
		amt = round2(amt*(1+n.pricing.AdjustmentPct/100) + n.pricing.OffsetEUR)
	}

	if amt != orig || cur != row.Currency {
		row.OriginalPrice = &orig
		row.OriginalPriceText = text
		row.PriceText = FormatPrice(amt, cur)
		row.Currency = cur
	}
	row.PriceNum = &amt
	return row
}

// adjusts reports whether the price adjustment applies to listings from u.
func (n *Normalizer) adjusts(u string) bool {
	if n.pricing.AdjustmentPct == 0 && n.pricing.OffsetEUR == 0 {
		return false
	}
	host := n.pricing.AdjustHost
	if host == "" {
		return false
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	h := strings.ToLower(parsed.Hostname())
	return h == host || strings.HasSuffix(h, "."+host)
}

// Sort orders rows by supplier priority, then category, then price. Rows
// without a price go last within their group. The sort is stable.
func Sort(items []models.NormalizedListing, supplierPriority string) {
	prio := strings.ToLower(strings.TrimSpace(supplierPriority))
	rank := func(l models.NormalizedListing) int {
		if prio != "" && strings.Contains(strings.ToLower(l.Supplier), prio) {
			return 0
		}
		return 1
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra < rb
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		switch {
		case a.PriceNum == nil:
			return false
		case b.PriceNum == nil:
			return true
		}
		return *a.PriceNum < *b.PriceNum
	})
}
