package extractor

import (
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"car_tracker/models"
)

// Strategy names, reported by ExtractWithStrategy.
const (
	StrategyEmbedded = "embedded"
	StrategyCards    = "cards"
	StrategyFallback = "fallback"
	StrategyNone     = "none"
)

// Extract parses a results page into raw listings. It never fails: malformed
// or unrecognized input yields an empty slice.
func Extract(html, baseURL string) []models.RawListing {
	items, _ := ExtractWithStrategy(html, baseURL)
	return items
}

// ExtractWithStrategy is Extract plus the name of the strategy that produced
// the rows. Named rows from any strategy win over embedded summary rows.
func ExtractWithStrategy(html, baseURL string) (items []models.RawListing, strategy string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[extract] recovered from panic: %v", r)
			items, strategy = []models.RawListing{}, StrategyNone
		}
	}()

	if strings.TrimSpace(html) == "" {
		return []models.RawListing{}, StrategyNone
	}

	base, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		base = nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return []models.RawListing{}, StrategyNone
	}
	pageTrans := pageTransmission(doc)

	embedded := filter(extractEmbedded(html, base, pageTrans))
	if named := namedOnly(embedded); len(named) > 0 {
		return named, StrategyEmbedded
	}

	cards := filter(extractCards(doc, base, pageTrans))
	if named := namedOnly(cards); len(named) > 0 {
		return named, StrategyCards
	}

	fallback := filter(extractFallback(doc, base, pageTrans))
	if named := namedOnly(fallback); len(named) > 0 {
		return named, StrategyFallback
	}

	if len(embedded) > 0 {
		return embedded, StrategyEmbedded
	}
	if len(cards) > 0 {
		return cards, StrategyCards
	}
	if len(fallback) > 0 {
		return fallback, StrategyFallback
	}
	return []models.RawListing{}, StrategyNone
}

// HasListings reports whether the page carries any listing container: a
// result card or inline offer data.
func HasListings(html string) bool {
	if hasEmbedded(html) {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return hasCards(doc)
}

// filter drops unpriced rows and excluded models.
func filter(items []models.RawListing) []models.RawListing {
	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.PriceText) == "" {
			continue
		}
		if it.Car != "" && Blocked(it.Car) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func namedOnly(items []models.RawListing) []models.RawListing {
	var out []models.RawListing
	for _, it := range items {
		if it.Named() {
			out = append(out, it)
		}
	}
	return out
}

func baseLink(base *url.URL) string {
	if base == nil {
		return ""
	}
	return base.String()
}
