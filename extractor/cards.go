package extractor

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"car_tracker/models"
)

// cardSelectors lists result-card patterns, newest markup first. Older
// patterns stay because the upstream still serves them on some locales.
var cardSelectors = []string{
	"section.newcarlist article",
	".newcarlist article",
	"article.car",
	"li.result",
	"li.car",
	".car-item",
	".result-row",
}

// hasCards reports whether any card pattern matches.
func hasCards(doc *goquery.Document) bool {
	for _, sel := range cardSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// extractCards tries each card pattern in priority order and keeps the first
// one that yields priced rows.
func extractCards(doc *goquery.Document, base *url.URL, pageTrans string) []models.RawListing {
	for _, sel := range cardSelectors {
		var out []models.RawListing
		doc.Find(sel).Each(func(_ int, card *goquery.Selection) {
			if l, ok := listingFrom(card, base, pageTrans, nameSelector); ok {
				out = append(out, l)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// listingFrom applies the field rules to one card-like element. Rows without
// a price are rejected.
func listingFrom(card *goquery.Selection, base *url.URL, pageTrans, names string) (models.RawListing, bool) {
	price := priceFrom(card)
	if price == "" {
		return models.RawListing{}, false
	}
	return fieldsFrom(card, base, pageTrans, names, price), true
}

func fieldsFrom(card *goquery.Selection, base *url.URL, pageTrans, names, price string) models.RawListing {
	name := nameFrom(card, names)
	code, supplier := supplierFrom(card, name)
	link := linkFrom(card, base)
	if link == "" {
		link = baseLink(base)
	}

	return models.RawListing{
		SupplierCode:  code,
		Supplier:      supplier,
		Car:           name,
		PriceText:     price,
		Transmission:  cardTransmission(card, pageTrans),
		Photo:         photoFrom(card, base),
		Link:          link,
		GroupCode:     groupCodeFrom(card),
		CategoryLabel: categoryFrom(card),
	}
}
