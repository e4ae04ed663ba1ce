package extractor

import (
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"car_tracker/identity"
	"car_tracker/models"
)

const (
	fallbackNameSelector = ".car, .vehicle, .model, .title, .name, .veh-name, [class*='model'], [class*='vehicle']"
	maxClimb             = 6
	maxFallbackRows      = 50
	maxPriceTextLen      = 50
)

var currencyTextRegex = regexp.MustCompile(`(?i)(?:€|£)\s*\d|\b(?:EUR|GBP)\s*\d|\d\s*(?:€|£)`)

var blockTags = map[string]bool{"tr": true, "li": true, "article": true, "section": true, "div": true}

// extractFallback scans currency-marked text nodes and treats the nearest
// block ancestor of each as a pseudo-card.
func extractFallback(doc *goquery.Document, base *url.URL, pageTrans string) []models.RawListing {
	seen := make(map[string]bool)
	var out []models.RawListing

	doc.Find("body *").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if el.Is("script, style, noscript, option") {
			return true
		}
		text := cleanText(ownText(el))
		if text == "" || len(text) > maxPriceTextLen || !currencyTextRegex.MatchString(text) {
			return true
		}

		tok := PriceToken(text)
		if tok == "" || isOldPrice(el) {
			return true
		}
		l := fieldsFrom(climb(el), base, pageTrans, fallbackNameSelector, tok)

		key := identity.ListingKey(l.Supplier, l.Car, l.PriceText)
		if seen[key] {
			return true
		}
		seen[key] = true
		out = append(out, l)
		return len(out) < maxFallbackRows
	})
	return out
}

// climb walks up to maxClimb ancestors looking for a block element.
func climb(el *goquery.Selection) *goquery.Selection {
	cur := el
	for depth := 0; depth <= maxClimb && cur.Length() > 0; depth++ {
		if blockTags[goquery.NodeName(cur)] {
			return cur
		}
		cur = cur.Parent()
	}
	return el.Parent()
}
