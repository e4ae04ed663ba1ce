package extractor

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"car_tracker/models"
)

var (
	objRegex     = regexp.MustCompile(`\{[^{}]*"priceStr"\s*:\s*"[^"]+"[^{}]*"id"\s*:\s*"[^"]+"[^{}]*\}`)
	dataMapRegex = regexp.MustCompile(`(?s)var\s+dataMap\s*=\s*(\[.*?\]);`)
)

type embeddedOffer struct {
	PriceStr string `json:"priceStr"`
	ID       string `json:"id"`
	GrupoVeh string `json:"grupoVeh"`
}

// extractEmbedded reads provider-summary offers from inline script data. The
// rows carry supplier, price and vehicle group but no vehicle name.
func extractEmbedded(html string, base *url.URL, transmission string) []models.RawListing {
	var offers []embeddedOffer

	if m := dataMapRegex.FindStringSubmatch(html); m != nil {
		var arr []embeddedOffer
		if err := json.Unmarshal([]byte(m[1]), &arr); err == nil {
			offers = append(offers, arr...)
		}
	}
	for _, raw := range objRegex.FindAllString(html, -1) {
		var o embeddedOffer
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			continue
		}
		offers = append(offers, o)
	}

	seen := make(map[embeddedOffer]bool, len(offers))
	var out []models.RawListing
	for _, o := range offers {
		o.PriceStr = cleanText(o.PriceStr)
		o.ID = strings.ToUpper(strings.TrimSpace(o.ID))
		o.GrupoVeh = strings.ToUpper(strings.TrimSpace(o.GrupoVeh))
		if o.PriceStr == "" || seen[o] {
			continue
		}
		seen[o] = true

		var photo string
		if o.GrupoVeh != "" {
			photo = absURL(base, "/cdn/img/cars/S/car_"+o.GrupoVeh+".jpg")
		}
		out = append(out, models.RawListing{
			SupplierCode: o.ID,
			Supplier:     SupplierName(o.ID),
			PriceText:    o.PriceStr,
			Transmission: transmission,
			Photo:        photo,
			Link:         baseLink(base),
			GroupCode:    o.GrupoVeh,
		})
	}
	return out
}

// hasEmbedded is a cheap probe for inline offer data.
func hasEmbedded(html string) bool {
	return objRegex.MatchString(html) || dataMapRegex.MatchString(html)
}
