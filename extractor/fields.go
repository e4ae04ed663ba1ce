package extractor

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"car_tracker/identity"
)

const (
	nameSelector     = ".veh-name, .vehicle-name, .model, .titleCar, .title, h3, h2, [class*='veh-name'], [class*='vehicle-name'], [class*='model']"
	priceSelector    = ".price, .amount, [class*='price'], .nfoPriceDest, .nfoPrice, [data-price]"
	supplierSelector = ".supplier, .vendor, .partner, [class*='supplier'], [class*='vendor']"
	categorySelector = ".category, .group, .vehicle-category, [class*='category'], [class*='categoria'], [class*='grupo']"
	transSelector    = ".transmission, [class*='transmission'], [class*='gearbox'], [data-transmission]"
	oldPriceSelector = "del, s, strike, .old-price, .oldPrice, [class*='old-price'], [class*='old_price'], [class*='oldPrice'], [class*='price-old'], [class*='priceOld'], [class*='before'], [class*='strike'], [class*='tachado'], [class*='crossed']"
	imageSelector    = "picture source[srcset], img[srcset], picture source[data-srcset], img[data-srcset]"
)

var nameAttrs = []string{"data-model", "data-vehicle", "data-name", "aria-label", "title"}

var imageAttrs = []string{"src", "data-src", "data-original", "data-lazy", "data-lazy-src"}

var (
	bgImageRegex  = regexp.MustCompile(`background-image\s*:\s*url\(([^)]+)\)`)
	logoCodeRegex = regexp.MustCompile(`/logo_([A-Za-z0-9]+)\.`)
	carCodeRegex  = regexp.MustCompile(`car_([A-Za-z0-9]+)\.jpg`)
	onclickRegex  = regexp.MustCompile(`https?://[^'"\s]+`)

	// amount with a currency marker on either side
	moneyRegex = regexp.MustCompile(`(?i)(?:€|£|\bEUR|\bGBP)\s*\d+(?:[.,]\d{3})*(?:[.,]\d{1,2})?|\d+(?:[.,]\d{3})*(?:[.,]\d{1,2})?\s*(?:€|£|EUR\b|GBP\b)`)
	// bare amount with decimals, accepted only inside price elements
	bareAmountRegex = regexp.MustCompile(`\d+(?:[.,]\d{3})*[.,]\d{2}`)
	perDayRegex     = regexp.MustCompile(`(?i)(/\s*(dia|day|d)\b|per\s+day|por\s+dia|\bdi[aá]rio\b|\bdaily\b|\bpro\s+tag\b)`)

	imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true, ".avif": true}
)

// brandWords is the vehicle-brand vocabulary used to tell a model name apart
// from other card text.
var brandWords = []string{
	"abarth", "alfa romeo", "audi", "bmw", "byd", "chevrolet", "citroen", "cupra", "dacia", "ds",
	"fiat", "ford", "honda", "hyundai", "jaguar", "jeep", "kia", "lancia", "land rover", "lexus",
	"mazda", "mercedes", "mg", "mini", "mitsubishi", "nissan", "opel", "peugeot", "polestar",
	"porsche", "renault", "seat", "skoda", "smart", "ssangyong", "subaru", "suzuki", "tesla",
	"toyota", "volkswagen", "volvo",
}

var brandRegex = func() *regexp.Regexp {
	quoted := make([]string, len(brandWords))
	for i, b := range brandWords {
		quoted[i] = regexp.QuoteMeta(b)
	}
	return regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
}()

// HasBrand reports whether text names a known vehicle brand.
func HasBrand(text string) bool {
	return brandRegex.MatchString(identity.NormalizeName(text))
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PriceToken returns the first strict monetary token in text.
func PriceToken(text string) string {
	text = cleanText(text)
	if perDayRegex.MatchString(text) {
		return ""
	}
	return moneyRegex.FindString(text)
}

// priceFrom picks the first usable price inside sel, ignoring per-day and
// struck-through amounts.
func priceFrom(sel *goquery.Selection) string {
	var price string
	sel.Find(priceSelector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if isOldPrice(el) {
			return true
		}
		clone := el.Clone()
		clone.Find(oldPriceSelector).Remove()
		text := cleanText(clone.Text())
		if text == "" || perDayRegex.MatchString(text) || perDayRegex.MatchString(el.AttrOr("class", "")) {
			return true
		}
		if tok := moneyRegex.FindString(text); tok != "" {
			price = tok
			return false
		}
		if tok := bareAmountRegex.FindString(text); tok != "" {
			price = tok
			return false
		}
		return true
	})
	if price == "" {
		if dp, ok := sel.Attr("data-price"); ok {
			price = cleanText(dp)
		}
	}
	return price
}

func isOldPrice(el *goquery.Selection) bool {
	if el.Is(oldPriceSelector) || el.ParentsFiltered(oldPriceSelector).Length() > 0 {
		return true
	}
	style := strings.ToLower(el.AttrOr("style", ""))
	return strings.Contains(style, "line-through")
}

// nameFrom finds the vehicle name. Branded text wins: a name element, then a
// naming attribute, then any text fragment naming a brand. Unbranded name
// elements and attributes are used only when no brand appears in the card.
func nameFrom(sel *goquery.Selection, selector string) string {
	var first, branded string
	sel.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := cleanText(el.Text())
		if text == "" || len(text) > 80 || moneyRegex.MatchString(text) {
			return true
		}
		if first == "" {
			first = text
		}
		if HasBrand(text) {
			branded = text
			return false
		}
		return true
	})
	if branded != "" {
		return branded
	}

	var attr string
	for _, name := range nameAttrs {
		v := cleanText(sel.AttrOr(name, ""))
		if v == "" {
			continue
		}
		if HasBrand(v) {
			return v
		}
		if attr == "" {
			attr = v
		}
	}

	if found := brandedFragment(sel); found != "" {
		return found
	}
	if first != "" {
		return first
	}
	return attr
}

// brandedFragment returns the first direct text of any element in sel that
// names a brand.
func brandedFragment(sel *goquery.Selection) string {
	var found string
	sel.Find("*").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if el.Is("script, style") {
			return true
		}
		text := cleanText(ownText(el))
		if text != "" && len(text) <= 80 && HasBrand(text) && !moneyRegex.MatchString(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

// ownText is the text of el's direct text-node children.
func ownText(el *goquery.Selection) string {
	var b strings.Builder
	el.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
			b.WriteString(" ")
		}
	})
	return b.String()
}

// supplierFrom returns (code, name) for the card supplier.
func supplierFrom(sel *goquery.Selection, carName string) (string, string) {
	var code string
	sel.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		for _, attr := range []string{"src", "data-src"} {
			if m := logoCodeRegex.FindStringSubmatch(img.AttrOr(attr, "")); m != nil {
				code = strings.ToUpper(m[1])
				return false
			}
		}
		return true
	})
	if code != "" {
		return code, SupplierName(code)
	}

	if txt := cleanText(sel.Find(supplierSelector).First().Text()); txt != "" && !strings.EqualFold(txt, carName) {
		return "", txt
	}

	var label string
	sel.Find("img[alt], img[title]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		v := cleanText(img.AttrOr("alt", img.AttrOr("title", "")))
		if v == "" || strings.EqualFold(v, carName) || HasBrand(v) {
			return true
		}
		label = v
		return false
	})
	return "", label
}

// photoFrom picks the first non-logo vehicle image.
func photoFrom(sel *goquery.Selection, base *url.URL) string {
	var photo string
	sel.Find(imageSelector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		set := el.AttrOr("srcset", el.AttrOr("data-srcset", ""))
		first := strings.TrimSpace(strings.Split(set, ",")[0])
		if fields := strings.Fields(first); len(fields) > 0 && !isLogo(fields[0]) {
			photo = fields[0]
			return false
		}
		return true
	})

	if photo == "" {
		sel.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			for _, attr := range imageAttrs {
				src := strings.TrimSpace(img.AttrOr(attr, ""))
				if src == "" || isLogo(src) || !isImagePath(src) {
					continue
				}
				photo = src
				return false
			}
			return true
		})
	}

	if photo == "" {
		styled := sel.Filter("[style]").AddSelection(sel.Find("[style]"))
		styled.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if m := bgImageRegex.FindStringSubmatch(el.AttrOr("style", "")); m != nil {
				photo = strings.Trim(strings.TrimSpace(m[1]), `"'`)
				return false
			}
			return true
		})
	}

	if photo == "" {
		if html, err := goquery.OuterHtml(sel); err == nil {
			if m := carCodeRegex.FindStringSubmatch(html); m != nil {
				photo = "/cdn/img/cars/S/car_" + m[1] + ".jpg"
			}
		}
	}

	return absURL(base, photo)
}

// groupCodeFrom returns the upstream vehicle group code embedded in image names.
func groupCodeFrom(sel *goquery.Selection) string {
	if v := strings.TrimSpace(sel.AttrOr("data-grupo", sel.AttrOr("data-group", ""))); v != "" {
		return strings.ToUpper(v)
	}
	html, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	if m := carCodeRegex.FindStringSubmatch(html); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

func categoryFrom(sel *goquery.Selection) string {
	return cleanText(sel.Find(categorySelector).First().Text())
}

// linkFrom returns the absolute detail link from an anchor, a data attribute
// or a click handler.
func linkFrom(sel *goquery.Selection, base *url.URL) string {
	var link string
	sel.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return true
		}
		link = href
		return false
	})
	if link != "" {
		return absURL(base, link)
	}

	withData := sel.Filter("[data-href], [data-url], [data-link]").AddSelection(sel.Find("[data-href], [data-url], [data-link]"))
	withData.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		for _, attr := range []string{"data-href", "data-url", "data-link"} {
			if v := strings.TrimSpace(el.AttrOr(attr, "")); v != "" {
				link = v
				return false
			}
		}
		return true
	})
	if link != "" {
		return absURL(base, link)
	}

	withClick := sel.Filter("[onclick]").AddSelection(sel.Find("[onclick]"))
	withClick.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if m := onclickRegex.FindString(el.AttrOr("onclick", "")); m != "" {
			link = m
			return false
		}
		return true
	})
	return link
}

// cardTransmission reads a per-card transmission label, falling back to the
// page-level one.
func cardTransmission(sel *goquery.Selection, pageLabel string) string {
	el := sel.Find(transSelector).First()
	text := strings.ToLower(cleanText(el.AttrOr("data-transmission", el.Text())))
	switch {
	case strings.Contains(text, "autom"):
		return "Automatic"
	case strings.Contains(text, "manual"):
		return "Manual"
	case strings.Contains(text, "electr"), strings.Contains(text, "eléctr"):
		return "Electric"
	}
	return pageLabel
}

// pageTransmission reads the transmission filter applied to the whole search.
func pageTransmission(doc *goquery.Document) string {
	if v, ok := doc.Find("input[name='frmTrans'][checked]").First().Attr("value"); ok {
		switch strings.ToLower(v) {
		case "au":
			return "Automatic"
		case "mn":
			return "Manual"
		case "el":
			return "Electric"
		}
	}
	used := strings.ToLower(cleanText(doc.Find("#filterUsed").Text()))
	switch {
	case strings.Contains(used, "autom"):
		return "Automatic"
	case strings.Contains(used, "manual"):
		return "Manual"
	case strings.Contains(used, "electr"):
		return "Electric"
	}
	return ""
}

func isLogo(src string) bool {
	return strings.Contains(strings.ToLower(src), "logo_")
}

func isImagePath(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return imageExts[strings.ToLower(path.Ext(u.Path))]
}

func absURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
