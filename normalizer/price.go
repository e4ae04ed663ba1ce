package normalizer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	amountRegex = regexp.MustCompile(`[0-9][0-9.,\s]*`)
	eurRegex    = regexp.MustCompile(`(?i)\bEUR\b`)
	gbpRegex    = regexp.MustCompile(`(?i)\bGBP\b`)
)

// ParseAmount reads the first number in a price text. The rightmost of two
// different separators is the decimal one; a lone comma is decimal; repeated
// identical separators are thousands. A dot is therefore not always a
// thousands separator: Anglo amounts such as "1,234.56" keep their decimals
// instead of reading as 1.23456.
//
//	"1.010,29 €" -> 1010.29
//	"1010.29"    -> 1010.29
//	"1,234.56"   -> 1234.56
func ParseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	num := amountRegex.FindString(s)
	if num == "" {
		return 0, false
	}
	num = strings.Join(strings.Fields(num), "")
	num = strings.TrimRight(num, ".,")

	commas := strings.Count(num, ",")
	dots := strings.Count(num, ".")
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(num, ",") > strings.LastIndex(num, ".") {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.Replace(num, ",", ".", 1)
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case commas == 1:
		num = strings.Replace(num, ",", ".", 1)
	case commas > 1:
		num = strings.ReplaceAll(num, ",", "")
	case dots > 1:
		num = strings.ReplaceAll(num, ".", "")
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// DetectCurrency returns EUR or GBP from the markers in a price text, or "".
func DetectCurrency(s string) string {
	switch {
	case strings.Contains(s, "€") || eurRegex.MatchString(s):
		return "EUR"
	case strings.Contains(s, "£") || gbpRegex.MatchString(s):
		return "GBP"
	}
	return ""
}

// FormatEUR renders v the way the upstream shows euro prices: "1.234,56 €".
func FormatEUR(v float64) string {
	s := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	if v < 0 && round2(v) != 0 {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	b.WriteString(" €")
	return b.String()
}

// FormatPrice renders v in currency cur.
func FormatPrice(v float64, cur string) string {
	switch strings.ToUpper(cur) {
	case "", "EUR":
		return FormatEUR(v)
	case "GBP":
		return fmt.Sprintf("£%.2f", v)
	}
	return fmt.Sprintf("%.2f %s", v, strings.ToUpper(cur))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
