package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

var (
	brandAliases = map[string]string{
		"vw":             "volkswagen",
		"merc":           "mercedes",
		"mercedes-benz":  "mercedes",
		"mercedes benz":  "mercedes",
		"škoda":          "skoda",
		"citroën":        "citroen",
		"vauxhall":       "opel",
		"ds automobiles": "ds",
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	punctRegex      = regexp.MustCompile(`[,;:!?()\[\]"']`)
	orSimilarRegex  = regexp.MustCompile(`\bor similar\b|\bou similar\b|\bo similar\b`)
)

// NormalizeText lowercases, strips punctuation and collapses whitespace.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = punctRegex.ReplaceAllString(s, " ")
	s = multiSpaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeName is NormalizeText plus brand-alias folding and removal of
// "or similar" suffixes, so "VW Polo, or similar" and "Volkswagen Polo" agree.
func NormalizeName(name string) string {
	n := NormalizeText(name)
	n = orSimilarRegex.ReplaceAllString(n, " ")
	for _, alias := range sortedAliases {
		n = replaceWord(n, alias, brandAliases[alias])
	}
	n = multiSpaceRegex.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// ListingKey identifies a (supplier, vehicle, price) triple for dedup.
func ListingKey(supplier, car, price string) string {
	input := NormalizeText(supplier) + "|" + NormalizeName(car) + "|" + strings.Join(strings.Fields(price), "")
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// longest aliases first so "mercedes benz" wins over "merc"
var sortedAliases = func() []string {
	keys := make([]string, 0, len(brandAliases))
	for k := range brandAliases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

func replaceWord(s, word, repl string) string {
	if word == repl {
		return s
	}
	padded := " " + s + " "
	padded = strings.ReplaceAll(padded, " "+word+" ", " "+repl+" ")
	return strings.TrimSpace(padded)
}
