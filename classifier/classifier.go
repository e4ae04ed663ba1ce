package classifier

import (
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"

	"car_tracker/identity"
	"car_tracker/models"
)

// Where a category came from.
const (
	SourceDictionary = "dictionary"
	SourceSubstring  = "substring"
	SourceRule       = "rule"
	SourceKeyword    = "keyword"
	SourceHint       = "hint"
	SourceDefault    = "default"
)

// Hint is optional upstream context for one listing.
type Hint struct {
	GroupCode     string
	CategoryLabel string
}

type Result struct {
	Category  string
	Automatic bool
	Source    string
	Rule      string
}

// Classifier maps vehicle names to categories. It holds only static tables
// and is safe for concurrent use.
type Classifier struct {
	dict  map[string]string
	keys  []string
	rules []Rule
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns the classifier built from the embedded rules table.
func Default() *Classifier {
	defaultOnce.Do(func() {
		rules, err := ParseRules(defaultRules)
		if err != nil {
			log.Fatalf("Embedded classifier rules are invalid: %v", err)
		}
		defaultClassifier = New(dictionary, rules)
	})
	return defaultClassifier
}

// New builds a classifier from a nameplate dictionary and an ordered rule list.
func New(dict map[string]string, rules []Rule) *Classifier {
	c := &Classifier{dict: make(map[string]string, len(dict)), rules: rules}
	for k, v := range dict {
		key := identity.NormalizeName(k)
		c.dict[key] = v
		c.keys = append(c.keys, key)
	}
	sort.Slice(c.keys, func(i, j int) bool {
		if len(c.keys[i]) != len(c.keys[j]) {
			return len(c.keys[i]) > len(c.keys[j])
		}
		return c.keys[i] < c.keys[j]
	})
	return c
}

// Classify assigns a category. The result depends only on the arguments and
// the classifier's tables.
func (c *Classifier) Classify(name, transmission string, hint Hint) Result {
	n := identity.NormalizeName(name)
	auto := IsAutomatic(n, transmission)

	res := c.base(n, auto, hint)
	res.Automatic = auto
	if auto {
		res.Category = Promote(res.Category)
	}
	return res
}

func (c *Classifier) base(n string, auto bool, hint Hint) Result {
	if n != "" {
		if cat, ok := c.dict[n]; ok {
			return Result{Category: cat, Source: SourceDictionary}
		}
		padded := " " + n + " "
		for _, k := range c.keys {
			if strings.Contains(padded, " "+k+" ") {
				return Result{Category: c.dict[k], Source: SourceSubstring}
			}
		}
		for _, r := range c.rules {
			if r.Applies(n, auto) {
				return Result{Category: r.Category, Source: SourceRule, Rule: r.Name}
			}
		}
		if cat := fromKeywords(n); cat != "" {
			return Result{Category: cat, Source: SourceKeyword}
		}
	}

	if cat := FromLabel(hint.CategoryLabel); cat != "" {
		return Result{Category: refineMini(cat, n), Source: SourceHint}
	}
	if cat := FromGroupCode(hint.GroupCode); cat != "" {
		return Result{Category: refineMini(cat, n), Source: SourceHint}
	}
	return Result{Category: Economy, Source: SourceDefault}
}

// ClassifyListing classifies one extracted row.
func (c *Classifier) ClassifyListing(raw models.RawListing) models.ClassifiedListing {
	res := c.Classify(raw.Car, raw.Transmission, Hint{GroupCode: raw.GroupCode, CategoryLabel: raw.CategoryLabel})
	return models.ClassifiedListing{RawListing: raw, Category: res.Category, Automatic: res.Automatic}
}

func (c *Classifier) ClassifyAll(raws []models.RawListing) []models.ClassifiedListing {
	out := make([]models.ClassifiedListing, len(raws))
	for i, r := range raws {
		out[i] = c.ClassifyListing(r)
	}
	return out
}

var (
	cabrioRegex  = regexp.MustCompile(`\b(cabrio|convertible|cabriolet|roadster)\b`)
	wagonRegex   = regexp.MustCompile(`\b(estate|station\s*wagon|sw|wagon|carrinha|break|variant|kombi|touring)\b`)
	nineRegex    = regexp.MustCompile(`\b9\s*(seater|seats|lugares|lug|pax)\b|\b9-seater\b`)
	sevenRegex   = regexp.MustCompile(`\b7\s*(seater|seats|lugares|lug|pax)\b|\b7-seater\b`)
	suvRegex     = regexp.MustCompile(`\b(suv|4x4|crossover)\b`)
	premiumRegex = regexp.MustCompile(`\b(premium|luxury|lux)\b`)
	fourDoors    = regexp.MustCompile(`\b(4\s*(doors?|portas|p)|4p|4-door|4-portas)\b`)
)

// fromKeywords is the size-segment fallback over the name alone.
func fromKeywords(n string) string {
	switch {
	case cabrioRegex.MatchString(n):
		return Premium
	case wagonRegex.MatchString(n):
		return StationWagon
	case nineRegex.MatchString(n):
		return NineSeater
	case sevenRegex.MatchString(n):
		return SevenSeater
	case suvRegex.MatchString(n):
		return SUV
	case premiumRegex.MatchString(n):
		return Premium
	}

	fields := strings.Fields(n)
	switch fields[len(fields)-1] {
	case "mini", "small":
		return refineMini(Mini, n)
	case "economy", "economico", "económico":
		return Economy
	}
	return ""
}

func refineMini(cat, n string) string {
	if cat == Mini && fourDoors.MatchString(n) {
		return Mini4Doors
	}
	return cat
}
