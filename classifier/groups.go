package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

// Canonical categories.
const (
	Mini                  = "Mini"
	Mini4Doors            = "Mini 4 Doors"
	MiniAutomatic         = "Mini Automatic"
	Economy               = "Economy"
	EconomyAutomatic      = "Economy Automatic"
	Compact               = "Compact"
	Intermediate          = "Intermediate"
	Standard              = "Standard"
	FullSize              = "Full-size"
	SUV                   = "SUV"
	SUVAutomatic          = "SUV Automatic"
	Premium               = "Premium"
	Crossover             = "Crossover"
	StationWagon          = "Estate/Station Wagon"
	StationWagonAutomatic = "Station Wagon Automatic"
	SevenSeater           = "7 Seater"
	SevenSeaterAutomatic  = "7 Seater Automatic"
	NineSeater            = "9 Seater"
	PeopleCarrier         = "People Carrier"
)

// groupLetters is the reporting group of each category.
var groupLetters = map[string]string{
	Mini4Doors:            "B1",
	Mini:                  "B2",
	Economy:               "D",
	MiniAutomatic:         "E1",
	EconomyAutomatic:      "E2",
	SUV:                   "F",
	Premium:               "G",
	Crossover:             "J1",
	StationWagon:          "J2",
	SUVAutomatic:          "L1",
	StationWagonAutomatic: "L2",
	SevenSeater:           "M1",
	SevenSeaterAutomatic:  "M2",
	NineSeater:            "N",
	PeopleCarrier:         "N",
}

// Categories lists the closed taxonomy.
func Categories() []string {
	return []string{
		Mini, Mini4Doors, MiniAutomatic, Economy, EconomyAutomatic, Compact, Intermediate,
		Standard, FullSize, SUV, SUVAutomatic, Premium, Crossover, StationWagon,
		StationWagonAutomatic, SevenSeater, SevenSeaterAutomatic, NineSeater, PeopleCarrier,
	}
}

// GroupCode returns the reporting group for a category; unknown labels,
// including localized seat counts, are resolved first.
func GroupCode(category string) string {
	if g, ok := groupLetters[category]; ok {
		return g
	}
	c := strings.ToLower(category)
	seats := strings.Contains(c, "lugar") || strings.Contains(c, "seat")
	switch {
	case seats && strings.Contains(c, "7") && strings.Contains(c, "autom"):
		return "M2"
	case seats && strings.Contains(c, "7"):
		return "M1"
	case seats && strings.Contains(c, "9"):
		return "N"
	}
	return "Others"
}

var cGroupRegex = regexp.MustCompile(`^C(\d+)$`)

// FromGroupCode maps an upstream vehicle group code to a category. Unknown
// codes yield "".
func FromGroupCode(code string) string {
	g := strings.ToUpper(strings.TrimSpace(code))
	if g == "" {
		return ""
	}
	switch g[0] {
	case 'N':
		switch {
		case g == "N07":
			return SevenSeater
		case strings.HasPrefix(g, "N09"), g == "N9", g == "N90":
			return NineSeater
		}
		return PeopleCarrier
	case 'S':
		return StationWagon
	case 'A':
		return Economy
	case 'F':
		return SUV
	case 'M':
		return SevenSeater
	case 'J', 'L':
		return Premium
	}

	m := cGroupRegex.FindStringSubmatch(g)
	if m == nil {
		return ""
	}
	n, _ := strconv.Atoi(m[1])
	switch {
	case n >= 1 && n <= 4:
		return Mini
	case n >= 5 && n <= 9:
		return Economy
	case n >= 10 && n <= 19:
		return Compact
	case n >= 20 && n <= 29:
		return Intermediate
	case n >= 30 && n <= 39:
		return Standard
	case n >= 40 && n <= 49:
		return FullSize
	case n >= 60 && n <= 69:
		return SUV
	}
	return ""
}

// FromLabel canonicalizes a free-text category label shown on a card.
func FromLabel(label string) string {
	c := strings.ToLower(strings.TrimSpace(label))
	if c == "" {
		return ""
	}
	seats := strings.Contains(c, "lugar") || strings.Contains(c, "seater") || strings.Contains(c, "seats")
	switch {
	case strings.Contains(c, "estate"), strings.Contains(c, "station"), strings.Contains(c, "carrinha"):
		return StationWagon
	case strings.Contains(c, "suv"):
		return SUV
	case strings.Contains(c, "premium"), strings.Contains(c, "lux"):
		return Premium
	case seats && strings.Contains(c, "7"):
		return SevenSeater
	case seats && strings.Contains(c, "9"):
		return NineSeater
	case strings.Contains(c, "econom"), strings.Contains(c, "económ"):
		return Economy
	case strings.Contains(c, "mini"), strings.Contains(c, "small"), strings.Contains(c, "pequeno"):
		return Mini
	}
	for _, cat := range Categories() {
		if strings.EqualFold(cat, c) {
			return cat
		}
	}
	return ""
}
