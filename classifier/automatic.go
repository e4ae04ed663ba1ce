package classifier

import (
	"regexp"
	"strings"
)

var autoRegex = regexp.MustCompile(`(?i)\b(auto|automatic|automatico|automático|automatik|aut\.|a/t|at|dsg|cvt|bva|tiptronic|steptronic|s\s*tronic|multidrive|multitronic|eat|eat6|eat8)\b`)

// automaticOf maps base categories to their automatic counterparts.
var automaticOf = map[string]string{
	Mini:         MiniAutomatic,
	Economy:      EconomyAutomatic,
	SUV:          SUVAutomatic,
	StationWagon: StationWagonAutomatic,
	SevenSeater:  SevenSeaterAutomatic,
}

// IsAutomatic reports whether the transmission label or the vehicle name
// signals an automatic gearbox.
func IsAutomatic(name, transmission string) bool {
	if strings.EqualFold(strings.TrimSpace(transmission), "automatic") {
		return true
	}
	return autoRegex.MatchString(name)
}

// Promote returns the automatic counterpart of category. Categories without
// one, including those already automatic, come back unchanged.
func Promote(category string) string {
	if auto, ok := automaticOf[category]; ok {
		return auto
	}
	return category
}
