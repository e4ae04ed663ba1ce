package scraper

import (
	"car_tracker/config"
	"car_tracker/identity"
)

// DefaultLocationCode is used when a location name cannot be resolved.
const DefaultLocationCode = "FAO02"

var builtinLocations = map[string]string{
	"albufeira":         "ABF01",
	"albufeira cidade":  "ABF01",
	"faro":              "FAO02",
	"faro airport":      "FAO02",
	"faro aeroporto":    "FAO02",
	"aeroporto de faro": "FAO02",
	"lisboa":            "LIS01",
	"lisbon":            "LIS01",
	"porto":             "OPO01",
	"oporto":            "OPO01",
	"funchal":           "FNC01",
	"ponta delgada":     "PDL01",
}

// LocationTable resolves free-text location names to upstream destination codes.
type LocationTable struct {
	codes    map[string]string
	fallback string
}

func NewLocationTable(extra []config.Location) *LocationTable {
	codes := make(map[string]string, len(builtinLocations)+len(extra))
	for name, code := range builtinLocations {
		codes[name] = code
	}
	for _, loc := range extra {
		codes[identity.NormalizeText(loc.Name)] = loc.Code
		for _, alias := range loc.Aliases {
			codes[identity.NormalizeText(alias)] = loc.Code
		}
	}
	return &LocationTable{codes: codes, fallback: DefaultLocationCode}
}

// Resolve returns the code for name, or the default code and false.
func (t *LocationTable) Resolve(name string) (string, bool) {
	if code, ok := t.codes[identity.NormalizeText(name)]; ok {
		return code, true
	}
	return t.fallback, false
}
