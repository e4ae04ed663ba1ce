package classifier

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Gearbox conditions a rule can require.
const (
	AutoAny = "any"
	AutoYes = "yes"
	AutoNo  = "no"
)

// Rule is one model-family override.
type Rule struct {
	Name     string `yaml:"name"`
	Match    string `yaml:"match"`
	With     string `yaml:"with"`
	Unless   string `yaml:"unless"`
	Auto     string `yaml:"auto"`
	Category string `yaml:"category"`

	match  *regexp.Regexp
	with   *regexp.Regexp
	unless *regexp.Regexp
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// ParseRules decodes and compiles a rules document.
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	known := make(map[string]bool)
	for _, c := range Categories() {
		known[c] = true
	}

	for i := range f.Rules {
		r := &f.Rules[i]
		if r.Match == "" {
			return nil, fmt.Errorf("rule %d (%s): match is required", i, r.Name)
		}
		if !known[r.Category] {
			return nil, fmt.Errorf("rule %d (%s): unknown category %q", i, r.Name, r.Category)
		}
		switch r.Auto {
		case "":
			r.Auto = AutoAny
		case AutoAny, AutoYes, AutoNo:
		default:
			return nil, fmt.Errorf("rule %d (%s): auto must be any, yes or no, got %q", i, r.Name, r.Auto)
		}

		var err error
		if r.match, err = regexp.Compile(r.Match); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Name, err)
		}
		if r.With != "" {
			if r.with, err = regexp.Compile(r.With); err != nil {
				return nil, fmt.Errorf("rule %d (%s): %w", i, r.Name, err)
			}
		}
		if r.Unless != "" {
			if r.unless, err = regexp.Compile(r.Unless); err != nil {
				return nil, fmt.Errorf("rule %d (%s): %w", i, r.Name, err)
			}
		}
	}
	return f.Rules, nil
}

// Applies reports whether the rule fires for a normalized name.
func (r Rule) Applies(name string, auto bool) bool {
	switch r.Auto {
	case AutoYes:
		if !auto {
			return false
		}
	case AutoNo:
		if auto {
			return false
		}
	}
	if r.match == nil || !r.match.MatchString(name) {
		return false
	}
	if r.with != nil && !r.with.MatchString(name) {
		return false
	}
	return r.unless == nil || !r.unless.MatchString(name)
}
