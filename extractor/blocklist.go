package extractor

import (
	"regexp"
	"strings"

	"car_tracker/identity"
)

var blockedModels = []string{
	"Mercedes S Class Auto",
	"MG ZS Auto",
	"Mercedes CLA Coupe Auto",
	"Mercedes A Class",
	"Mercedes A Class Auto",
	"BMW 1 Series Auto",
	"BMW 3 Series SW Auto",
	"Volvo V60 Auto",
	"Volvo XC40 Auto",
	"Mercedes C Class Auto",
	"Tesla Model 3 Auto",
	"Electric",
	"BMW 2 Series Gran Coupe Auto",
	"Mercedes C Class SW Auto",
	"Mercedes E Class Auto",
	"Mercedes E Class SW Auto",
	"BMW 5 Series SW Auto",
	"BMW X1 Auto",
	"Mercedes CLE Coupe Auto",
	"Volkswagen T-Roc Cabrio",
	"Mercedes GLA Auto",
	"Volvo XC60 Auto",
	"Volvo EX30 Auto",
	"BMW 3 Series Auto",
	"Volvo V60 4x4 Auto",
	"Hybrid",
	"Mazda MX5 Cabrio Auto",
	"Mercedes CLA Auto",
}

var blockedPatterns = compileAll(
	`\bmercedes\s+s\s*class\b`,
	`\bmercedes\s+cla\b`,
	`\bmercedes\s+cle\b`,
	`\bmercedes\s+a\s*class\b`,
	`\bmercedes\s+c\s*class\b`,
	`\bmercedes\s+e\s*class\b`,
	`\bmercedes\s+gla\b`,
	`\bbmw\s+1\s*series\b`,
	`\bbmw\s+2\s*series\b`,
	`\bbmw\s+3\s*series\b`,
	`\bbmw\s+5\s*series\b`,
	`\bbmw\s*x1\b`,
	`\bvolvo\s+v60\b`,
	`\bvolvo\s+xc40\b`,
	`\bvolvo\s+xc60\b`,
	`\bvolvo\s+ex30\b`,
	`\btesla\s+model\s*3\b`,
	`\bmg\s+zs\b`,
	`\bmazda\s+mx5\b`,
	`\bvolkswagen\s+t-roc\b`,
	`\belectric\b`,
	`\bhybrid\b`,
)

var blockedNorm = func() map[string]bool {
	m := make(map[string]bool, len(blockedModels))
	for _, b := range blockedModels {
		m[identity.NormalizeName(b)] = true
	}
	return m
}()

// Blocked reports whether a vehicle name is on the exclusion list.
func Blocked(name string) bool {
	n := identity.NormalizeName(name)
	if n == "" {
		return false
	}
	if blockedNorm[n] {
		return true
	}
	for _, p := range blockedPatterns {
		if p.MatchString(n) {
			return true
		}
	}
	for b := range blockedNorm {
		if len(b) >= 6 && strings.Contains(n, b) {
			return true
		}
	}
	return false
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
