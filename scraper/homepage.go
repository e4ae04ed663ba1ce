package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"car_tracker/extractor"
)

var landingMarkers = []*regexp.Regexp{
	regexp.MustCompile(`hrental_pagetype"\s*:\s*"home"`),
	regexp.MustCompile(`data-steplist="home"`),
}

func hasListings(html string) bool {
	return extractor.HasListings(html)
}

// IsHomepage reports whether html is the upstream landing page the site
// serves instead of results: no listing container and a landing marker.
func IsHomepage(html string) bool {
	if strings.TrimSpace(html) == "" || hasListings(html) {
		return false
	}
	for _, re := range landingMarkers {
		if re.MatchString(html) {
			return true
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find("form[name=frmSearch], #frmSearch").Length() > 0
}

// accept classifies a strategy body. A nil error means it can be returned.
func accept(html string) error {
	if strings.TrimSpace(html) == "" {
		return ErrEmpty
	}
	if IsHomepage(html) {
		return ErrHomepage
	}
	if detectBlock(html) != "" {
		return ErrBlocked
	}
	return nil
}
