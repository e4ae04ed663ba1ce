package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"car_tracker/classifier"
	"car_tracker/config"
	"car_tracker/extractor"
	"car_tracker/models"
	"car_tracker/normalizer"
	"car_tracker/scraper"
)

// Fetcher is the part of scraper.Fetcher the pipeline needs.
type Fetcher interface {
	Fetch(ctx context.Context, target scraper.Target, hints scraper.Hints) scraper.Result
}

// Pipeline runs fetch, extract, classify and normalize for one search.
type Pipeline struct {
	fetcher    Fetcher
	classifier *classifier.Classifier
	normalizer *normalizer.Normalizer
}

func NewPipeline(fetcher Fetcher, c *classifier.Classifier, n *normalizer.Normalizer) *Pipeline {
	if c == nil {
		c = classifier.Default()
	}
	if n == nil {
		n = normalizer.New(config.PricingConfig{}, nil)
	}
	return &Pipeline{fetcher: fetcher, classifier: c, normalizer: n}
}

// PipelineResult carries the listings plus what the run observed.
type PipelineResult struct {
	Items      []models.NormalizedListing
	Timing     models.UnitTiming
	Strategy   string
	Extraction string
	Note       string
}

func (p *Pipeline) Run(ctx context.Context, target scraper.Target, hints scraper.Hints, src normalizer.Source) PipelineResult {
	start := time.Now()
	fetched := p.fetcher.Fetch(ctx, target, hints)
	res := PipelineResult{
		Strategy: fetched.Strategy,
		Timing: models.UnitTiming{
			FetchMS:  time.Since(start).Milliseconds(),
			Attempts: fetched.Attempts,
		},
	}

	parseStart := time.Now()
	raws, how := extractor.ExtractWithStrategy(fetched.HTML, target.URL)
	classified := p.classifier.ClassifyAll(raws)
	if src.URL == "" {
		src.URL = target.URL
	}
	res.Items = p.normalizer.Normalize(ctx, classified, src)
	res.Extraction = how
	res.Timing.ParseMS = time.Since(parseStart).Milliseconds()

	if len(res.Items) == 0 {
		res.Note = emptyNote(fetched)
		log.Printf("[pipeline] %s: no listings (%s)", hints.Tag, res.Note)
	} else {
		log.Printf("[pipeline] %s: %d listings via %s/%s in %dms", hints.Tag, len(res.Items), fetched.Strategy, how, res.Timing.FetchMS+res.Timing.ParseMS)
	}
	return res
}

func emptyNote(f scraper.Result) string {
	switch {
	case f.HTML == "":
		return fmt.Sprintf("upstream returned no page after %d attempts", f.Attempts)
	case !f.Accepted:
		return fmt.Sprintf("upstream served no results page after %d attempts", f.Attempts)
	}
	return "no priced listings found on the results page"
}
