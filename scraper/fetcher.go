package scraper

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"car_tracker/logging"
)

// Result is the outcome of a Fetch. Accepted is false when no strategy
// produced a usable page; HTML then holds the longest body seen, if any.
type Result struct {
	HTML     string
	Strategy string
	Attempts int
	Accepted bool
}

// Fetcher runs strategies in order until one returns a results page or the
// budget is spent.
type Fetcher struct {
	strategies []Strategy
	budget     time.Duration
	dumper     *logging.DebugDumper
}

func NewFetcher(strategies []Strategy, budget time.Duration, dumper *logging.DebugDumper) *Fetcher {
	return &Fetcher{strategies: strategies, budget: budget, dumper: dumper}
}

// Fetch never fails. Callers inspect Result.HTML and Result.Accepted.
func (f *Fetcher) Fetch(ctx context.Context, target Target, hints Hints) Result {
	if f.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.budget)
		defer cancel()
	}

	var best Result
	attempts := 0
	for _, s := range f.strategies {
		if ctx.Err() != nil {
			log.Printf("[fetch] budget spent after %d attempts, skipping %s", attempts, s.Name())
			break
		}
		attempts++

		start := time.Now()
		html, err := s.Fetch(ctx, target, hints)
		if len(html) > len(best.HTML) {
			best.HTML = html
			best.Strategy = s.Name()
		}
		if err == nil {
			err = accept(html)
		}
		if err != nil {
			level := "warn"
			if errors.Is(err, context.Canceled) {
				level = "info"
			}
			log.Printf("[fetch] [%s] %s rejected after %s: %v", level, s.Name(), time.Since(start).Round(time.Millisecond), err)
			continue
		}

		log.Printf("[fetch] %s accepted (%d bytes, attempt %d)", s.Name(), len(html), attempts)
		f.dumper.DumpHTML(context.WithoutCancel(ctx), s.Name(), hints.Tag, html)
		return Result{HTML: html, Strategy: s.Name(), Attempts: attempts, Accepted: true}
	}

	best.Attempts = attempts
	if best.HTML != "" {
		f.dumper.DumpHTML(context.WithoutCancel(ctx), "rejected-"+best.Strategy, hints.Tag, best.HTML)
	}
	return best
}

// Close releases strategies that hold resources.
func (f *Fetcher) Close() {
	for _, s := range f.strategies {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("[fetch] close %s: %v", s.Name(), err)
			}
		}
	}
}
