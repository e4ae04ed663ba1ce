package scraper

import (
	"context"
	"errors"
	"net/url"

	"car_tracker/config"
	"car_tracker/httputil"
)

var (
	ErrEmpty    = errors.New("empty response")
	ErrHomepage = errors.New("landing page instead of results")
	ErrBlocked  = errors.New("request blocked upstream")
)

// Target is an upstream form submission.
type Target struct {
	URL  string
	Form url.Values
}

// Hints carries locale preferences and a tag used to name debug dumps.
type Hints struct {
	Lang     string
	Currency string
	Tag      string
}

// Strategy is one way of getting a results page. Strategies may return a body
// together with an error; the fetcher still considers it as a fallback.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, target Target, hints Hints) (string, error)
}

// NewStrategies returns the fallback chain in the order it is tried.
func NewStrategies(cfg *config.Config, clients *httputil.Clients, limiter *httputil.Limiter) []Strategy {
	strategies := []Strategy{
		NewDirectStrategy(clients.Scraping),
		NewLocaleStrategy(clients.Scraping),
	}
	if cfg.Proxy.Enabled() {
		strategies = append(strategies, NewProxyStrategy(cfg.Proxy, clients.Proxy))
	}
	if cfg.Fetch.BrowserEnabled {
		strategies = append(strategies, NewBrowserStrategy(cfg.Fetch, limiter))
	}
	return strategies
}
