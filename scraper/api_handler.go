package scraper

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	localeLandingPath = "/aluguer-carros/index.htm"
	loadingWait       = 2 * time.Second
)

var loadingRedirectRegex = regexp.MustCompile(`window\.location\.replace\(\s*['"]([^'"]+)['"]\s*\)`)

// DirectStrategy posts the search form straight to the upstream.
type DirectStrategy struct {
	client *resty.Client
	wait   time.Duration
}

func NewDirectStrategy(client *resty.Client) *DirectStrategy {
	return &DirectStrategy{client: client, wait: loadingWait}
}

func (s *DirectStrategy) Name() string {
	return "direct"
}

func (s *DirectStrategy) Fetch(ctx context.Context, target Target, hints Hints) (string, error) {
	return submit(ctx, s.client, target.URL, target, s.wait)
}

// LocaleStrategy seeds the session cookies from the Portuguese landing page
// and re-submits with the locale forced in the query string.
type LocaleStrategy struct {
	client *resty.Client
	wait   time.Duration
}

func NewLocaleStrategy(client *resty.Client) *LocaleStrategy {
	return &LocaleStrategy{client: client, wait: loadingWait}
}

func (s *LocaleStrategy) Name() string {
	return "locale"
}

func (s *LocaleStrategy) Fetch(ctx context.Context, target Target, hints Hints) (string, error) {
	u, err := url.Parse(target.URL)
	if err != nil {
		return "", fmt.Errorf("parse target: %w", err)
	}

	landing := u.Scheme + "://" + u.Host + localeLandingPath
	if _, err := s.client.R().SetContext(ctx).Get(landing); err != nil {
		log.Printf("[fetch] locale warmup failed: %v", err)
	}

	lang := strings.ToUpper(hints.Lang)
	if lang == "" {
		lang = "PT"
	}
	cur := strings.ToUpper(hints.Currency)
	if cur == "" {
		cur = "EUR"
	}
	q := u.Query()
	q.Set("idioma", lang)
	q.Set("moneda", cur)
	q.Set("currency", cur)
	u.RawQuery = q.Encode()

	return submit(ctx, s.client, u.String(), target, s.wait)
}

// submit posts the form (or GETs a prebuilt URL when there is none) and
// follows a "waiting for prices" interstitial once.
func submit(ctx context.Context, client *resty.Client, postURL string, target Target, wait time.Duration) (string, error) {
	req := client.R().
		SetContext(ctx).
		SetHeader("Referer", originOf(postURL)+"/").
		SetHeader("Origin", originOf(postURL))

	method := resty.MethodGet
	if len(target.Form) > 0 {
		method = resty.MethodPost
		req.SetFormDataFromValues(target.Form)
	}
	resp, err := req.Execute(method, postURL)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, postURL, err)
	}
	if resp.IsError() {
		return string(resp.Body()), fmt.Errorf("%s %s: status %d", method, postURL, resp.StatusCode())
	}

	body := string(resp.Body())
	next := loadingRedirect(body, postURL)
	if next == "" {
		return body, nil
	}

	select {
	case <-ctx.Done():
		return body, ctx.Err()
	case <-time.After(wait):
	}

	resp, err = client.R().SetContext(ctx).Get(next)
	if err != nil {
		return body, fmt.Errorf("follow %s: %w", next, err)
	}
	if resp.IsError() {
		return body, fmt.Errorf("follow %s: status %d", next, resp.StatusCode())
	}
	return string(resp.Body()), nil
}

// loadingRedirect returns the absolute URL a loading page redirects to, or "".
func loadingRedirect(body, base string) string {
	m := loadingRedirectRegex.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(m[1])
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return upstreamBase
	}
	return u.Scheme + "://" + u.Host
}
