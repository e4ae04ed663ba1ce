package scraper

import (
	"context"
	"fmt"
	"html"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"car_tracker/config"
	"car_tracker/httputil"
)

const (
	listingSelector = "section.newcarlist article, .newcarlist article, article.car, li.result, li.car, .car-item, .result-row"
	browserWaitCap  = 30 * time.Second
)

// BrowserStrategy renders the results page in headless Chromium. The browser
// is started on first use and shared by concurrent fetches; each fetch gets
// its own page.
type BrowserStrategy struct {
	cfg     config.FetchConfig
	limiter *httputil.Limiter

	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	initialized bool
}

func NewBrowserStrategy(cfg config.FetchConfig, limiter *httputil.Limiter) *BrowserStrategy {
	return &BrowserStrategy{cfg: cfg, limiter: limiter}
}

func (s *BrowserStrategy) Name() string {
	return "browser"
}

func (s *BrowserStrategy) Fetch(ctx context.Context, target Target, hints Hints) (string, error) {
	if err := s.ensureBrowser(); err != nil {
		return "", err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	page, err := s.context.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if len(target.Form) > 0 {
		err = page.SetContent(autoSubmitForm(target))
	} else {
		_, err = page.Goto(target.URL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		})
	}
	if err != nil {
		return "", fmt.Errorf("failed to open results: %w", err)
	}

	wait := browserWaitCap
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < wait {
			wait = left
		}
	}
	if wait <= 0 {
		return "", context.DeadlineExceeded
	}

	err = page.Locator(listingSelector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(wait.Milliseconds())),
	})
	if err != nil {
		log.Printf("[fetch] browser: no listing container (%v)", err)
		s.handleConsent(page)
	}

	content, cerr := page.Content()
	if cerr != nil {
		return "", fmt.Errorf("failed to read page: %w", cerr)
	}
	if trigger := detectBlock(content); trigger != "" {
		return content, fmt.Errorf("%w: %s", ErrBlocked, trigger)
	}
	return content, nil
}

func (s *BrowserStrategy) ensureBrowser() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	var err error
	s.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	s.browser, err = s.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		s.pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	opts := playwright.BrowserNewContextOptions{
		Locale:     playwright.String("pt-PT"),
		TimezoneId: playwright.String("Europe/Lisbon"),
	}
	if s.cfg.UserAgent != "" {
		opts.UserAgent = playwright.String(s.cfg.UserAgent)
	}
	s.context, err = s.browser.NewContext(opts)
	if err != nil {
		s.browser.Close()
		s.pw.Stop()
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	var cookies []playwright.OptionalCookie
	for _, kv := range strings.Split(httputil.LocaleCookie, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			continue
		}
		cookies = append(cookies, playwright.OptionalCookie{
			Name:  name,
			Value: value,
			URL:   playwright.String(upstreamBase),
		})
	}
	if err := s.context.AddCookies(cookies); err != nil {
		log.Printf("[fetch] browser: could not set locale cookies: %v", err)
	}

	s.initialized = true
	return nil
}

func (s *BrowserStrategy) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.context != nil {
		s.context.Close()
		s.context = nil
	}
	if s.browser != nil {
		s.browser.Close()
		s.browser = nil
	}
	if s.pw != nil {
		s.pw.Stop()
		s.pw = nil
	}
	s.initialized = false
	return nil
}

func (s *BrowserStrategy) handleConsent(page playwright.Page) {
	consentSelectors := []string{
		"#didomi-notice-agree-button",
		"button[id*='accept']",
		"button[class*='accept']",
		"button:has-text('Aceitar')",
		"button:has-text('Accept')",
		"button:has-text('OK')",
	}

	for _, selector := range consentSelectors {
		btn := page.Locator(selector).First()
		if visible, _ := btn.IsVisible(); visible {
			log.Printf("[fetch] browser: clicking consent button %s", selector)
			btn.Click()
			humanDelay(page, 800, 1600)
			break
		}
	}
}

func humanDelay(page playwright.Page, minMs, maxMs int) {
	page.WaitForTimeout(float64(minMs + rand.Intn(maxMs-minMs)))
}

// autoSubmitForm renders a page that posts target's form on load.
func autoSubmitForm(target Target) string {
	keys := make([]string, 0, len(target.Form))
	for k := range target.Form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body>`)
	fmt.Fprintf(&b, `<form id="f" method="POST" action="%s">`, html.EscapeString(target.URL))
	for _, k := range keys {
		for _, v := range target.Form[k] {
			fmt.Fprintf(&b, `<input type="hidden" name="%s" value="%s">`, html.EscapeString(k), html.EscapeString(v))
		}
	}
	b.WriteString(`</form><script>document.getElementById("f").submit();</script></body></html>`)
	return b.String()
}

var blockTriggers = []string{
	"Request unsuccessful. Incapsula",
	"Incapsula incident ID",
	"Access Denied",
	"This request was blocked",
	"cf-chl-bypass",
}

// detectBlock names the anti-bot marker found in a page without listings.
func detectBlock(content string) string {
	if content == "" || hasListings(content) {
		return ""
	}
	for _, t := range blockTriggers {
		if strings.Contains(content, t) {
			return t
		}
	}
	return ""
}
