package httputil

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"car_tracker/config"
)

// LocaleCookie forces Portuguese locale and EUR pricing upstream.
const LocaleCookie = "monedaForzada=EUR; moneda=EUR; currency=EUR; country=PT; idioma=PT; lang=pt"

type Clients struct {
	Scraping *resty.Client // upstream pages, cookie jar, locale headers
	Proxy    *resty.Client // fetch-proxy service
	API      *resty.Client // FX and other JSON APIs
}

func NewClients(cfg *config.Config, limiter *Limiter) *Clients {
	return &Clients{
		Scraping: NewScrapingClient(cfg.Fetch, limiter),
		Proxy:    newProxyClient(cfg.Fetch, limiter),
		API:      resty.New().SetTimeout(10 * time.Second),
	}
}

// NewScrapingClient builds the client used against the upstream site. Every
// request passes through limiter.
func NewScrapingClient(cfg config.FetchConfig, limiter *Limiter) *resty.Client {
	client := resty.New()
	jar, _ := cookiejar.New(nil)
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(http.DefaultTransport.(*http.Transport).Clone())

	client.SetTimeout(timeoutOr(cfg.Timeout, 20*time.Second))
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(8))
	client.SetHeaders(map[string]string{
		"User-Agent":      cfg.UserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "pt-PT,pt;q=0.9,en;q=0.8",
		"Cookie":          LocaleCookie,
	})
	if cfg.ForwardedFor != "" {
		client.SetHeader("X-Forwarded-For", cfg.ForwardedFor)
	}

	limit(client, limiter)
	return client
}

func newProxyClient(cfg config.FetchConfig, limiter *Limiter) *resty.Client {
	// JS rendering on the proxy side is slow
	client := resty.New().SetTimeout(3 * timeoutOr(cfg.Timeout, 20*time.Second))
	limit(client, limiter)
	return client
}

func limit(client *resty.Client, limiter *Limiter) {
	if limiter == nil {
		return
	}
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
}

func timeoutOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
