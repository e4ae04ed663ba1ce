package scraper

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"car_tracker/config"
)

// ProxyStrategy routes the submission through a JS-rendering fetch proxy.
type ProxyStrategy struct {
	cfg    config.ProxyConfig
	client *resty.Client
}

func NewProxyStrategy(cfg config.ProxyConfig, client *resty.Client) *ProxyStrategy {
	if client == nil {
		client = resty.New()
	}
	return &ProxyStrategy{cfg: cfg, client: client}
}

func (s *ProxyStrategy) Name() string {
	return "proxy"
}

func (s *ProxyStrategy) Fetch(ctx context.Context, target Target, hints Hints) (string, error) {
	if !s.cfg.Enabled() {
		return "", fmt.Errorf("%s: no api key", s.cfg.Service)
	}

	params := map[string]string{
		"api_key":   s.cfg.APIKey,
		"url":       target.URL,
		"render_js": "true",
	}
	if s.cfg.Country != "" {
		params["country"] = s.cfg.Country
	}

	req := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetHeader("Accept-Language", "pt-PT,pt;q=0.9,en;q=0.6")

	method := resty.MethodGet
	if len(target.Form) > 0 {
		method = resty.MethodPost
		req.SetFormDataFromValues(target.Form)
	}
	resp, err := req.Execute(method, s.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.cfg.Service, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "", fmt.Errorf("%s: rejected credentials (%d)", s.cfg.Service, code)
	case resp.IsError():
		return string(resp.Body()), fmt.Errorf("%s: status %d", s.cfg.Service, code)
	}
	return string(resp.Body()), nil
}
