// Package source fetches the 동행복권 game-info page the readings are
// extracted from.
//
// The page is served to browsers only, so requests carry a browser-like
// header set. A token bucket limiter keeps manual check-now triggers from
// hammering the site.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// browserHeaders mimics a desktop Chrome request. The lottery site returns
// a stripped page without them.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "ko-KR,ko;q=0.9,en;q=0.8",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Cache-Control":             "no-cache",
}

// Client fetches the raw source page.
type Client struct {
	httpClient *http.Client
	url        string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a page fetcher with a bounded timeout. The limiter
// allows one request per ten seconds with a small burst.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		limiter:    rate.NewLimiter(rate.Every(10*time.Second), 2),
		logger:     logger,
	}
}

// Fetch performs a single rate-limited GET of the source page and returns
// the raw markup. No retries: the caller substitutes fallback readings on
// failure.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch source page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("source page returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	c.logger.Debug("source page fetched", "bytes", len(body))
	return string(body), nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
