package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://docs.google.com/spreadsheets"

// ClientConfig holds configuration for the spreadsheet HTTP client.
type ClientConfig struct {
	// BaseURL is the spreadsheet service root (default: the public
	// docs.google.com spreadsheets endpoint).
	BaseURL string
	// Timeout bounds each HTTP request (default: 30s).
	Timeout time.Duration
	// MaxAttempts is the total number of attempts per request, including
	// the first (default: 3). Only transient failures are retried.
	MaxAttempts int
	// RetryBackoffBase is the backoff before the first retry (default: 500ms).
	RetryBackoffBase time.Duration
	// RetryBackoffMax caps the backoff between retries (default: 10s).
	RetryBackoffMax time.Duration
}

// Client fetches spreadsheet endpoints with a bounded retry policy.
type Client struct {
	baseURL string
	http    *http.Client
	cfg     ClientConfig
	log     *zap.Logger
}

// NewClient creates a Client, applying defaults for zero-valued config fields.
func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoffBase <= 0 {
		cfg.RetryBackoffBase = 500 * time.Millisecond
	}
	if cfg.RetryBackoffMax <= 0 {
		cfg.RetryBackoffMax = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		log:     log,
	}
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string { return c.baseURL }

// Get fetches url and returns the response body. Transient failures (network
// errors, 429, 5xx) are retried with exponential backoff up to MaxAttempts;
// other non-2xx statuses fail immediately with a StatusError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.computeBackoff(attempt)
			c.log.Debug("retrying request",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, retryable, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

func (c *Client) get(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}

// computeBackoff returns exponential backoff for the given attempt number.
func (c *Client) computeBackoff(attempt int) time.Duration {
	shift := attempt - 2
	if shift < 0 {
		shift = 0
	}
	backoff := c.cfg.RetryBackoffBase * time.Duration(1<<uint(shift))
	if backoff > c.cfg.RetryBackoffMax {
		backoff = c.cfg.RetryBackoffMax
	}
	return backoff
}
