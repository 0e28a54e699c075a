package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"smart-wallet-engine/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// ErrRateLimited marks a 429 after the credential ring has been exhausted.
var ErrRateLimited = errors.New("rate limited (429)")

// httpClient is the shared GET-with-retries core of the concrete providers.
// 429 rotates the key ring and retries once after the ring's fixed delay;
// other transient failures retry with exponential backoff.
type httpClient struct {
	name       string // provider label on call metrics
	baseURL    string
	client     *http.Client
	keys       *KeyRing
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// ClientOption configures the concrete providers.
type ClientOption func(*httpClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *httpClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *httpClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *httpClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *httpClient) {
		c.client = client
	}
}

func newHTTPClient(name, baseURL string, keys *KeyRing, opts ...ClientOption) *httpClient {
	c := &httpClient{
		name:       name,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: DefaultTimeout},
		keys:       keys,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON performs a GET against path with the given query and decodes the
// response body into result.
func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	delay := c.retryDelay
	rotated := false
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if key := c.keys.Current(); key != "" {
			req.Header.Set("X-API-KEY", key)
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		observability.RecordProviderCall(c.name, path, time.Since(start).Seconds())
		if err != nil {
			observability.RecordProviderError(c.name, path)
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			observability.RecordProviderError(c.name, path)
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			observability.RecordProviderError(c.name, path)
			if rotated {
				return fmt.Errorf("%s: %w", path, ErrRateLimited)
			}
			// Advance the credential ring and retry once after the
			// ring's fixed delay.
			c.keys.Rotate()
			observability.RecordKeyRotation()
			rotated = true
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.keys.Delay()):
			}
			lastErr = ErrRateLimited
			continue
		}

		if resp.StatusCode != http.StatusOK {
			observability.RecordProviderError(c.name, path)
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		if result != nil {
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
