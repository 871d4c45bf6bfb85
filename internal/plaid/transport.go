package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ResponseMeta is the HTTP envelope of a provider response.
type ResponseMeta struct {
	Header     http.Header
	StatusCode int
}

// request describes a single provider exchange.
type request struct {
	body     any
	query    url.Values
	method   string
	endpoint string // metric and log label; never the full URL
	url      string
}

// exchange performs one HTTP round trip and returns the raw body. The error
// is non-nil only when no response was received or the body was unreadable.
func (c *Client) exchange(ctx context.Context, r request) ([]byte, *ResponseMeta, error) {
	start := time.Now()

	body, meta, err := c.roundTrip(ctx, r)

	outcome := "error"
	if meta != nil {
		outcome = statusClass(meta.StatusCode)
	}
	c.metrics.RecordRequest(r.endpoint, outcome, time.Since(start))

	if err != nil {
		c.logger.Debug("Provider request failed",
			"endpoint", r.endpoint,
			"method", r.method,
			"duration", time.Since(start),
			"error", err)
		return nil, meta, err
	}

	c.logger.Debug("Provider request completed",
		"endpoint", r.endpoint,
		"method", r.method,
		"status", meta.StatusCode,
		"duration", time.Since(start))

	return body, meta, nil
}

func (c *Client) roundTrip(ctx context.Context, r request) ([]byte, *ResponseMeta, error) {
	target := r.url
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var reader io.Reader
	if r.body != nil {
		encoded, err := json.Marshal(r.body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", r.method, r.endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	meta := &ResponseMeta{StatusCode: resp.StatusCode, Header: resp.Header.Clone()}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, meta, nil
}

// credentials returns the client id and secret fields shared by every
// authenticated request body.
func (c *Client) credentials() map[string]any {
	return map[string]any{
		"client_id": c.clientID,
		"secret":    c.secret,
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
