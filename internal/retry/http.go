// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retry

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ObservingTransport wraps an http.RoundTripper so a Gate sees every
// provider response. A 2xx response resets the gate. Responses are
// returned unchanged; classifying a 429 is up to the caller (see
// FromResponse).
type ObservingTransport struct {
	Base http.RoundTripper
	Gate *Gate
}

// NewClient returns an http.Client whose transport observes g.
func NewClient(g *Gate, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &ObservingTransport{Gate: g},
	}
}

// RoundTrip implements http.RoundTripper.
func (t *ObservingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	g := t.Gate
	if g == nil {
		g = Shared
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		g.ObserveSuccess()
	}
	return resp, nil
}

// FromResponse returns the rate-limit error for a 429 response whose body
// has already been read, or nil for any other status. The wait hint comes
// from the Retry-After header or, failing that, a retryDelay in the body.
func FromResponse(resp *http.Response, body []byte) *RateLimitError {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	target := ""
	if resp.Request != nil {
		target = resp.Request.Method + " " + resp.Request.URL.Redacted() + ": "
	}
	return &RateLimitError{
		RetryAfter: RetryAfter(resp.Header.Get("Retry-After"), body),
		Err:        fmt.Errorf("%sstatus 429: %s", target, bytes.TrimSpace(body)),
	}
}

// RetryAfter parses a Retry-After header (seconds or an HTTP date) and
// falls back to the hint in body.
func RetryAfter(header string, body []byte) time.Duration {
	if header = strings.TrimSpace(header); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(header); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
		}
	}
	return ParseDelay(string(body))
}
