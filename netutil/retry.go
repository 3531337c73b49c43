// Package netutil holds the HTTP plumbing shared by the host's outbound
// clients: transient-failure retries, response size limits, and the TLS
// baseline.
package netutil

import (
	"net/http"
	"strconv"
	"time"
)

// RetryTransport wraps an http.RoundTripper with exponential backoff on
// transient failures. Retry-After headers are honored when the upstream
// sends them.
type RetryTransport struct {
	// Base is the underlying transport. Nil means http.DefaultTransport.
	Base http.RoundTripper

	// OnRetry, when set, is called before each retry with the 1-based
	// attempt number, the wait duration, and the status code that caused
	// the retry (0 for network errors).
	OnRetry func(attempt int, wait time.Duration, statusCode int)

	// MaxRetries is the number of retry attempts after the first try.
	// Zero means 3.
	MaxRetries int

	// InitialBackoff is the first wait duration. Zero means 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait duration. Zero means 30s.
	MaxBackoff time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	maxRetries := t.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	initial := t.InitialBackoff
	if initial == 0 {
		initial = time.Second
	}
	maxWait := t.MaxBackoff
	if maxWait == 0 {
		maxWait = 30 * time.Second
	}

	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// The body must be re-readable for retries.
		clone := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			clone.Body = body
		}

		resp, err := base.RoundTrip(clone)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				wait := t.backoff(attempt, initial, maxWait, nil)
				if t.OnRetry != nil {
					t.OnRetry(attempt+1, wait, 0)
				}
				time.Sleep(wait)
				continue
			}
			return nil, lastErr
		}

		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		lastResp = resp
		lastErr = nil
		if attempt < maxRetries {
			wait := t.backoff(attempt, initial, maxWait, resp)
			if t.OnRetry != nil {
				t.OnRetry(attempt+1, wait, resp.StatusCode)
			}
			_ = resp.Body.Close()
			time.Sleep(wait)
		}
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, lastErr
}

func (t *RetryTransport) backoff(attempt int, initial, maxWait time.Duration, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				return min(time.Duration(seconds)*time.Second, maxWait)
			}
			if at, err := http.ParseTime(retryAfter); err == nil {
				if wait := time.Until(at); wait > 0 {
					return min(wait, maxWait)
				}
				return initial
			}
		}
	}
	return min(initial*(1<<attempt), maxWait)
}

// retryableStatus reports whether the status code indicates a transient
// upstream condition. Client errors other than 429 are final.
func retryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
