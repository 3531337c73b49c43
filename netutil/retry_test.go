package netutil_test

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttavern/tavern-host-sdk/netutil"
)

// scriptedTransport replays a fixed sequence of responses and errors.
type scriptedTransport struct {
	responses []*http.Response
	errors    []error
	calls     int
}

func (s *scriptedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errors) && s.errors[idx] != nil {
		return nil, s.errors[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return okResponse(), nil
}

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok"))}
}

func statusResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader("")), Header: http.Header{}}
}

func Test_RetryTransport(t *testing.T) {
	t.Run("success on the first attempt does not retry", func(t *testing.T) {
		script := &scriptedTransport{responses: []*http.Response{okResponse()}}
		transport := &netutil.RetryTransport{Base: script, MaxRetries: 3}

		req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
		resp, err := transport.RoundTrip(req)

		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, script.calls)
	})

	t.Run("retries 429 until success", func(t *testing.T) {
		script := &scriptedTransport{responses: []*http.Response{
			statusResponse(http.StatusTooManyRequests),
			statusResponse(http.StatusTooManyRequests),
			okResponse(),
		}}
		var attempts []int
		transport := &netutil.RetryTransport{
			Base:           script,
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
			OnRetry: func(attempt int, _ time.Duration, _ int) {
				attempts = append(attempts, attempt)
			},
		}

		req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
		resp, err := transport.RoundTrip(req)

		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 3, script.calls)
		assert.Equal(t, []int{1, 2}, attempts)
	})

	t.Run("retries transient 5xx codes", func(t *testing.T) {
		for _, code := range []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
			t.Run(http.StatusText(code), func(t *testing.T) {
				script := &scriptedTransport{responses: []*http.Response{statusResponse(code), okResponse()}}
				transport := &netutil.RetryTransport{Base: script, MaxRetries: 3, InitialBackoff: time.Millisecond}

				req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
				resp, err := transport.RoundTrip(req)

				require.NoError(t, err)
				defer func() { _ = resp.Body.Close() }()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				assert.Equal(t, 2, script.calls)
			})
		}
	})

	t.Run("client errors are final", func(t *testing.T) {
		for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
			t.Run(http.StatusText(code), func(t *testing.T) {
				script := &scriptedTransport{responses: []*http.Response{statusResponse(code)}}
				transport := &netutil.RetryTransport{Base: script, MaxRetries: 3, InitialBackoff: time.Millisecond}

				req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
				resp, err := transport.RoundTrip(req)

				require.NoError(t, err)
				defer func() { _ = resp.Body.Close() }()
				assert.Equal(t, code, resp.StatusCode)
				assert.Equal(t, 1, script.calls)
			})
		}
	})

	t.Run("retries network errors", func(t *testing.T) {
		script := &scriptedTransport{
			errors:    []error{fmt.Errorf("connection reset")},
			responses: []*http.Response{nil, okResponse()},
		}
		transport := &netutil.RetryTransport{Base: script, MaxRetries: 3, InitialBackoff: time.Millisecond}

		req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
		resp, err := transport.RoundTrip(req)

		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, 2, script.calls)
	})

	t.Run("honors Retry-After in seconds", func(t *testing.T) {
		limited := statusResponse(http.StatusTooManyRequests)
		limited.Header.Set("Retry-After", "1")
		script := &scriptedTransport{responses: []*http.Response{limited, okResponse()}}

		var wait time.Duration
		transport := &netutil.RetryTransport{
			Base:           script,
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
			OnRetry: func(_ int, d time.Duration, _ int) {
				wait = d
			},
		}

		req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
		resp, err := transport.RoundTrip(req)

		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, time.Second, wait)
	})
}
