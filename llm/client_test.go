package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttavern/tavern-host-sdk/abi"
)

func Test_Client_Complete(t *testing.T) {
	t.Run("returns content, usage and finish reason", func(t *testing.T) {
		srv, _ := completionServer(t, "hi there")
		client := NewClient(Config{BaseURL: srv.URL, Model: "test-model", APIKey: "secret"})

		result, err := client.Complete(context.Background(), abi.CompletionParams{
			Messages: []abi.Message{{Role: "user", Content: "hello"}},
		})

		require.NoError(t, err)
		assert.Equal(t, "hi there", result.Content)
		assert.Equal(t, "stop", result.FinishReason)
		require.NotNil(t, result.Usage)
		assert.Equal(t, 5, result.Usage.TotalTokens)
	})

	t.Run("sends auth header and merged parameters", func(t *testing.T) {
		var gotAuth string
		var gotReq completionRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
		}))
		t.Cleanup(srv.Close)
		temp := 0.5
		client := NewClient(Config{BaseURL: srv.URL, Model: "base-model", APIKey: "secret", MaxTokens: 256, Temperature: &temp})

		_, err := client.Complete(context.Background(), abi.CompletionParams{
			Messages: []abi.Message{{Role: "user", Content: "hello"}},
			Model:    "override-model",
		})

		require.NoError(t, err)
		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, "override-model", gotReq.Model)
		assert.Equal(t, 256, gotReq.MaxTokens)
		require.NotNil(t, gotReq.Temperature)
		assert.Equal(t, 0.5, *gotReq.Temperature)
	})

	t.Run("per-call config replaces the client config", func(t *testing.T) {
		var gotReq completionRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
		}))
		t.Cleanup(srv.Close)
		client := NewClient(Config{BaseURL: "http://unused.invalid", Model: "base-model"})

		cfg, err := json.Marshal(Config{BaseURL: srv.URL, Model: "call-model"})
		require.NoError(t, err)
		_, err = client.Complete(context.Background(), abi.CompletionParams{
			Messages: []abi.Message{{Role: "user", Content: "hello"}},
			Config:   cfg,
		})

		require.NoError(t, err)
		assert.Equal(t, "call-model", gotReq.Model)
	})

	t.Run("missing base URL fails", func(t *testing.T) {
		client := NewClient(Config{Model: "m"})

		_, err := client.Complete(context.Background(), abi.CompletionParams{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "base URL")
	})

	t.Run("invalid per-call config fails", func(t *testing.T) {
		client := NewClient(Config{BaseURL: "http://unused.invalid"})

		_, err := client.Complete(context.Background(), abi.CompletionParams{
			Config: json.RawMessage(`{"base_url":42}`),
		})

		require.Error(t, err)
	})

	t.Run("surfaces the upstream error body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"rate limited","type":"rate_limit"}}`, http.StatusForbidden)
		}))
		t.Cleanup(srv.Close)
		client := NewClient(Config{BaseURL: srv.URL, Model: "m"})

		_, err := client.Complete(context.Background(), abi.CompletionParams{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("response body larger than the limit fails", func(t *testing.T) {
		srv, _ := completionServer(t, "a perfectly ordinary reply")
		client := NewClient(Config{BaseURL: srv.URL, Model: "m"}, WithMaxBodySize(8))

		_, err := client.Complete(context.Background(), abi.CompletionParams{})

		require.Error(t, err)
	})
}

func Test_Client_Streaming(t *testing.T) {
	sseServer := func(t *testing.T, events ...string) *httptest.Server {
		t.Helper()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, ev := range events {
				fmt.Fprintf(w, "data: %s\n\n", ev)
			}
		}))
		t.Cleanup(srv.Close)
		return srv
	}

	t.Run("delivers deltas in order then done", func(t *testing.T) {
		srv := sseServer(t,
			`{"choices":[{"delta":{"content":"Hel"}}]}`,
			`{"choices":[{"delta":{"content":"lo"}}]}`,
			`[DONE]`,
		)
		client := NewClient(Config{BaseURL: srv.URL, Model: "m"})

		result, err := client.Complete(context.Background(), abi.CompletionParams{Stream: true})
		require.NoError(t, err)
		require.NotEmpty(t, result.StreamID)
		assert.Empty(t, result.Content)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var text string
		for {
			chunk, err := client.NextChunk(ctx, result.StreamID)
			require.NoError(t, err)
			text += chunk.Delta
			if chunk.Done {
				break
			}
		}
		assert.Equal(t, "Hello", text)

		_, err = client.NextChunk(ctx, result.StreamID)
		assert.ErrorIs(t, err, ErrUnknownStream)
	})

	t.Run("upstream stream error surfaces as an error chunk", func(t *testing.T) {
		srv := sseServer(t,
			`{"choices":[{"delta":{"content":"par"}}]}`,
			`{"error":{"message":"overloaded"}}`,
		)
		client := NewClient(Config{BaseURL: srv.URL, Model: "m"})

		result, err := client.Complete(context.Background(), abi.CompletionParams{Stream: true})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var last abi.StreamChunk
		for {
			chunk, err := client.NextChunk(ctx, result.StreamID)
			require.NoError(t, err)
			last = chunk
			if chunk.Done {
				break
			}
		}
		assert.Equal(t, "overloaded", last.Error)
	})

	t.Run("malformed events are skipped", func(t *testing.T) {
		srv := sseServer(t,
			`not json at all`,
			`{"choices":[{"delta":{"content":"fine"}}]}`,
			`[DONE]`,
		)
		client := NewClient(Config{BaseURL: srv.URL, Model: "m"})

		result, err := client.Complete(context.Background(), abi.CompletionParams{Stream: true})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		chunk, err := client.NextChunk(ctx, result.StreamID)
		require.NoError(t, err)
		assert.Equal(t, "fine", chunk.Delta)
	})

	t.Run("reading an unknown stream fails", func(t *testing.T) {
		client := NewClient(Config{BaseURL: "http://unused.invalid"})

		_, err := client.NextChunk(context.Background(), "no-such-stream")

		assert.ErrorIs(t, err, ErrUnknownStream)
	})

	t.Run("cancel releases the handle", func(t *testing.T) {
		srv := sseServer(t, `{"choices":[{"delta":{"content":"x"}}]}`, `[DONE]`)
		client := NewClient(Config{BaseURL: srv.URL, Model: "m"})

		result, err := client.Complete(context.Background(), abi.CompletionParams{Stream: true})
		require.NoError(t, err)

		client.CancelStream(result.StreamID)

		_, err = client.NextChunk(context.Background(), result.StreamID)
		assert.ErrorIs(t, err, ErrUnknownStream)
	})
}
