// Package llm implements the host side of the completion and prompt
// capabilities: an OpenAI-compatible chat completion client with optional
// streaming, a prompt assembler over the session state, and the hooked
// execution pipeline that feeds the hook metrics collector.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/smarttavern/tavern-host-sdk/abi"
	"github.com/smarttavern/tavern-host-sdk/netutil"
)

// Config is one LLM endpoint configuration. The zero value is unusable; at
// minimum BaseURL and Model must be set.
type Config struct {
	BaseURL     string   `json:"base_url"`
	APIKey      string   `json:"api_key,omitempty"`
	Model       string   `json:"model"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// Client performs chat completions against an OpenAI-compatible endpoint.
type Client struct {
	config      Config
	httpClient  *http.Client
	maxBodySize int64
	streams     *streamTable
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxBodySize caps the response body size for non-streaming calls.
func WithMaxBodySize(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithClientLogger sets the client's logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a completion client for cfg. The default transport
// retries transient upstream failures with exponential backoff and verifies
// TLS with the shared config.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	c := &Client{
		config:      cfg,
		maxBodySize: 10 * 1024 * 1024,
		streams:     newStreamTable(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: 120 * time.Second,
			Transport: &netutil.RetryTransport{
				Base: &http.Transport{
					ForceAttemptHTTP2:   true,
					MaxIdleConns:        10,
					IdleConnTimeout:     90 * time.Second,
					TLSHandshakeTimeout: 10 * time.Second,
					TLSClientConfig:     netutil.TLSConfig(),
				},
			},
		}
	}
	return c
}

// wire shapes of the OpenAI-compatible completions API.
type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []abi.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      abi.Message `json:"message"`
		Delta        abi.Message `json:"delta"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *abi.Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete performs a chat completion. With params.Stream set it returns
// immediately with a CompletionResult carrying a stream handle; chunks are
// then read through NextChunk until Done.
func (c *Client) Complete(ctx context.Context, params abi.CompletionParams) (*abi.CompletionResult, error) {
	cfg := c.config
	if len(params.Config) > 0 {
		if err := json.Unmarshal(params.Config, &cfg); err != nil {
			return nil, fmt.Errorf("invalid completion config: %w", err)
		}
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("completion config has no base URL")
	}

	req := completionRequest{
		Model:       cfg.Model,
		Messages:    params.Messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Stop:        params.Stop,
		Stream:      params.Stream,
	}
	if params.Model != "" {
		req.Model = params.Model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = cfg.MaxTokens
	}
	if req.Temperature == nil {
		req.Temperature = cfg.Temperature
	}
	if req.TopP == nil {
		req.TopP = cfg.TopP
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, c.upstreamError(resp)
	}

	if params.Stream {
		streamID := c.streams.open()
		go c.consumeStream(streamID, resp.Body)
		return &abi.CompletionResult{StreamID: streamID, Model: req.Model}, nil
	}

	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(netutil.NewLimitedReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}

	var decoded completionResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("upstream error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("completion response has no choices")
	}

	choice := decoded.Choices[0]
	return &abi.CompletionResult{
		Content:      choice.Message.Content,
		Model:        decoded.Model,
		FinishReason: choice.FinishReason,
		Usage:        decoded.Usage,
	}, nil
}

func (c *Client) upstreamError(resp *http.Response) error {
	data, _ := io.ReadAll(netutil.NewLimitedReader(resp.Body, 64*1024))
	var decoded completionResponse
	if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error != nil {
		return fmt.Errorf("upstream %d: %s", resp.StatusCode, decoded.Error.Message)
	}
	return fmt.Errorf("upstream %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
