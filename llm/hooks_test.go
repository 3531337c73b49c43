package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttavern/tavern-host-sdk/abi"
	"github.com/smarttavern/tavern-host-sdk/chat"
	"github.com/smarttavern/tavern-host-sdk/hookmetrics"
)

// completionServer answers every request with a fixed assistant reply and
// records the prompts it received.
func completionServer(t *testing.T, reply string) (*httptest.Server, *[][]abi.Message) {
	t.Helper()
	var seen [][]abi.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req.Messages)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"model":%q,"choices":[{"message":{"role":"assistant","content":%q},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
			req.Model, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func Test_Pipeline_Route(t *testing.T) {
	t.Run("runs assemble hooks around routing", func(t *testing.T) {
		var order []string
		p := NewPipeline("main", NewAssembler(newTestState()), nil, nil)
		p.On(HookBeforeAssemble, func(ctx context.Context, messages []abi.Message) ([]abi.Message, error) {
			order = append(order, "before")
			return append(messages, abi.Message{Role: "user", Content: "injected history"}), nil
		})
		p.On(HookAfterAssemble, func(ctx context.Context, messages []abi.Message) ([]abi.Message, error) {
			order = append(order, "after")
			return messages, nil
		})

		messages, err := p.Route(context.Background(), abi.HookedParams{
			Prompt: abi.PromptParams{PresetKey: "default", UserInput: "hello"},
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"before", "after"}, order)
		require.Len(t, messages, 3)
		assert.Equal(t, "injected history", messages[1].Content)
	})

	t.Run("hook error aborts and is wrapped with the hook name", func(t *testing.T) {
		p := NewPipeline("main", NewAssembler(chat.NewState()), nil, nil)
		p.On(HookBeforeAssemble, func(ctx context.Context, messages []abi.Message) ([]abi.Message, error) {
			return nil, fmt.Errorf("boom")
		})

		_, err := p.Route(context.Background(), abi.HookedParams{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), HookBeforeAssemble)
	})

	t.Run("hooks at one point run in registration order", func(t *testing.T) {
		p := NewPipeline("main", NewAssembler(chat.NewState()), nil, nil)
		for i := range 3 {
			p.On(HookAfterAssemble, func(ctx context.Context, messages []abi.Message) ([]abi.Message, error) {
				return append(messages, abi.Message{Role: "system", Content: fmt.Sprintf("hook-%d", i)}), nil
			})
		}

		messages, err := p.Route(context.Background(), abi.HookedParams{
			Prompt: abi.PromptParams{UserInput: "hi"},
		})

		require.NoError(t, err)
		require.Len(t, messages, 4)
		assert.Equal(t, "hook-0", messages[1].Content)
		assert.Equal(t, "hook-2", messages[3].Content)
	})

	t.Run("records timing and errors per hook point", func(t *testing.T) {
		metrics := hookmetrics.NewCollector()
		p := NewPipeline("strategy-a", NewAssembler(chat.NewState()), nil, metrics)
		p.On(HookBeforeAssemble, func(ctx context.Context, messages []abi.Message) ([]abi.Message, error) {
			return messages, nil
		})
		p.On(HookBeforeAssemble, func(ctx context.Context, messages []abi.Message) ([]abi.Message, error) {
			return nil, fmt.Errorf("boom")
		})

		_, err := p.Route(context.Background(), abi.HookedParams{})
		require.Error(t, err)

		metric, ok := metrics.Get("strategy-a", HookBeforeAssemble)
		require.True(t, ok)
		assert.Equal(t, int64(2), metric.CallCount)
		assert.Equal(t, int64(1), metric.ErrorCount)
	})
}

func Test_Pipeline_Complete(t *testing.T) {
	t.Run("routes, completes and returns the hooked reply", func(t *testing.T) {
		srv, seen := completionServer(t, "the reply")
		client := NewClient(Config{BaseURL: srv.URL, Model: "test-model"})
		p := NewPipeline("main", NewAssembler(newTestState()), client, nil)
		p.On(HookAfterComplete, func(ctx context.Context, messages []abi.Message) ([]abi.Message, error) {
			last := &messages[len(messages)-1]
			last.Content = "[edited] " + last.Content
			return messages, nil
		})

		result, err := p.Complete(context.Background(), abi.HookedParams{
			Prompt: abi.PromptParams{PresetKey: "default", UserInput: "hello"},
		})

		require.NoError(t, err)
		assert.Equal(t, "[edited] the reply", result.Content)
		require.Len(t, *seen, 1)
		assert.Equal(t, "hello", (*seen)[0][len((*seen)[0])-1].Content)
	})

	t.Run("before_complete hooks shape the upstream prompt", func(t *testing.T) {
		srv, seen := completionServer(t, "ok")
		client := NewClient(Config{BaseURL: srv.URL, Model: "test-model"})
		p := NewPipeline("main", NewAssembler(chat.NewState()), client, nil)
		p.On(HookBeforeComplete, func(ctx context.Context, messages []abi.Message) ([]abi.Message, error) {
			return append([]abi.Message{{Role: "system", Content: "be brief"}}, messages...), nil
		})

		_, err := p.Complete(context.Background(), abi.HookedParams{
			Prompt: abi.PromptParams{UserInput: "hi"},
		})

		require.NoError(t, err)
		require.Len(t, *seen, 1)
		assert.Equal(t, "be brief", (*seen)[0][0].Content)
	})

	t.Run("upstream failure propagates without after hooks", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"model not found"}}`, http.StatusNotFound)
		}))
		t.Cleanup(srv.Close)
		client := NewClient(Config{BaseURL: srv.URL, Model: "missing"})
		p := NewPipeline("main", NewAssembler(chat.NewState()), client, nil)
		ran := false
		p.On(HookAfterComplete, func(ctx context.Context, messages []abi.Message) ([]abi.Message, error) {
			ran = true
			return messages, nil
		})

		_, err := p.Complete(context.Background(), abi.HookedParams{
			Prompt: abi.PromptParams{UserInput: "hi"},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not found")
		assert.False(t, ran)
	})
}
