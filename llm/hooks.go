package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smarttavern/tavern-host-sdk/abi"
	"github.com/smarttavern/tavern-host-sdk/hookmetrics"
)

// Hook points of the routing pipeline, in execution order.
const (
	HookBeforeAssemble = "before_assemble"
	HookAfterAssemble  = "after_assemble"
	HookBeforeComplete = "before_complete"
	HookAfterComplete  = "after_complete"
)

// HookFunc transforms the message list at a hook point. Returning an error
// aborts the pipeline.
type HookFunc func(ctx context.Context, messages []abi.Message) ([]abi.Message, error)

// Pipeline runs prompt routing and completion with named hook points.
// Every hook invocation is timed and recorded against the pipeline's
// strategy in the metrics collector.
type Pipeline struct {
	strategy  string
	assembler *Assembler
	client    *Client
	metrics   *hookmetrics.Collector
	logger    *slog.Logger

	mu    sync.RWMutex
	hooks map[string][]HookFunc
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the pipeline's logger.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a hook pipeline for the named strategy. metrics may be
// nil, in which case hook timings are discarded.
func NewPipeline(strategy string, assembler *Assembler, client *Client, metrics *hookmetrics.Collector, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		strategy:  strategy,
		assembler: assembler,
		client:    client,
		metrics:   metrics,
		logger:    slog.Default(),
		hooks:     make(map[string][]HookFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Strategy returns the identifier hook timings are recorded under.
func (p *Pipeline) Strategy() string { return p.strategy }

// On registers fn at the named hook point. Hooks run in registration order.
func (p *Pipeline) On(hook string, fn HookFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks[hook] = append(p.hooks[hook], fn)
}

// runHooks executes every hook registered at the point, threading the
// message list through. Each run is recorded before errors propagate.
func (p *Pipeline) runHooks(ctx context.Context, hook string, messages []abi.Message) ([]abi.Message, error) {
	p.mu.RLock()
	fns := p.hooks[hook]
	p.mu.RUnlock()

	for _, fn := range fns {
		start := time.Now()
		next, err := fn(ctx, messages)
		if p.metrics != nil {
			p.metrics.Record(p.strategy, hook, time.Since(start), err)
		}
		if err != nil {
			return nil, fmt.Errorf("hook %s failed: %w", hook, err)
		}
		messages = next
	}
	return messages, nil
}

// Route assembles and postprocesses a prompt, running the assemble-phase
// hooks around it.
func (p *Pipeline) Route(ctx context.Context, params abi.HookedParams) ([]abi.Message, error) {
	messages, err := p.runHooks(ctx, HookBeforeAssemble, params.Prompt.Messages)
	if err != nil {
		return nil, err
	}

	prompt := params.Prompt
	prompt.Messages = messages
	assembled, err := p.assembler.Assemble(ctx, prompt)
	if err != nil {
		return nil, err
	}
	assembled, err = p.assembler.Postprocess(ctx, assembled)
	if err != nil {
		return nil, err
	}

	return p.runHooks(ctx, HookAfterAssemble, assembled)
}

// Complete routes the prompt and performs the completion, running the
// complete-phase hooks around the upstream call. The after_complete hooks
// see the assistant reply appended to the routed messages.
func (p *Pipeline) Complete(ctx context.Context, params abi.HookedParams) (*abi.CompletionResult, error) {
	messages, err := p.Route(ctx, params)
	if err != nil {
		return nil, err
	}
	messages, err = p.runHooks(ctx, HookBeforeComplete, messages)
	if err != nil {
		return nil, err
	}

	result, err := p.client.Complete(ctx, abi.CompletionParams{
		Messages: messages,
		Config:   params.Config,
	})
	if err != nil {
		return nil, err
	}

	final, err := p.runHooks(ctx, HookAfterComplete, append(messages, abi.Message{
		Role:    "assistant",
		Content: result.Content,
	}))
	if err != nil {
		return nil, err
	}
	if len(final) > 0 {
		if last := final[len(final)-1]; last.Role == "assistant" {
			result.Content = last.Content
		}
	}
	return result, nil
}
