// Package tavernhost wires the full plugin host together: chat state, the
// LLM client and prompt pipeline, the UI surface, capability grants, and the
// WASM loader, all reachable by plugins through the bridge namespace.
package tavernhost

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/smarttavern/tavern-host-sdk/abi"
	"github.com/smarttavern/tavern-host-sdk/bridge"
	"github.com/smarttavern/tavern-host-sdk/capability"
	"github.com/smarttavern/tavern-host-sdk/chat"
	"github.com/smarttavern/tavern-host-sdk/eventbus"
	"github.com/smarttavern/tavern-host-sdk/grants"
	"github.com/smarttavern/tavern-host-sdk/hookmetrics"
	"github.com/smarttavern/tavern-host-sdk/llm"
	"github.com/smarttavern/tavern-host-sdk/loader"
	"github.com/smarttavern/tavern-host-sdk/ui"
)

// DefaultStrategy is the hook strategy used when a caller does not name one.
const DefaultStrategy = "default"

// Host is the assembled plugin host. Fields are exposed for embedding
// applications that need direct access to a subsystem.
type Host struct {
	State     *chat.State
	Vars      *chat.VarStore
	Client    *llm.Client
	Assembler *llm.Assembler
	Pipeline  *llm.Pipeline
	Registry  *capability.Registry
	Schemas   *capability.SchemaRegistry
	Bridge    *bridge.Bridge
	Namespace *bridge.Namespace
	Bus       *eventbus.Bus
	Metrics   *hookmetrics.Collector
	Loader    *loader.Loader

	notifier *ui.Notifier
	options  ui.OptionsPrompter
	logger   *slog.Logger
}

// HostOption configures a Host.
type HostOption func(*hostConfig)

type hostConfig struct {
	llm          llm.Config
	varStorePath string
	toastSink    ui.ToastSink
	prompter     ui.OptionsPrompter
	resolver     loader.SourceResolver
	gatekeeper   *grants.Gatekeeper
	middleware   []bridge.Middleware
	logger       *slog.Logger
}

// WithLLM sets the upstream completion endpoint configuration.
func WithLLM(cfg llm.Config) HostOption {
	return func(c *hostConfig) { c.llm = cfg }
}

// WithVariablesPath sets where plugin variables are persisted.
func WithVariablesPath(path string) HostOption {
	return func(c *hostConfig) { c.varStorePath = path }
}

// WithToastSink routes toast notifications to the embedding UI.
func WithToastSink(sink ui.ToastSink) HostOption {
	return func(c *hostConfig) { c.toastSink = sink }
}

// WithOptionsPrompter sets the dialog surface behind showOptions.
func WithOptionsPrompter(p ui.OptionsPrompter) HostOption {
	return func(c *hostConfig) { c.prompter = p }
}

// WithSourceResolver sets how plugin source locations resolve to module
// bytes. Typically a plugin.Service; defaults to reading the filesystem
// relative to the working directory.
func WithSourceResolver(r loader.SourceResolver) HostOption {
	return func(c *hostConfig) { c.resolver = r }
}

// WithGatekeeper enforces capability grants on every plugin call.
func WithGatekeeper(g *grants.Gatekeeper) HostOption {
	return func(c *hostConfig) { c.gatekeeper = g }
}

// WithHostMiddleware appends bridge middleware around every capability.
func WithHostMiddleware(mw ...bridge.Middleware) HostOption {
	return func(c *hostConfig) { c.middleware = append(c.middleware, mw...) }
}

// WithHostLogger sets the logger shared by all subsystems.
func WithHostLogger(l *slog.Logger) HostOption {
	return func(c *hostConfig) { c.logger = l }
}

// NewHost assembles a host. Subsystems without explicit configuration get
// working defaults: terminal UI surfaces, no grant enforcement, and plugin
// sources read from the local filesystem.
func NewHost(opts ...HostOption) (*Host, error) {
	cfg := hostConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	state := chat.NewState()

	var varOpts []chat.VarStoreOption
	if cfg.varStorePath != "" {
		varOpts = append(varOpts, chat.WithVarStorePath(cfg.varStorePath))
	}
	vars, err := chat.NewVarStore(varOpts...)
	if err != nil {
		return nil, err
	}

	client := llm.NewClient(cfg.llm, llm.WithClientLogger(cfg.logger))
	assembler := llm.NewAssembler(state)
	metrics := hookmetrics.NewCollector()
	pipeline := llm.NewPipeline(DefaultStrategy, assembler, client, metrics,
		llm.WithPipelineLogger(cfg.logger))

	sink := cfg.toastSink
	if sink == nil {
		sink = &ui.TerminalToasts{}
	}
	notifier := ui.NewNotifier(sink, ui.WithNotifierLogger(cfg.logger))

	prompter := cfg.prompter
	if prompter == nil {
		prompter = ui.NewTerminalOptions()
	}

	schemas := capability.NewSchemaRegistry()
	if err := registerBuiltinSchemas(schemas); err != nil {
		return nil, err
	}

	h := &Host{
		State:     state,
		Schemas:   schemas,
		Vars:      vars,
		Client:    client,
		Assembler: assembler,
		Pipeline:  pipeline,
		Metrics:   metrics,
		notifier:  notifier,
		options:   prompter,
		logger:    cfg.logger,
	}

	middleware := []bridge.Middleware{bridge.LoggingMiddleware(cfg.logger)}
	if cfg.gatekeeper != nil {
		middleware = append(middleware, cfg.gatekeeper.Middleware())
	}
	middleware = append(middleware, cfg.middleware...)

	h.Bridge = bridge.New(h.hostFuncs(),
		bridge.WithLogger(cfg.logger),
		bridge.WithMiddleware(middleware...))
	h.Registry = capability.NewRegistry(capability.WithLogger(cfg.logger))
	h.Namespace = h.Bridge.Build(h.Registry)

	h.Bus = eventbus.New(eventbus.WithLogger(cfg.logger))

	resolver := cfg.resolver
	if resolver == nil {
		resolver = loader.NewDirSource(".")
	}
	runtime := loader.NewWazeroRuntime(resolver, h.Namespace,
		loader.WithWazeroLogger(cfg.logger))
	h.Loader = loader.New(runtime,
		loader.WithBus(h.Bus),
		loader.WithMetrics(metrics),
		loader.WithLogger(cfg.logger))

	return h, nil
}

// Shutdown tears down every loaded plugin.
func (h *Host) Shutdown(ctx context.Context) {
	h.Loader.UnloadAll(ctx)
}

// hostFuncs binds every builtin capability to its subsystem.
func (h *Host) hostFuncs() *bridge.HostFuncs {
	return &bridge.HostFuncs{
		GetCharAvatarPath:    h.State.CharAvatarPath,
		GetPersonaAvatarPath: h.State.PersonaAvatarPath,
		GetChar: func(key string) any {
			c, ok := h.State.Character(key)
			if !ok {
				return nil
			}
			return c
		},
		GetPersona: func(key string) any {
			p, ok := h.State.Persona(key)
			if !ok {
				return nil
			}
			return p
		},
		GetChatSettings:      h.State.ChatSettings,
		GetChatSettingsField: h.State.ChatSettingsField,
		GetLlmConfig:         h.State.LlmConfig,
		GetLlmConfigField:    h.State.LlmConfigField,
		GetPreset:            h.State.Preset,
		GetWorldBooks:        func(key string) any { return h.State.WorldBooks(key) },
		GetRegexRules:        func(key string) any { return h.State.RegexRules(key) },

		GetVariable:     h.Vars.Get,
		GetVariables:    h.Vars.GetMany,
		GetVariableJSON: h.Vars.GetJSON,
		SetVariable:     h.Vars.Set,
		SetVariables:    h.Vars.SetMany,
		DeleteVariable:  h.Vars.Delete,
		DeleteVariables: h.Vars.DeleteMany,

		ChatCompletion:                  h.Client.Complete,
		ChatCompletionWithCurrentConfig: h.completeWithCurrentConfig,
		AssemblePrompt:                  h.Assembler.Assemble,
		AssemblePromptWithCurrentConfig: h.assembleWithCurrentConfig,
		PostprocessPrompt:               h.postprocess,
		PostprocessPromptWithCurrent:    h.postprocess,
		RoutePromptWithHooks:            h.Pipeline.Route,
		CompleteWithHooks:               h.Pipeline.Complete,

		ShowToast:   h.notifier.Notify,
		ShowOptions: h.options.Show,

		CapabilitySchema: h.Schemas.Schema,
	}
}

// registerBuiltinSchemas publishes the parameter schema for every builtin
// capability that takes a structured parameter object, generated from the
// wire types. Plugins introspect them through getCapabilitySchema.
func registerBuiltinSchemas(schemas *capability.SchemaRegistry) error {
	models := map[string]any{
		bridge.CapChatCompletion:                  abi.CompletionParams{},
		bridge.CapChatCompletionWithCurrentConfig: abi.CompletionParams{},
		bridge.CapAssemblePrompt:                  abi.PromptParams{},
		bridge.CapAssemblePromptWithCurrentConfig: abi.PromptParams{},
		bridge.CapPostprocessPrompt:               abi.PromptParams{},
		bridge.CapPostprocessPromptWithCurrent:    abi.PromptParams{},
		bridge.CapRoutePromptWithHooks:            abi.HookedParams{},
		bridge.CapCompleteWithHooks:               abi.HookedParams{},
		bridge.CapShowToast:                       abi.Toast{},
		bridge.CapShowOptions:                     abi.OptionsConfig{},
	}
	for name, model := range models {
		if err := schemas.RegisterSchema(name, model); err != nil {
			return err
		}
	}
	return nil
}

// currentConfig snapshots the host's active LLM config as a JSON override.
func (h *Host) currentConfig() json.RawMessage {
	cfg := h.State.LlmConfig()
	if len(cfg) == 0 {
		return nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		h.logger.Warn("llm config snapshot not serializable", "error", err)
		return nil
	}
	return raw
}

func (h *Host) completeWithCurrentConfig(ctx context.Context, params abi.CompletionParams) (*abi.CompletionResult, error) {
	if params.Config == nil {
		params.Config = h.currentConfig()
	}
	return h.Client.Complete(ctx, params)
}

func (h *Host) assembleWithCurrentConfig(ctx context.Context, params abi.PromptParams) ([]abi.Message, error) {
	if params.Config == nil {
		params.Config = h.currentConfig()
	}
	return h.Assembler.Assemble(ctx, params)
}

func (h *Host) postprocess(ctx context.Context, params abi.PromptParams) ([]abi.Message, error) {
	return h.Assembler.Postprocess(ctx, params.Messages)
}
