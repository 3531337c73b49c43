// Package bridge assembles the capability surface a sandboxed plugin realm
// is allowed to call. It turns the typed HostFuncs surface into uniform
// registry entries, installs them in batch, and exposes the result through a
// versioned namespace. Assembly itself never fails; wiring absences surface
// at call time as diagnostics and placeholders, or as errors for must-throw
// capabilities.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/smarttavern/tavern-host-sdk/abi"
	"github.com/smarttavern/tavern-host-sdk/capability"
)

var (
	jsonNull        = json.RawMessage("null")
	jsonEmptyList   = json.RawMessage("[]")
	jsonEmptyObject = json.RawMessage("{}")
)

// Bridge builds capability wrappers around a HostFuncs surface.
type Bridge struct {
	host       *HostFuncs
	logger     *slog.Logger
	version    string
	middleware []Middleware
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used for wiring diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithVersion overrides the namespace version marker.
func WithVersion(v string) Option {
	return func(b *Bridge) { b.version = v }
}

// WithMiddleware appends middleware applied around every builtin wrapper,
// in FIFO order (first added wraps outermost).
func WithMiddleware(mw ...Middleware) Option {
	return func(b *Bridge) { b.middleware = append(b.middleware, mw...) }
}

// New creates a Bridge over the given host surface. A nil host is accepted:
// Build then performs no registration and the namespace stays empty, so a
// realm without a usable host reference loads without throwing.
func New(host *HostFuncs, opts ...Option) *Bridge {
	b := &Bridge{
		host:    host,
		logger:  slog.Default(),
		version: abi.BridgeVersion,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Namespace is the well-known object through which sandboxed code reaches
// every registered capability without knowing the registry exists. It is
// backed by the live registry, so an entry registered before the bridge was
// built keeps winning under its name and late registrations become callable
// without a rebuild.
type Namespace struct {
	Version string

	reg *capability.Registry
}

// Call invokes the named capability with positional JSON arguments.
func (n *Namespace) Call(ctx context.Context, name string, args []json.RawMessage) (json.RawMessage, error) {
	if n.reg == nil {
		return nil, &abi.CallError{Code: abi.ErrCodeUnknownCapability, Message: fmt.Sprintf("capability %q: bridge not wired", name)}
	}
	c, ok := n.reg.Get(name)
	if !ok {
		return nil, &abi.CallError{Code: abi.ErrCodeUnknownCapability, Message: fmt.Sprintf("unknown capability %q", name)}
	}
	return c.Impl(ctx, args)
}

// Names returns the capability names currently reachable through the
// namespace.
func (n *Namespace) Names() []string {
	if n.reg == nil {
		return nil
	}
	return n.reg.List()
}

// Build registers one wrapper per builtin capability into reg and returns
// the namespace over it. Build never fails: a nil host logs one diagnostic
// and leaves the registry untouched, and any name already registered keeps
// its entry, protected or not, so registration ordering never loses a
// capability.
func (b *Bridge) Build(reg *capability.Registry) *Namespace {
	ns := &Namespace{Version: b.version, reg: reg}

	if b.host == nil {
		b.logger.Warn("bridge: no host surface available, capabilities not installed")
		return ns
	}

	caps := b.builtins()
	install := make([]capability.Capability, 0, len(caps))
	for _, c := range caps {
		if _, taken := reg.Get(c.Name); taken {
			b.logger.Debug("bridge: deferring to existing registration",
				"capability", c.Name)
			continue
		}
		c.Impl = Chain(c.Impl, b.middleware...)
		install = append(install, c)
	}
	installed := reg.RegisterBatch(install, capability.DefaultRegisterOptions())
	b.logger.Debug("bridge: builtin capabilities installed",
		"installed", installed,
		"total", len(caps),
		"version", b.version)

	return ns
}

// unavailable logs the wiring-absence diagnostic and returns the declared
// placeholder. Exactly one diagnostic per call, no exception.
func (b *Bridge) unavailable(name string, placeholder json.RawMessage) (json.RawMessage, error) {
	b.logger.Warn("bridge: capability has no host implementation",
		"capability", name)
	if placeholder == nil {
		placeholder = jsonNull
	}
	return placeholder, nil
}

// mustThrowUnavailable is the must-throw variant: missing wiring is a call
// failure, never a silent placeholder.
func (b *Bridge) mustThrowUnavailable(name string) (json.RawMessage, error) {
	b.logger.Warn("bridge: capability has no host implementation",
		"capability", name)
	return nil, &abi.CallError{
		Code:    abi.ErrCodeUnavailable,
		Message: fmt.Sprintf("capability %q is not available on this host", name),
	}
}

func (b *Bridge) builtins() []capability.Capability {
	syncCap := func(name string, unavailable json.RawMessage, impl capability.Func) capability.Capability {
		return capability.Capability{
			Name: name, Impl: impl,
			Mode: capability.Sync, Policy: capability.Placeholder,
			Unavailable: unavailable,
		}
	}
	asyncRead := func(name string, unavailable json.RawMessage, impl capability.Func) capability.Capability {
		return capability.Capability{
			Name: name, Impl: impl,
			Mode: capability.Async, Policy: capability.Placeholder,
			Unavailable: unavailable,
		}
	}
	mustThrow := func(name string, impl capability.Func) capability.Capability {
		return capability.Capability{
			Name: name, Impl: impl,
			Mode: capability.Async, Policy: capability.MustThrow,
		}
	}

	caps := []capability.Capability{
		syncCap(CapGetCharAvatarPath, jsonNull, b.wrapPathGetter(CapGetCharAvatarPath, b.host.GetCharAvatarPath)),
		syncCap(CapGetPersonaAvatarPath, jsonNull, b.wrapPathGetter(CapGetPersonaAvatarPath, b.host.GetPersonaAvatarPath)),
		syncCap(CapGetChar, jsonNull, b.wrapKeyedGetter(CapGetChar, jsonNull, b.host.GetChar)),
		syncCap(CapGetPersona, jsonNull, b.wrapKeyedGetter(CapGetPersona, jsonNull, b.host.GetPersona)),
		syncCap(CapGetChatSettings, jsonNull, b.wrapSnapshotGetter(CapGetChatSettings, b.host.GetChatSettings)),
		syncCap(CapGetChatSettingsField, jsonNull, b.wrapFieldGetter(CapGetChatSettingsField, b.host.GetChatSettingsField)),
		syncCap(CapGetLlmConfig, jsonNull, b.wrapSnapshotGetter(CapGetLlmConfig, b.host.GetLlmConfig)),
		syncCap(CapGetLlmConfigField, jsonNull, b.wrapFieldGetter(CapGetLlmConfigField, b.host.GetLlmConfigField)),
		syncCap(CapGetPreset, jsonNull, b.wrapKeyedGetter(CapGetPreset, jsonNull, b.host.GetPreset)),
		syncCap(CapGetWorldBooks, jsonEmptyList, b.wrapKeyedGetter(CapGetWorldBooks, jsonEmptyList, b.host.GetWorldBooks)),
		syncCap(CapGetRegexRules, jsonEmptyList, b.wrapKeyedGetter(CapGetRegexRules, jsonEmptyList, b.host.GetRegexRules)),

		asyncRead(CapGetVariable, jsonNull, b.wrapGetVariable()),
		asyncRead(CapGetVariables, jsonEmptyObject, b.wrapGetVariables()),
		asyncRead(CapGetVariableJSON, jsonNull, b.wrapGetVariableJSON()),
		mustThrow(CapSetVariable, b.wrapSetVariable()),
		mustThrow(CapSetVariables, b.wrapSetVariables()),
		mustThrow(CapDeleteVariable, b.wrapDeleteVariable()),
		mustThrow(CapDeleteVariables, b.wrapDeleteVariables()),

		mustThrow(CapChatCompletion, b.wrapCompletion(CapChatCompletion, b.host.ChatCompletion)),
		mustThrow(CapChatCompletionWithCurrentConfig, b.wrapCompletion(CapChatCompletionWithCurrentConfig, b.host.ChatCompletionWithCurrentConfig)),
		mustThrow(CapAssemblePrompt, b.wrapPrompt(CapAssemblePrompt, b.host.AssemblePrompt)),
		mustThrow(CapAssemblePromptWithCurrentConfig, b.wrapPrompt(CapAssemblePromptWithCurrentConfig, b.host.AssemblePromptWithCurrentConfig)),
		mustThrow(CapPostprocessPrompt, b.wrapPrompt(CapPostprocessPrompt, b.host.PostprocessPrompt)),
		mustThrow(CapPostprocessPromptWithCurrent, b.wrapPrompt(CapPostprocessPromptWithCurrent, b.host.PostprocessPromptWithCurrent)),
		mustThrow(CapRoutePromptWithHooks, b.wrapHookedRoute()),
		mustThrow(CapCompleteWithHooks, b.wrapHookedComplete()),

		syncCap(CapShowToast, jsonNull, b.wrapToast("")),
		syncCap(CapShowToastSuccess, jsonNull, b.wrapToast(abi.ToastSuccess)),
		syncCap(CapShowToastError, jsonNull, b.wrapToast(abi.ToastError)),
		syncCap(CapShowToastWarning, jsonNull, b.wrapToast(abi.ToastWarning)),
		syncCap(CapShowToastInfo, jsonNull, b.wrapToast(abi.ToastInfo)),

		asyncCapMust(CapShowOptions, b.wrapOptions("")),
		asyncCapMust(CapShowOptionsSingle, b.wrapOptions(abi.OptionsSingle)),
		asyncCapMust(CapShowOptionsMultiple, b.wrapOptions(abi.OptionsMultiple)),
		asyncCapMust(CapShowOptionsAny, b.wrapOptions(abi.OptionsAny)),

		syncCap(CapGetCapabilitySchema, jsonNull, b.wrapSchemaGetter()),
	}
	return caps
}

// showOptions resolves to the user's choice or fails; it never downgrades to
// a placeholder because the caller branches on the result.
func asyncCapMust(name string, impl capability.Func) capability.Capability {
	return capability.Capability{
		Name: name, Impl: impl,
		Mode: capability.Async, Policy: capability.MustThrow,
	}
}
