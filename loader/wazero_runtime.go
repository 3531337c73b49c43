package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/smarttavern/tavern-host-sdk/bridge"
)

// WazeroRuntime instantiates plugin modules under wazero, one isolated
// runtime per instance so teardown of one plugin can never disturb another.
// The bridge's host module is installed into each realm before the guest
// starts, attributed to the plugin's slot ID.
type WazeroRuntime struct {
	resolver SourceResolver
	ns       *bridge.Namespace
	cache    wazero.CompilationCache
	logger   *slog.Logger
}

// WazeroOption configures a WazeroRuntime.
type WazeroOption func(*WazeroRuntime)

// WithCompilationCache shares compiled-module caching across instances.
func WithCompilationCache(cache wazero.CompilationCache) WazeroOption {
	return func(r *WazeroRuntime) { r.cache = cache }
}

// WithWazeroLogger sets the runtime's logger.
func WithWazeroLogger(l *slog.Logger) WazeroOption {
	return func(r *WazeroRuntime) { r.logger = l }
}

// NewWazeroRuntime creates a runtime resolving module bytes through
// resolver and exposing the capabilities reachable via ns.
func NewWazeroRuntime(resolver SourceResolver, ns *bridge.Namespace, opts ...WazeroOption) *WazeroRuntime {
	r := &WazeroRuntime{
		resolver: resolver,
		ns:       ns,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Instantiate builds a fresh sandboxed realm for the plugin at
// sourceLocation: resolve bytes, create the runtime, install WASI and the
// capability host module, then start the guest.
func (r *WazeroRuntime) Instantiate(ctx context.Context, sourceLocation string) (ModuleHandle, error) {
	wasmBytes, err := r.resolver.Resolve(ctx, sourceLocation)
	if err != nil {
		return nil, fmt.Errorf("resolve plugin source %q: %w", sourceLocation, err)
	}

	cfg := wazero.NewRuntimeConfig()
	if r.cache != nil {
		cfg = cfg.WithCompilationCache(r.cache)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	err = bridge.InstallHostModule(ctx, rt, r.ns,
		bridge.WithHostModulePlugin(SlotID(sourceLocation)),
		bridge.WithHostModuleLogger(r.logger),
	)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("install capability bridge: %w", err)
	}

	mod, err := rt.Instantiate(ctx, wasmBytes)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate plugin module: %w", err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("plugin _initialize failed: %w", err)
		}
	}

	return &wazeroHandle{runtime: rt, module: mod}, nil
}

type wazeroHandle struct {
	runtime wazero.Runtime
	module  api.Module
}

// Teardown calls the guest's optional teardown export, then closes the
// realm. The close always runs; a failing guest teardown is reported but
// does not keep the realm alive.
func (h *wazeroHandle) Teardown(ctx context.Context) error {
	var guestErr error
	if td := h.module.ExportedFunction("teardown"); td != nil {
		if _, err := td.Call(ctx); err != nil {
			guestErr = fmt.Errorf("guest teardown: %w", err)
		}
	}
	if err := h.runtime.Close(ctx); err != nil {
		return errors.Join(guestErr, fmt.Errorf("close runtime: %w", err))
	}
	return guestErr
}
