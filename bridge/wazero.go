package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/smarttavern/tavern-host-sdk/abi"
)

// DefaultHostModuleName is the import namespace guests bind against.
const DefaultHostModuleName = "tavern"

// HostModuleOption configures InstallHostModule.
type HostModuleOption func(*hostModule)

// WithHostModuleName overrides the guest-visible import module name.
func WithHostModuleName(name string) HostModuleOption {
	return func(h *hostModule) { h.moduleName = name }
}

// WithHostModuleLogger sets the logger for wire-level diagnostics and guest
// log_message output.
func WithHostModuleLogger(l *slog.Logger) HostModuleOption {
	return func(h *hostModule) { h.logger = l }
}

// WithHostModulePlugin attributes every call through this module to the
// given loader slot ID.
func WithHostModulePlugin(pluginID string) HostModuleOption {
	return func(h *hostModule) { h.pluginID = pluginID }
}

type hostModule struct {
	ns         *Namespace
	moduleName string
	pluginID   string
	logger     *slog.Logger
}

// InstallHostModule compiles the namespace into a wazero host module and
// instantiates it on rt, making the capabilities importable by guests.
//
// Each capability registered at install time is exported under its bare
// name; the generic "invoke" export dispatches CallRequest envelopes through
// the live namespace, so capabilities registered after the realm was created
// stay reachable there. A "log_message" export carries guest logging to the
// host's slog.
func InstallHostModule(ctx context.Context, rt wazero.Runtime, ns *Namespace, opts ...HostModuleOption) error {
	h := &hostModule{
		ns:         ns,
		moduleName: DefaultHostModuleName,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	builder := rt.NewHostModuleBuilder(h.moduleName)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.invoke),
			[]api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
		Export("invoke")

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.logMessage),
			[]api.ValueType{api.ValueTypeI64}, nil).
		Export("log_message")

	for _, name := range ns.Names() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(h.direct(name)),
				[]api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
			Export(name)
	}

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("instantiate host module %q: %w", h.moduleName, err)
	}
	return nil
}

// invoke handles a full CallRequest envelope.
func (h *hostModule) invoke(ctx context.Context, m api.Module, stack []uint64) {
	payload, ok := readPacked(m, stack[0])
	if !ok {
		h.logger.Error("bridge: failed to read call request from guest memory")
		stack[0] = 0
		return
	}

	var req abi.CallRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.logger.Error("bridge: malformed call request", "error", err)
		stack[0] = h.respond(ctx, m, abi.CallResponse{
			OK:    false,
			Error: &abi.CallError{Code: abi.ErrCodeInvalidArgs, Message: err.Error()},
		})
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	stack[0] = h.respond(ctx, m, h.dispatch(ctx, req))
}

// direct handles a bare-name export: the payload is just the args array.
func (h *hostModule) direct(name string) func(ctx context.Context, m api.Module, stack []uint64) {
	return func(ctx context.Context, m api.Module, stack []uint64) {
		var args []json.RawMessage
		if payload, ok := readPacked(m, stack[0]); ok && len(payload) > 0 {
			if err := json.Unmarshal(payload, &args); err != nil {
				stack[0] = h.respond(ctx, m, abi.CallResponse{
					OK:    false,
					Error: &abi.CallError{Code: abi.ErrCodeInvalidArgs, Message: err.Error()},
				})
				return
			}
		}
		stack[0] = h.respond(ctx, m, h.dispatch(ctx, abi.CallRequest{
			ID:         uuid.NewString(),
			Capability: name,
			Args:       args,
		}))
	}
}

func (h *hostModule) dispatch(ctx context.Context, req abi.CallRequest) abi.CallResponse {
	callCtx := WithCallInfo(ctx, CallInfo{
		Plugin:     h.pluginID,
		Capability: req.Capability,
		CallID:     req.ID,
	})

	result, err := h.ns.Call(callCtx, req.Capability, req.Args)
	if err != nil {
		return abi.CallResponse{ID: req.ID, OK: false, Error: asCallError(err)}
	}
	return abi.CallResponse{ID: req.ID, OK: true, Result: result}
}

// respond serializes resp into guest memory and returns the packed location.
// Zero means the response could not be delivered.
func (h *hostModule) respond(ctx context.Context, m api.Module, resp abi.CallResponse) uint64 {
	out, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("bridge: failed to marshal call response", "error", err)
		return 0
	}
	packed, err := writeToGuest(ctx, m, out)
	if err != nil {
		h.logger.Error("bridge: failed to write call response to guest", "error", err)
		return 0
	}
	return packed
}

// logMessage forwards guest log output to the host logger, mirroring the
// guest's level and attributes.
func (h *hostModule) logMessage(ctx context.Context, m api.Module, stack []uint64) {
	payload, ok := readPacked(m, stack[0])
	if !ok {
		h.logger.Error("bridge: failed to read log message from guest memory")
		return
	}

	var msg abi.LogMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.logger.Error("bridge: malformed guest log message", "error", err)
		return
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(msg.Level)); err != nil {
		h.logger.Warn("bridge: unknown guest log level", "level", msg.Level)
	}

	attrs := make([]slog.Attr, 0, len(msg.Attrs)+1)
	if h.pluginID != "" {
		attrs = append(attrs, slog.String("plugin", h.pluginID))
	}
	for _, a := range msg.Attrs {
		attrs = append(attrs, slog.String(a.Key, a.Value))
	}
	h.logger.LogAttrs(ctx, level, msg.Message, attrs...)
}

func asCallError(err error) *abi.CallError {
	var ce *abi.CallError
	if errors.As(err, &ce) {
		return ce
	}
	return &abi.CallError{Code: abi.ErrCodeInternal, Message: err.Error()}
}

// Guest memory passing uses the packed uint64 convention: high 32 bits are
// the pointer, low 32 bits the length.

func unpackPtrLen(packed uint64) (ptr, length uint32) {
	//nolint:gosec // WASM pointers and lengths are 32-bit
	return uint32(packed >> 32), uint32(packed)
}

func packPtrLen(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

func readPacked(m api.Module, packed uint64) ([]byte, bool) {
	ptr, length := unpackPtrLen(packed)
	if length == 0 {
		return nil, true
	}
	data, ok := m.Memory().Read(ptr, length)
	if !ok {
		return nil, false
	}
	out := make([]byte, length)
	copy(out, data)
	return out, true
}

// writeToGuest allocates guest memory through the module's exported
// allocator and writes data there.
func writeToGuest(ctx context.Context, m api.Module, data []byte) (uint64, error) {
	allocate := m.ExportedFunction("allocate")
	if allocate == nil {
		return 0, errors.New("guest does not export 'allocate'")
	}
	res, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("guest allocate failed: %w", err)
	}
	//nolint:gosec // WASM pointers are 32-bit
	ptr := uint32(res[0])
	if !m.Memory().Write(ptr, data) {
		return 0, errors.New("failed to write to guest memory")
	}
	//nolint:gosec // WASM lengths are 32-bit
	return packPtrLen(ptr, uint32(len(data))), nil
}
