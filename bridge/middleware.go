package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/smarttavern/tavern-host-sdk/capability"
)

// Middleware wraps a capability.Func to add cross-cutting behavior around
// every builtin capability call. Middleware executes in FIFO order (first
// added wraps outermost).
type Middleware func(next capability.Func) capability.Func

// Chain applies middleware around fn, first middleware outermost.
func Chain(fn capability.Func, mw ...Middleware) capability.Func {
	for i := len(mw) - 1; i >= 0; i-- {
		fn = mw[i](fn)
	}
	return fn
}

// CallInfo identifies the capability call in flight. It travels on the
// context so middleware and host implementations can attribute work to the
// calling plugin.
type CallInfo struct {
	// Plugin is the loader slot ID of the calling plugin, when known.
	Plugin string
	// Capability is the invoked capability name.
	Capability string
	// CallID is the wire correlation ID, empty for in-process calls.
	CallID string
}

type callInfoKey struct{}

// WithCallInfo returns a context carrying info.
func WithCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallInfoFrom extracts the call info from ctx, if present.
func CallInfoFrom(ctx context.Context) (CallInfo, bool) {
	info, ok := ctx.Value(callInfoKey{}).(CallInfo)
	return info, ok
}

// LoggingMiddleware logs every capability call with its latency and outcome
// at debug level, failures at warn.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next capability.Func) capability.Func {
		return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
			info, _ := CallInfoFrom(ctx)
			start := time.Now()
			result, err := next(ctx, args)
			elapsed := time.Since(start)
			if err != nil {
				logger.Warn("capability call failed",
					"capability", info.Capability,
					"plugin", info.Plugin,
					"elapsed", elapsed,
					"error", err)
			} else {
				logger.Debug("capability call",
					"capability", info.Capability,
					"plugin", info.Plugin,
					"elapsed", elapsed)
			}
			return result, err
		}
	}
}
