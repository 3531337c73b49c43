package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smarttavern/tavern-host-sdk/abi"
	"github.com/smarttavern/tavern-host-sdk/capability"
)

// decodeArg unmarshals positional argument i into v. A missing or JSON-null
// argument leaves v at its zero value, matching optional parameters.
func decodeArg(args []json.RawMessage, i int, v any) error {
	if i >= len(args) || args[i] == nil || string(args[i]) == "null" {
		return nil
	}
	if err := json.Unmarshal(args[i], v); err != nil {
		return &abi.CallError{
			Code:    abi.ErrCodeInvalidArgs,
			Message: fmt.Sprintf("argument %d: %v", i, err),
		}
	}
	return nil
}

func marshalResult(v any) (json.RawMessage, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, &abi.CallError{Code: abi.ErrCodeInternal, Message: err.Error()}
	}
	return out, nil
}

func (b *Bridge) wrapPathGetter(name string, impl func() string) capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if impl == nil {
			return b.unavailable(name, jsonNull)
		}
		return marshalResult(impl())
	}
}

func (b *Bridge) wrapKeyedGetter(name string, placeholder json.RawMessage, impl func(key string) any) capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if impl == nil {
			return b.unavailable(name, placeholder)
		}
		var key string
		if err := decodeArg(args, 0, &key); err != nil {
			return nil, err
		}
		return marshalResult(impl(key))
	}
}

func (b *Bridge) wrapSnapshotGetter(name string, impl func() map[string]any) capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if impl == nil {
			return b.unavailable(name, jsonNull)
		}
		return marshalResult(impl())
	}
}

func (b *Bridge) wrapFieldGetter(name string, impl func(key string) any) capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if impl == nil {
			return b.unavailable(name, jsonNull)
		}
		var key string
		if err := decodeArg(args, 0, &key); err != nil {
			return nil, err
		}
		return marshalResult(impl(key))
	}
}

func (b *Bridge) wrapGetVariable() capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.GetVariable == nil {
			return b.unavailable(CapGetVariable, jsonNull)
		}
		var key string
		if err := decodeArg(args, 0, &key); err != nil {
			return nil, err
		}
		val, err := b.host.GetVariable(ctx, key)
		if err != nil {
			// Reads degrade: absent or failed lookups are "no value".
			b.logger.Debug("bridge: variable read failed", "key", key, "error", err)
			return jsonNull, nil
		}
		return marshalResult(val)
	}
}

func (b *Bridge) wrapGetVariables() capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.GetVariables == nil {
			return b.unavailable(CapGetVariables, jsonEmptyObject)
		}
		keys := make([]string, 0, len(args))
		for i := range args {
			var key string
			if err := decodeArg(args, i, &key); err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
		values, err := b.host.GetVariables(ctx, keys...)
		if err != nil {
			b.logger.Debug("bridge: variable batch read failed", "error", err)
			return jsonEmptyObject, nil
		}
		return marshalResult(values)
	}
}

func (b *Bridge) wrapGetVariableJSON() capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.GetVariableJSON == nil {
			return b.unavailable(CapGetVariableJSON, jsonNull)
		}
		var key string
		if err := decodeArg(args, 0, &key); err != nil {
			return nil, err
		}
		raw, err := b.host.GetVariableJSON(ctx, key)
		if err != nil {
			b.logger.Debug("bridge: variable JSON read failed", "key", key, "error", err)
			return jsonNull, nil
		}
		if raw == nil {
			return jsonNull, nil
		}
		return raw, nil
	}
}

func (b *Bridge) wrapSetVariable() capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.SetVariable == nil {
			return b.mustThrowUnavailable(CapSetVariable)
		}
		var key string
		if err := decodeArg(args, 0, &key); err != nil {
			return nil, err
		}
		var value any
		if err := decodeArg(args, 1, &value); err != nil {
			return nil, err
		}
		if err := b.host.SetVariable(ctx, key, value); err != nil {
			return nil, err
		}
		return jsonNull, nil
	}
}

func (b *Bridge) wrapSetVariables() capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.SetVariables == nil {
			return b.mustThrowUnavailable(CapSetVariables)
		}
		var values map[string]any
		if err := decodeArg(args, 0, &values); err != nil {
			return nil, err
		}
		if err := b.host.SetVariables(ctx, values); err != nil {
			return nil, err
		}
		return jsonNull, nil
	}
}

func (b *Bridge) wrapDeleteVariable() capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.DeleteVariable == nil {
			return b.mustThrowUnavailable(CapDeleteVariable)
		}
		var key string
		if err := decodeArg(args, 0, &key); err != nil {
			return nil, err
		}
		if err := b.host.DeleteVariable(ctx, key); err != nil {
			return nil, err
		}
		return jsonNull, nil
	}
}

func (b *Bridge) wrapDeleteVariables() capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.DeleteVariables == nil {
			return b.mustThrowUnavailable(CapDeleteVariables)
		}
		var keys []string
		if err := decodeArg(args, 0, &keys); err != nil {
			return nil, err
		}
		if err := b.host.DeleteVariables(ctx, keys); err != nil {
			return nil, err
		}
		return jsonNull, nil
	}
}

func (b *Bridge) wrapCompletion(name string, impl func(context.Context, abi.CompletionParams) (*abi.CompletionResult, error)) capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if impl == nil {
			return b.mustThrowUnavailable(name)
		}
		var params abi.CompletionParams
		if err := decodeArg(args, 0, &params); err != nil {
			return nil, err
		}
		result, err := impl(ctx, params)
		if err != nil {
			return nil, err
		}
		return marshalResult(result)
	}
}

func (b *Bridge) wrapPrompt(name string, impl func(context.Context, abi.PromptParams) ([]abi.Message, error)) capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if impl == nil {
			return b.mustThrowUnavailable(name)
		}
		var params abi.PromptParams
		if err := decodeArg(args, 0, &params); err != nil {
			return nil, err
		}
		messages, err := impl(ctx, params)
		if err != nil {
			return nil, err
		}
		return marshalResult(messages)
	}
}

func (b *Bridge) wrapHookedRoute() capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.RoutePromptWithHooks == nil {
			return b.mustThrowUnavailable(CapRoutePromptWithHooks)
		}
		var params abi.HookedParams
		if err := decodeArg(args, 0, &params); err != nil {
			return nil, err
		}
		messages, err := b.host.RoutePromptWithHooks(ctx, params)
		if err != nil {
			return nil, err
		}
		return marshalResult(messages)
	}
}

func (b *Bridge) wrapHookedComplete() capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.CompleteWithHooks == nil {
			return b.mustThrowUnavailable(CapCompleteWithHooks)
		}
		var params abi.HookedParams
		if err := decodeArg(args, 0, &params); err != nil {
			return nil, err
		}
		result, err := b.host.CompleteWithHooks(ctx, params)
		if err != nil {
			return nil, err
		}
		return marshalResult(result)
	}
}

// wrapToast accepts either a bare message string or a full Toast object.
// The leveled shorthands pin the level regardless of the payload.
func (b *Bridge) wrapToast(level string) capability.Func {
	name := CapShowToast
	if level != "" {
		name = CapShowToast + "." + level
	}
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.ShowToast == nil {
			return b.unavailable(name, jsonNull)
		}
		var toast abi.Toast
		var message string
		if err := decodeArg(args, 0, &message); err == nil && message != "" {
			toast.Message = message
		} else if err := decodeArg(args, 0, &toast); err != nil {
			return nil, err
		}
		if level != "" {
			toast.Level = level
		}
		if toast.Level == "" {
			toast.Level = abi.ToastInfo
		}
		b.host.ShowToast(toast)
		return jsonNull, nil
	}
}

// wrapSchemaGetter serves published parameter schemas. The schema string is
// already JSON and passes through untouched.
func (b *Bridge) wrapSchemaGetter() capability.Func {
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.CapabilitySchema == nil {
			return b.unavailable(CapGetCapabilitySchema, jsonNull)
		}
		var name string
		if err := decodeArg(args, 0, &name); err != nil {
			return nil, err
		}
		schema, ok := b.host.CapabilitySchema(name)
		if !ok {
			return jsonNull, nil
		}
		return json.RawMessage(schema), nil
	}
}

// wrapOptions pins the dialog mode for the shorthand forms.
func (b *Bridge) wrapOptions(mode string) capability.Func {
	name := CapShowOptions
	if mode != "" {
		name = CapShowOptions + "." + mode
	}
	return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
		if b.host.ShowOptions == nil {
			return b.mustThrowUnavailable(name)
		}
		var cfg abi.OptionsConfig
		if err := decodeArg(args, 0, &cfg); err != nil {
			return nil, err
		}
		if mode != "" {
			cfg.Mode = mode
		}
		if cfg.Mode == "" {
			cfg.Mode = abi.OptionsSingle
		}
		choice, err := b.host.ShowOptions(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return marshalResult(choice)
	}
}
