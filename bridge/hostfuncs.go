package bridge

import (
	"context"
	"encoding/json"

	"github.com/smarttavern/tavern-host-sdk/abi"
)

// Capability names exposed through the bridge. The set is fixed at build
// time; plugins extend behavior by registering additional names through the
// registry, never by redefining this contract.
const (
	CapGetCharAvatarPath    = "getCharAvatarPath"
	CapGetPersonaAvatarPath = "getPersonaAvatarPath"
	CapGetChar              = "getChar"
	CapGetPersona           = "getPersona"
	CapGetChatSettings      = "getChatSettings"
	CapGetChatSettingsField = "getChatSettingsField"
	CapGetLlmConfig         = "getLlmConfig"
	CapGetLlmConfigField    = "getLlmConfigField"
	CapGetPreset            = "getPreset"
	CapGetWorldBooks        = "getWorldBooks"
	CapGetRegexRules        = "getRegexRules"

	CapGetVariable     = "getVariable"
	CapGetVariables    = "getVariables"
	CapGetVariableJSON = "getVariableJSON"
	CapSetVariable     = "setVariable"
	CapSetVariables    = "setVariables"
	CapDeleteVariable  = "deleteVariable"
	CapDeleteVariables = "deleteVariables"

	CapChatCompletion                  = "chatCompletion"
	CapChatCompletionWithCurrentConfig = "chatCompletionWithCurrentConfig"
	CapAssemblePrompt                  = "assemblePrompt"
	CapAssemblePromptWithCurrentConfig = "assemblePromptWithCurrentConfig"
	CapPostprocessPrompt               = "postprocessPrompt"
	CapPostprocessPromptWithCurrent    = "postprocessPromptWithCurrentConfig"
	CapRoutePromptWithHooks            = "routePromptWithHooks"
	CapCompleteWithHooks               = "completeWithHooks"

	CapShowToast        = "showToast"
	CapShowToastSuccess = "showToast.success"
	CapShowToastError   = "showToast.error"
	CapShowToastWarning = "showToast.warning"
	CapShowToastInfo    = "showToast.info"

	CapShowOptions         = "showOptions"
	CapShowOptionsSingle   = "showOptions.single"
	CapShowOptionsMultiple = "showOptions.multiple"
	CapShowOptionsAny      = "showOptions.any"

	CapGetCapabilitySchema = "getCapabilitySchema"
)

// HostFuncs is the typed host-side surface backing the builtin capabilities.
// A nil field means the capability is not wired on this host: placeholder
// capabilities then log a diagnostic and return their declared unavailable
// value, must-throw capabilities fail the call.
//
// Functions without a context are the synchronous capability group and must
// return or fail immediately, never block.
type HostFuncs struct {
	// Avatar and state snapshot getters (sync).
	GetCharAvatarPath    func() string
	GetPersonaAvatarPath func() string
	GetChar              func(key string) any
	GetPersona           func(key string) any
	GetChatSettings      func() map[string]any
	GetChatSettingsField func(key string) any
	GetLlmConfig         func() map[string]any
	GetLlmConfigField    func(key string) any
	GetPreset            func(key string) any
	GetWorldBooks        func(key string) any
	GetRegexRules        func(key string) any

	// Variable store (async). Reads degrade to placeholders when unwired;
	// writes are must-throw.
	GetVariable     func(ctx context.Context, key string) (any, error)
	GetVariables    func(ctx context.Context, keys ...string) (map[string]any, error)
	GetVariableJSON func(ctx context.Context, key string) (json.RawMessage, error)
	SetVariable     func(ctx context.Context, key string, value any) error
	SetVariables    func(ctx context.Context, values map[string]any) error
	DeleteVariable  func(ctx context.Context, key string) error
	DeleteVariables func(ctx context.Context, keys []string) error

	// Completion and prompt pipeline (async, must-throw).
	ChatCompletion                  func(ctx context.Context, params abi.CompletionParams) (*abi.CompletionResult, error)
	ChatCompletionWithCurrentConfig func(ctx context.Context, params abi.CompletionParams) (*abi.CompletionResult, error)
	AssemblePrompt                  func(ctx context.Context, params abi.PromptParams) ([]abi.Message, error)
	AssemblePromptWithCurrentConfig func(ctx context.Context, params abi.PromptParams) ([]abi.Message, error)
	PostprocessPrompt               func(ctx context.Context, params abi.PromptParams) ([]abi.Message, error)
	PostprocessPromptWithCurrent    func(ctx context.Context, params abi.PromptParams) ([]abi.Message, error)
	RoutePromptWithHooks            func(ctx context.Context, params abi.HookedParams) ([]abi.Message, error)
	CompleteWithHooks               func(ctx context.Context, params abi.HookedParams) (*abi.CompletionResult, error)

	// UI surface. ShowToast is sync fire-and-forget; ShowOptions suspends
	// the caller until the user resolves the dialog.
	ShowToast   func(toast abi.Toast)
	ShowOptions func(ctx context.Context, cfg abi.OptionsConfig) (abi.OptionsChoice, error)

	// CapabilitySchema serves the JSON parameter schema published for a
	// capability name (sync). An unknown name is "no schema", not an error.
	CapabilitySchema func(name string) (string, bool)
}
