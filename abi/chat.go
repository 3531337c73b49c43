package abi

import "encoding/json"

// Message is a single chat message in a prompt or completion exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// CompletionParams are the parameters for a chatCompletion call.
// When Config is nil the host's current LLM config is used
// (chatCompletionWithCurrentConfig).
type CompletionParams struct {
	Messages    []Message       `json:"messages"`
	Model       string          `json:"model,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// CompletionResult is the non-streaming result of a chatCompletion call.
// For streaming calls StreamID names the handle subsequent reads go through.
type CompletionResult struct {
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	StreamID     string `json:"stream_id,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk is one increment of a streaming completion.
type StreamChunk struct {
	StreamID string `json:"stream_id"`
	Delta    string `json:"delta"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// PromptParams are the parameters for assemblePrompt and postprocessPrompt.
type PromptParams struct {
	Messages   []Message       `json:"messages,omitempty"`
	UserInput  string          `json:"user_input,omitempty"`
	CharKey    string          `json:"char_key,omitempty"`
	PersonaKey string          `json:"persona_key,omitempty"`
	PresetKey  string          `json:"preset_key,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// HookedParams are the parameters for routePromptWithHooks and
// completeWithHooks. Strategy selects the hook strategy; empty means the
// host's default routing.
type HookedParams struct {
	Prompt   PromptParams    `json:"prompt"`
	Strategy string          `json:"strategy,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Toast levels accepted by showToast.
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastWarning = "warning"
	ToastInfo    = "info"
)

// Toast is a fire-and-forget notification for the hosting UI.
type Toast struct {
	Message  string `json:"message"`
	Level    string `json:"level,omitempty"`
	Title    string `json:"title,omitempty"`
	Duration int    `json:"duration_ms,omitempty"`
}

// Option dialog modes accepted by showOptions.
const (
	OptionsSingle   = "single"
	OptionsMultiple = "multiple"
	OptionsAny      = "any"
)

// OptionsConfig describes an option dialog presented to the user.
type OptionsConfig struct {
	Title   string   `json:"title,omitempty"`
	Prompt  string   `json:"prompt,omitempty"`
	Mode    string   `json:"mode,omitempty"`
	Options []string `json:"options"`
}

// OptionsChoice is the user's resolution of an option dialog.
// Selected holds the chosen options; FreeText is set in "any" mode when the
// user typed a value instead of picking one.
type OptionsChoice struct {
	Selected []string `json:"selected"`
	FreeText string   `json:"free_text,omitempty"`
	Canceled bool     `json:"canceled,omitempty"`
}
