// Package abi defines the wire types shared between the host and sandboxed
// plugin realms. Everything that crosses the realm boundary is JSON encoded
// and referenced by these shapes on both sides.
package abi

import "encoding/json"

// BridgeVersion marks the capability surface revision exposed to guests.
// Bump the minor on additive changes, the major on breaking ones.
const BridgeVersion = "2.4.0"

// CallRequest is the envelope a guest sends to invoke a host capability.
type CallRequest struct {
	// ID correlates the response with the request. Assigned by the caller.
	ID string `json:"id"`

	// Capability is the registered capability name, e.g. "getChar".
	Capability string `json:"capability"`

	// Args holds the positional arguments, JSON encoded.
	Args []json.RawMessage `json:"args,omitempty"`
}

// CallResponse is the envelope the host returns for a CallRequest.
type CallResponse struct {
	// ID echoes the request ID.
	ID string `json:"id"`

	// OK reports whether the call succeeded. When false, Error is set and
	// Result carries the capability's declared unavailable value, if any.
	OK bool `json:"ok"`

	// Result is the JSON-encoded return value.
	Result json.RawMessage `json:"result,omitempty"`

	// Error describes the failure for must-throw capabilities.
	Error *CallError `json:"error,omitempty"`
}

// CallError carries a structured failure across the realm boundary.
type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return e.Message
}

// Error codes returned in CallResponse envelopes.
const (
	ErrCodeUnknownCapability = "unknown_capability"
	ErrCodeUnavailable       = "capability_unavailable"
	ErrCodeDenied            = "capability_denied"
	ErrCodeInvalidArgs       = "invalid_arguments"
	ErrCodeInternal          = "internal"
)

// LogMessage is emitted by guests through the log_message host function.
type LogMessage struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Plugin  string    `json:"plugin,omitempty"`
	Attrs   []LogAttr `json:"attrs,omitempty"`
}

// LogAttr is a single structured logging attribute from a guest.
type LogAttr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}
