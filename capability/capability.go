// Package capability implements the registry of host capabilities callable
// from sandboxed plugin realms. The registry is the single source of truth
// for what a realm may invoke; exposing entries into the realm itself is an
// explicit side effect performed through a RealmBinder.
package capability

import (
	"context"
	"encoding/json"
)

// Func is the uniform callable shape stored in the registry. Arguments and
// results are JSON so the same entry can serve both in-process callers and
// the wire layer.
type Func func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error)

// Mode declares whether a capability may suspend the caller.
type Mode int

const (
	// Sync capabilities return or fail immediately and must never block.
	Sync Mode = iota
	// Async capabilities may suspend the sandboxed caller until the host's
	// own asynchronous work completes.
	Async
)

// FailurePolicy declares how a capability behaves when its host-side wiring
// is absent or the call fails.
type FailurePolicy int

const (
	// Placeholder capabilities log a diagnostic and return their declared
	// unavailable value instead of an error.
	Placeholder FailurePolicy = iota
	// MustThrow capabilities propagate failures to the caller unchanged.
	// Used for state-mutating and externally-consequential calls, where a
	// swallowed failure would corrupt caller assumptions.
	MustThrow
)

// Capability is one named, host-implemented function exposed to sandboxed
// code. Identity is Name.
type Capability struct {
	Name   string
	Impl   Func
	Mode   Mode
	Policy FailurePolicy

	// Unavailable is the JSON value returned when a Placeholder capability
	// has no host-side wiring ("null", "[]", "{}", ...). Empty means null.
	Unavailable json.RawMessage

	// overridable records the protection set by the first registrant.
	overridable bool
}

// Overridable reports whether a later registration may replace this entry.
func (c Capability) Overridable() bool { return c.overridable }

// RealmBinder exposes a registered capability inside a sandboxed realm, both
// under its bare name and through the realm's namespace object. A nil binder
// makes registration a registry-only operation, which keeps the registry
// testable without any realm.
type RealmBinder interface {
	Bind(name string, fn Func)
	Unbind(name string)
}
