package entities

import (
	"errors"
	"fmt"

	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

// Sentinels for errors.Is checks; the typed errors below carry the detail.
var (
	// ErrPluginNotFound is returned when no source has the plugin.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrIntegrityCheckFailed is returned when digest verification fails.
	ErrIntegrityCheckFailed = errors.New("integrity check failed")

	// ErrManifestInvalid is returned when a manifest violates an invariant.
	ErrManifestInvalid = errors.New("invalid plugin manifest")
)

// IntegrityError reports a digest mismatch.
type IntegrityError struct {
	Expected values.Digest
	Actual   values.Digest
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed: expected %s, got %s", e.Expected.String(), e.Actual.String())
}

// Is matches ErrIntegrityCheckFailed.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityCheckFailed
}

// PluginNotFoundError reports which plugin could not be located.
type PluginNotFoundError struct {
	Ref values.SourceRef
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("plugin not found: %s", e.Ref.String())
}

// Is matches ErrPluginNotFound.
func (e *PluginNotFoundError) Is(target error) bool {
	return target == ErrPluginNotFound
}

// ManifestError reports which manifest field is invalid and why.
type ManifestError struct {
	Field  string
	Reason string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("invalid plugin manifest: %s: %s", e.Field, e.Reason)
}

// Is matches ErrManifestInvalid.
func (e *ManifestError) Is(target error) bool {
	return target == ErrManifestInvalid
}
