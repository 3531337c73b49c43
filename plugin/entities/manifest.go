// Package entities contains the domain entities of plugin management:
// manifests, the plugin aggregate, and the lockfile.
package entities

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

// DefaultEntry is the module file a manifest points at when it does not
// name one.
const DefaultEntry = "plugin.wasm"

// Manifest describes a plugin: identity, the module file to instantiate,
// and the capability patterns it wants granted.
type Manifest struct {
	Name        values.PluginName `json:"name" yaml:"name"`
	Version     string            `json:"version" yaml:"version"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Author      string            `json:"author,omitempty" yaml:"author,omitempty"`
	License     string            `json:"license,omitempty" yaml:"license,omitempty"`

	// Entry is the wasm module file, relative to the plugin root.
	Entry string `json:"entry,omitempty" yaml:"entry,omitempty"`

	// Capabilities are the capability name patterns the plugin requests,
	// e.g. "getChar" or "showToast.*".
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`

	// Events are the host event names the plugin subscribes to.
	Events []string `json:"events,omitempty" yaml:"events,omitempty"`
}

// EntryFile returns the module file, defaulted.
func (m *Manifest) EntryFile() string {
	if m.Entry == "" {
		return DefaultEntry
	}
	return m.Entry
}

// Validate checks manifest invariants: a valid name, a parseable semantic
// version, and an entry that stays inside the plugin directory.
func (m *Manifest) Validate() error {
	if m.Name.IsEmpty() {
		return &ManifestError{Field: "name", Reason: "required"}
	}
	if m.Version == "" {
		return &ManifestError{Field: "version", Reason: "required"}
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return &ManifestError{Field: "version", Reason: fmt.Sprintf("not a semantic version: %v", err)}
	}
	if m.Entry != "" {
		if strings.HasPrefix(m.Entry, "/") {
			return &ManifestError{Field: "entry", Reason: "must be relative to the plugin root"}
		}
		for _, seg := range strings.Split(m.Entry, "/") {
			if seg == ".." {
				return &ManifestError{Field: "entry", Reason: "must not escape the plugin root"}
			}
		}
	}
	return nil
}
