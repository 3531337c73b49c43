package entities

import (
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

// Plugin is the aggregate of plugin management: a fetched module with its
// verified digest and parsed manifest.
type Plugin struct {
	ref      values.SourceRef
	digest   values.Digest
	manifest Manifest
}

// NewPlugin creates a plugin entity.
func NewPlugin(ref values.SourceRef, digest values.Digest, manifest Manifest) *Plugin {
	return &Plugin{ref: ref, digest: digest, manifest: manifest}
}

// Ref returns the plugin's source reference.
func (p *Plugin) Ref() values.SourceRef { return p.ref }

// Digest returns the module's content hash.
func (p *Plugin) Digest() values.Digest { return p.digest }

// Manifest returns the plugin's manifest.
func (p *Plugin) Manifest() Manifest { return p.manifest }

// VerifyIntegrity checks the module digest against an expected value, such
// as a lockfile pin.
func (p *Plugin) VerifyIntegrity(expected values.Digest) error {
	if !p.digest.Equals(expected) {
		return &IntegrityError{Expected: expected, Actual: p.digest}
	}
	return nil
}
