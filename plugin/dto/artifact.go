// Package dto holds transfer objects crossing the plugin management
// boundaries.
package dto

import (
	"io"

	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
)

// Artifact pairs a plugin entity with its module bytes in transit.
type Artifact struct {
	Plugin *entities.Plugin
	Module io.ReadCloser
}

// NewArtifact creates an artifact.
func NewArtifact(plugin *entities.Plugin, module io.ReadCloser) *Artifact {
	return &Artifact{Plugin: plugin, Module: module}
}

// Close releases the module stream.
func (a *Artifact) Close() error {
	if a.Module != nil {
		return a.Module.Close()
	}
	return nil
}
