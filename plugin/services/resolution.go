// Package services holds the domain services of plugin management.
package services

import (
	"context"

	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

// ResolutionStrategy locates a plugin for a reference. Strategies form a
// chain: each tries its own source and delegates misses to the next.
type ResolutionStrategy interface {
	Resolve(ctx context.Context, ref values.SourceRef) (*entities.Plugin, error)
	SetNext(next ResolutionStrategy)
}

// BaseResolver provides the chain plumbing strategies embed.
type BaseResolver struct {
	next ResolutionStrategy
}

// SetNext sets the next strategy in the chain.
func (b *BaseResolver) SetNext(next ResolutionStrategy) {
	b.next = next
}

// ResolveNext delegates to the next strategy; the end of the chain is a
// not-found error.
func (b *BaseResolver) ResolveNext(ctx context.Context, ref values.SourceRef) (*entities.Plugin, error) {
	if b.next == nil {
		return nil, &entities.PluginNotFoundError{Ref: ref}
	}
	return b.next.Resolve(ctx, ref)
}
