// Package resolvers implements the plugin resolution chain and version
// constraint resolution.
package resolvers

import (
	"context"

	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/ports"
	"github.com/smarttavern/tavern-host-sdk/plugin/services"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

// CachedResolver serves plugins from the local repository and delegates
// misses down the chain.
type CachedResolver struct {
	services.BaseResolver
	repository ports.PluginRepository
}

// NewCachedResolver creates a cache-first resolver.
func NewCachedResolver(repository ports.PluginRepository) *CachedResolver {
	return &CachedResolver{repository: repository}
}

// Resolve checks the cache, otherwise delegates.
func (r *CachedResolver) Resolve(ctx context.Context, ref values.SourceRef) (*entities.Plugin, error) {
	plugin, _, err := r.repository.Find(ctx, ref)
	if err == nil {
		return plugin, nil
	}
	return r.ResolveNext(ctx, ref)
}
