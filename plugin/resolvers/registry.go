package resolvers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/ports"
	"github.com/smarttavern/tavern-host-sdk/plugin/services"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

// RegistryResolver pulls plugins from an OCI registry and caches them in
// the repository.
type RegistryResolver struct {
	services.BaseResolver
	registry   ports.PluginRegistry
	repository ports.PluginRepository
	logger     *slog.Logger
}

// NewRegistryResolver creates a registry-backed resolver.
func NewRegistryResolver(registry ports.PluginRegistry, repository ports.PluginRepository, logger *slog.Logger) *RegistryResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistryResolver{registry: registry, repository: repository, logger: logger}
}

// Resolve pulls from the registry and stores the module in the cache.
func (r *RegistryResolver) Resolve(ctx context.Context, ref values.SourceRef) (*entities.Plugin, error) {
	r.logger.Info("pulling plugin from registry", "ref", ref.String())

	artifact, err := r.registry.Pull(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("registry pull failed: %w", err)
	}
	defer func() {
		if cerr := artifact.Close(); cerr != nil {
			r.logger.Warn("failed to close artifact", "ref", ref.String(), "error", cerr)
		}
	}()

	if _, err := r.repository.Store(ctx, artifact.Plugin, artifact.Module); err != nil {
		return nil, fmt.Errorf("cache storage failed: %w", err)
	}

	r.logger.Info("plugin cached", "ref", ref.String())
	return artifact.Plugin, nil
}
