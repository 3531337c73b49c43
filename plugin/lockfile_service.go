package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/ports"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

// LockfileService resolves plugin version constraints against the registry
// and pins the results, so later loads fetch exactly the bytes that were
// resolved the first time.
type LockfileService struct {
	repo     ports.LockfileRepository
	resolver ports.VersionResolver
	registry ports.PluginRegistry
}

// NewLockfileService creates a new LockfileService.
func NewLockfileService(
	repo ports.LockfileRepository,
	resolver ports.VersionResolver,
	registry ports.PluginRegistry,
) *LockfileService {
	return &LockfileService{
		repo:     repo,
		resolver: resolver,
		registry: registry,
	}
}

// ResolvePlugins resolves plugin declarations using the lockfile if
// available, resolving and pinning anything new or changed. Declarations
// are source references; the version part may be a constraint like "^1.0"
// or "latest". Local filesystem sources are not pinned.
func (s *LockfileService) ResolvePlugins(
	ctx context.Context,
	declarations []string,
	lockfilePath string,
) (*entities.Lockfile, error) {
	lock, err := s.repo.Load(ctx, lockfilePath)
	if err != nil {
		return nil, fmt.Errorf("loading lockfile: %w", err)
	}

	if lock == nil {
		lock = entities.NewLockfile()
	}

	updated := false
	for _, declaration := range declarations {
		ref, err := values.ParseSourceRef(declaration)
		if err != nil {
			return nil, fmt.Errorf("parsing plugin declaration %q: %w", declaration, err)
		}

		if ref.IsLocal() {
			continue
		}

		constraint := ref.Version()
		if constraint == "" {
			constraint = "latest"
		}

		if locked := lock.GetPlugin(ref.Name()); locked != nil && locked.Requested == constraint {
			continue
		}

		pinned, err := s.pin(ctx, ref, constraint)
		if err != nil {
			return nil, fmt.Errorf("resolving plugin %q: %w", declaration, err)
		}

		if err := lock.AddPlugin(ref.Name(), pinned); err != nil {
			return nil, err
		}
		updated = true
	}

	if updated {
		lock.Generated = time.Now().UTC()
		if err := s.repo.Save(ctx, lock, lockfilePath); err != nil {
			return nil, fmt.Errorf("saving lockfile: %w", err)
		}
	}

	return lock, nil
}

// ApplyPins feeds every locked digest into the service, so fetches of
// pinned sources are integrity-checked.
func (s *LockfileService) ApplyPins(lock *entities.Lockfile, service *Service) error {
	if lock == nil {
		return nil
	}
	for name, entry := range lock.Plugins {
		digest, err := values.ParseDigest(entry.Digest)
		if err != nil {
			return fmt.Errorf("plugin %q: %w", name, err)
		}
		service.Pin(entry.Source, digest)
	}
	return nil
}

func (s *LockfileService) pin(ctx context.Context, ref values.SourceRef, constraint string) (entities.PluginLock, error) {
	tags, err := s.registry.Tags(ctx, ref)
	if err != nil {
		return entities.PluginLock{}, fmt.Errorf("listing tags: %w", err)
	}

	version, err := s.resolver.Resolve(constraint, tags)
	if err != nil {
		return entities.PluginLock{}, err
	}

	pinnedRef := ref.WithVersion(version)
	digest, err := s.registry.ResolveDigest(ctx, pinnedRef)
	if err != nil {
		return entities.PluginLock{}, fmt.Errorf("resolving digest: %w", err)
	}

	return entities.PluginLock{
		Requested: constraint,
		Resolved:  version,
		Source:    pinnedRef.String(),
		Digest:    digest.String(),
		Fetched:   time.Now().UTC(),
	}, nil
}
