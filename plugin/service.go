// Package plugin orchestrates plugin distribution: resolving source
// references, verifying integrity, and handing module bytes to the loader.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/smarttavern/tavern-host-sdk/parser"
	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/ports"
	"github.com/smarttavern/tavern-host-sdk/plugin/services"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
	"github.com/smarttavern/tavern-host-sdk/validation"
)

// manifestFileNames are tried in order when a local plugin directory is
// loaded.
var manifestFileNames = []string{"manifest.yaml", "manifest.yml", "manifest.json"}

// Service coordinates plugin resolution and verification. It implements
// the loader's SourceResolver, so a configured Service is all the loader
// needs to turn a source location into module bytes.
type Service struct {
	resolver   services.ResolutionStrategy
	repository ports.PluginRepository
	verifier   ports.SignatureVerifier
	integrity  *services.IntegrityService
	validator  *validation.ManifestValidator
	pins       map[string]values.Digest
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// NewService creates a plugin service. The repository is the local cache;
// the resolver chain decides where misses are fetched from.
func NewService(repository ports.PluginRepository, resolver services.ResolutionStrategy, opts ...ServiceOption) *Service {
	s := &Service{
		resolver:   resolver,
		repository: repository,
		integrity:  services.NewIntegrityService(false),
		pins:       make(map[string]values.Digest),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithSignatureVerifier sets the signature verifier.
func WithSignatureVerifier(v ports.SignatureVerifier) ServiceOption {
	return func(s *Service) { s.verifier = v }
}

// WithIntegrityService sets the integrity policy.
func WithIntegrityService(is *services.IntegrityService) ServiceOption {
	return func(s *Service) { s.integrity = is }
}

// WithValidator sets a manifest validator applied to every loaded plugin.
func WithValidator(v *validation.ManifestValidator) ServiceOption {
	return func(s *Service) { s.validator = v }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// Pin records an expected module digest for a source reference, typically
// taken from a lockfile. A pinned fetch that produces different bytes fails.
func (s *Service) Pin(source string, digest values.Digest) {
	s.pins[source] = digest
}

// Resolve maps a plugin source location to its module bytes. Local paths
// are read directly; registry references go through the resolution chain
// and the local cache.
func (s *Service) Resolve(ctx context.Context, sourceLocation string) ([]byte, error) {
	ref, err := values.ParseSourceRef(sourceLocation)
	if err != nil {
		return nil, err
	}

	if ref.IsLocal() {
		return s.resolveLocal(ref)
	}

	plugin, wasmPath, err := s.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	wasmBytes, err := os.ReadFile(wasmPath) //nolint:gosec // Path comes from the cache, not the caller.
	if err != nil {
		return nil, fmt.Errorf("read plugin module: %w", err)
	}

	if pin, ok := s.pins[sourceLocation]; ok && !pin.IsZero() {
		if err := pin.Verify(wasmBytes); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", entities.ErrIntegrityCheckFailed, ref.String(), err)
		}
	}

	manifest := plugin.Manifest()
	if err := s.validate(&manifest); err != nil {
		return nil, err
	}

	return wasmBytes, nil
}

// Fetch resolves a registry reference through the chain and returns the
// cached plugin together with its module path.
func (s *Service) Fetch(ctx context.Context, ref values.SourceRef) (*entities.Plugin, string, error) {
	if s.resolver == nil {
		return nil, "", fmt.Errorf("no resolution strategy configured for %s", ref.String())
	}

	plugin, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, "", fmt.Errorf("plugin resolution failed: %w", err)
	}

	if pin, ok := s.pins[ref.String()]; ok && !pin.IsZero() {
		if err := s.integrity.VerifyDigest(plugin, pin); err != nil {
			return nil, "", fmt.Errorf("integrity verification failed: %w", err)
		}
	}

	if s.integrity.ShouldVerifySignature() {
		if s.verifier == nil {
			return nil, "", fmt.Errorf("signing required but no verifier configured")
		}
		result, err := s.verifier.VerifySignature(ctx, ref)
		if err != nil {
			return nil, "", fmt.Errorf("signature verification failed: %w", err)
		}
		s.logger.Info("plugin signature verified",
			"plugin", ref.String(),
			"signer", result.Signer,
			"signed_at", result.SignedAt)
	}

	_, wasmPath, err := s.repository.Find(ctx, ref)
	if err != nil {
		return nil, "", fmt.Errorf("failed to locate plugin module: %w", err)
	}

	return plugin, wasmPath, nil
}

// ListCached returns all plugins in the local cache.
func (s *Service) ListCached(ctx context.Context) ([]*entities.Plugin, error) {
	return s.repository.List(ctx)
}

// resolveLocal reads a plugin straight off the filesystem. A .wasm path is
// the module itself; a directory holds a manifest and the module it names.
func (s *Service) resolveLocal(ref values.SourceRef) ([]byte, error) {
	path := ref.Path()

	if strings.HasSuffix(path, ".wasm") {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read plugin module: %w", err)
		}
		return data, nil
	}

	manifest, err := s.loadLocalManifest(path)
	if err != nil {
		return nil, err
	}

	if err := s.validate(manifest); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Clean(filepath.Join(path, manifest.EntryFile())))
	if err != nil {
		return nil, fmt.Errorf("read plugin module: %w", err)
	}
	return data, nil
}

func (s *Service) loadLocalManifest(dir string) (*entities.Manifest, error) {
	for _, name := range manifestFileNames {
		manifestPath := filepath.Join(dir, name)
		data, err := os.ReadFile(filepath.Clean(manifestPath))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read manifest: %w", err)
		}

		manifest, err := parser.ForFile(manifestPath).Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", entities.ErrManifestInvalid, manifestPath, err)
		}
		return manifest, nil
	}

	return nil, fmt.Errorf("%w: no manifest found in %s", entities.ErrManifestInvalid, dir)
}

func (s *Service) validate(manifest *entities.Manifest) error {
	if s.validator == nil || manifest == nil {
		return nil
	}

	result, err := s.validator.Validate(manifest)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("%w: %s", entities.ErrManifestInvalid, strings.Join(result.Errors, "; "))
	}
	return nil
}
