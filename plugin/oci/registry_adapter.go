// Package oci implements OCI registry adapters.
package oci

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"

	"github.com/smarttavern/tavern-host-sdk/plugin/dto"
	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/ports"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

// WASMLayerMediaType marks the module layer in a plugin artifact.
const WASMLayerMediaType = "application/vnd.smarttavern.plugin.wasm.v1"

// OCIRegistryAdapter implements ports.PluginRegistry using oras-go. Plugin
// artifacts carry the manifest as the config blob and the WASM module as a
// layer with WASMLayerMediaType.
type OCIRegistryAdapter struct {
	auth ports.AuthProvider
}

// NewOCIRegistryAdapter creates an OCI registry adapter.
func NewOCIRegistryAdapter(auth ports.AuthProvider) *OCIRegistryAdapter {
	return &OCIRegistryAdapter{
		auth: auth,
	}
}

// Pull downloads a plugin artifact from an OCI registry.
func (a *OCIRegistryAdapter) Pull(ctx context.Context, ref values.SourceRef) (*dto.Artifact, error) {
	repo, err := a.repository(ctx, ref)
	if err != nil {
		return nil, err
	}

	memoryStore := memory.New()
	manifestDesc, err := oras.Copy(ctx, repo, ref.Version(), memoryStore, ref.Version(), oras.CopyOptions{})
	if err != nil {
		return nil, fmt.Errorf("pull artifact: %w", err)
	}

	ociManifest, err := a.fetchOCIManifest(ctx, memoryStore, manifestDesc)
	if err != nil {
		return nil, err
	}

	configBytes, err := a.fetchBlob(ctx, memoryStore, ociManifest.Config)
	if err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}

	manifest, err := a.parsePluginManifest(configBytes)
	if err != nil {
		return nil, err
	}

	wasmDesc, err := a.findWASMLayer(ociManifest)
	if err != nil {
		return nil, err
	}

	wasmBytes, err := a.fetchBlob(ctx, memoryStore, wasmDesc)
	if err != nil {
		return nil, fmt.Errorf("fetch wasm: %w", err)
	}

	digest, err := values.ParseDigest(string(wasmDesc.Digest))
	if err != nil {
		return nil, fmt.Errorf("module layer digest: %w", err)
	}

	plugin := entities.NewPlugin(ref, digest, *manifest)
	return dto.NewArtifact(plugin, io.NopCloser(bytes.NewReader(wasmBytes))), nil
}

// Tags lists the version tags published for the reference.
func (a *OCIRegistryAdapter) Tags(ctx context.Context, ref values.SourceRef) ([]string, error) {
	repo, err := a.repository(ctx, ref)
	if err != nil {
		return nil, err
	}

	var tags []string
	err = repo.Tags(ctx, "", func(page []string) error {
		tags = append(tags, page...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	return tags, nil
}

// ResolveDigest resolves a version tag to the digest of its WASM module
// layer.
func (a *OCIRegistryAdapter) ResolveDigest(ctx context.Context, ref values.SourceRef) (values.Digest, error) {
	repo, err := a.repository(ctx, ref)
	if err != nil {
		return values.Digest{}, err
	}

	_, manifestRC, err := repo.FetchReference(ctx, ref.Version())
	if err != nil {
		return values.Digest{}, fmt.Errorf("resolve %s: %w", ref.String(), err)
	}
	defer func() { _ = manifestRC.Close() }()

	manifestBytes, err := io.ReadAll(manifestRC)
	if err != nil {
		return values.Digest{}, fmt.Errorf("read manifest: %w", err)
	}

	var ociManifest ocispec.Manifest
	if err := json.Unmarshal(manifestBytes, &ociManifest); err != nil {
		return values.Digest{}, fmt.Errorf("invalid manifest JSON: %w", err)
	}

	wasmDesc, err := a.findWASMLayer(&ociManifest)
	if err != nil {
		return values.Digest{}, err
	}

	return values.ParseDigest(string(wasmDesc.Digest))
}

func (a *OCIRegistryAdapter) repository(ctx context.Context, ref values.SourceRef) (*remote.Repository, error) {
	repo, err := remote.NewRepository(ref.Repository())
	if err != nil {
		return nil, fmt.Errorf("create repository: %w", err)
	}

	if a.auth != nil {
		username, password, err := a.auth.GetCredentials(ctx, ref.Registry())
		if err == nil && username != "" {
			repo.Client = &auth.Client{
				Credential: func(ctx context.Context, registry string) (auth.Credential, error) {
					return auth.Credential{
						Username: username,
						Password: password,
					}, nil
				},
			}
		}
	}

	return repo, nil
}

func (a *OCIRegistryAdapter) fetchOCIManifest(ctx context.Context, store *memory.Store, desc ocispec.Descriptor) (*ocispec.Manifest, error) {
	data, err := a.fetchBlob(ctx, store, desc)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest JSON: %w", err)
	}
	return &manifest, nil
}

func (a *OCIRegistryAdapter) fetchBlob(ctx context.Context, store *memory.Store, desc ocispec.Descriptor) ([]byte, error) {
	rc, err := store.Fetch(ctx, desc)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

func (a *OCIRegistryAdapter) parsePluginManifest(data []byte) (*entities.Manifest, error) {
	var manifest entities.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid config JSON: %w", err)
	}
	return &manifest, nil
}

func (a *OCIRegistryAdapter) findWASMLayer(manifest *ocispec.Manifest) (ocispec.Descriptor, error) {
	for _, layer := range manifest.Layers {
		if layer.MediaType == WASMLayerMediaType {
			return layer, nil
		}
	}
	return ocispec.Descriptor{}, fmt.Errorf("no WASM layer found")
}
