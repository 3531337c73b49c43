package plugin_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttavern/tavern-host-sdk/plugin"
	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/services"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
	"github.com/smarttavern/tavern-host-sdk/validation"
)

func requireSigning(t *testing.T) *services.IntegrityService {
	t.Helper()
	return services.NewIntegrityService(true)
}

type hostSurface []string

func (s hostSurface) Names() []string { return s }

func cachedPlugin(t *testing.T, module []byte, caps ...string) *entities.Plugin {
	t.Helper()

	ref := values.NewOCIRef("ghcr.io", "smarttavern", "tavern-plugins", "dice", "1.0.0")
	digest, err := values.ComputeDigestSHA256(bytes.NewReader(module))
	require.NoError(t, err)

	return entities.NewPlugin(ref, digest, entities.Manifest{
		Name:         values.MustNewPluginName("dice"),
		Version:      "1.0.0",
		Capabilities: caps,
	})
}

func writeModule(t *testing.T, dir string, module []byte) string {
	t.Helper()
	path := filepath.Join(dir, "plugin.wasm")
	require.NoError(t, os.WriteFile(path, module, 0o600))
	return path
}

func Test_Service_Resolve(t *testing.T) {
	ctx := context.Background()
	module := []byte("\x00asm dice module")

	t.Run("local wasm file is read directly", func(t *testing.T) {
		path := writeModule(t, t.TempDir(), module)

		svc := plugin.NewService(&plugin.MockRepository{}, nil, plugin.WithLogger(plugin.NewTestLogger()))

		got, err := svc.Resolve(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, module, got)
	})

	t.Run("local directory loads manifest and entry module", func(t *testing.T) {
		dir := t.TempDir()
		writeModule(t, dir, module)
		manifest := "name: dice\nversion: 1.0.0\ncapabilities:\n  - getChar\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o600))

		svc := plugin.NewService(&plugin.MockRepository{}, nil, plugin.WithLogger(plugin.NewTestLogger()))

		got, err := svc.Resolve(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, module, got)
	})

	t.Run("local directory without manifest fails", func(t *testing.T) {
		dir := t.TempDir()
		writeModule(t, dir, module)

		svc := plugin.NewService(&plugin.MockRepository{}, nil, plugin.WithLogger(plugin.NewTestLogger()))

		_, err := svc.Resolve(ctx, dir)
		assert.ErrorIs(t, err, entities.ErrManifestInvalid)
	})

	t.Run("manifest validation gates local loads", func(t *testing.T) {
		dir := t.TempDir()
		writeModule(t, dir, module)
		manifest := "name: dice\nversion: 1.0.0\ncapabilities:\n  - launchMissiles\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o600))

		validator, err := validation.NewManifestValidator(hostSurface{"getChar"})
		require.NoError(t, err)

		svc := plugin.NewService(&plugin.MockRepository{}, nil,
			plugin.WithValidator(validator),
			plugin.WithLogger(plugin.NewTestLogger()))

		_, err = svc.Resolve(ctx, dir)
		require.ErrorIs(t, err, entities.ErrManifestInvalid)
		assert.Contains(t, err.Error(), "launchMissiles")
	})

	t.Run("registry reference goes through the chain and cache", func(t *testing.T) {
		wasmPath := writeModule(t, t.TempDir(), module)
		cached := cachedPlugin(t, module, "getChar")

		resolver := &plugin.MockResolver{FoundPlugin: cached}
		repo := &plugin.MockRepository{FindPlugin: cached, FindPath: wasmPath}

		svc := plugin.NewService(repo, resolver, plugin.WithLogger(plugin.NewTestLogger()))

		got, err := svc.Resolve(ctx, "ghcr.io/smarttavern/tavern-plugins/dice:1.0.0")
		require.NoError(t, err)
		assert.Equal(t, module, got)
		assert.True(t, resolver.Called)
	})

	t.Run("pinned digest mismatch fails the load", func(t *testing.T) {
		wasmPath := writeModule(t, t.TempDir(), module)
		cached := cachedPlugin(t, module, "getChar")

		svc := plugin.NewService(
			&plugin.MockRepository{FindPlugin: cached, FindPath: wasmPath},
			&plugin.MockResolver{FoundPlugin: cached},
			plugin.WithLogger(plugin.NewTestLogger()))

		source := "ghcr.io/smarttavern/tavern-plugins/dice:1.0.0"
		other, err := values.ComputeDigestSHA256(bytes.NewReader([]byte("different bytes")))
		require.NoError(t, err)
		svc.Pin(source, other)

		_, err = svc.Resolve(ctx, source)
		assert.Error(t, err)
	})

	t.Run("pinned digest match passes", func(t *testing.T) {
		wasmPath := writeModule(t, t.TempDir(), module)
		cached := cachedPlugin(t, module, "getChar")

		svc := plugin.NewService(
			&plugin.MockRepository{FindPlugin: cached, FindPath: wasmPath},
			&plugin.MockResolver{FoundPlugin: cached},
			plugin.WithLogger(plugin.NewTestLogger()))

		source := "ghcr.io/smarttavern/tavern-plugins/dice:1.0.0"
		svc.Pin(source, cached.Digest())

		got, err := svc.Resolve(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, module, got)
	})

	t.Run("unresolvable reference surfaces not found", func(t *testing.T) {
		svc := plugin.NewService(
			&plugin.MockRepository{},
			&plugin.MockResolver{},
			plugin.WithLogger(plugin.NewTestLogger()))

		_, err := svc.Resolve(ctx, "ghcr.io/smarttavern/tavern-plugins/ghost:9.9.9")
		assert.ErrorIs(t, err, entities.ErrPluginNotFound)
	})
}

func Test_Service_Fetch_SignatureVerification(t *testing.T) {
	ctx := context.Background()
	module := []byte("\x00asm dice module")
	ref := values.NewOCIRef("ghcr.io", "smarttavern", "tavern-plugins", "dice", "1.0.0")

	t.Run("verifier errors abort the fetch when signing is required", func(t *testing.T) {
		cached := cachedPlugin(t, module, "getChar")
		svc := plugin.NewService(
			&plugin.MockRepository{FindPlugin: cached, FindPath: "unused"},
			&plugin.MockResolver{FoundPlugin: cached},
			plugin.WithIntegrityService(requireSigning(t)),
			plugin.WithSignatureVerifier(&plugin.MockVerifier{VerifyErr: assert.AnError}),
			plugin.WithLogger(plugin.NewTestLogger()))

		_, _, err := svc.Fetch(ctx, ref)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signature verification failed")
	})

	t.Run("required signing without a verifier fails", func(t *testing.T) {
		cached := cachedPlugin(t, module, "getChar")
		svc := plugin.NewService(
			&plugin.MockRepository{FindPlugin: cached, FindPath: "unused"},
			&plugin.MockResolver{FoundPlugin: cached},
			plugin.WithIntegrityService(requireSigning(t)),
			plugin.WithLogger(plugin.NewTestLogger()))

		_, _, err := svc.Fetch(ctx, ref)
		assert.Error(t, err)
	})
}
