// Package repository implements plugin repository adapters.
package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

const (
	moduleFileName   = "plugin.wasm"
	manifestFileName = "manifest.yaml"
	digestFileName   = "digest.txt"
)

// FSPluginRepository caches pulled plugins on the local filesystem.
//
// Layout: <root>/<registry>/<org>/<repo>/<name>/<version>/ holding the WASM
// module, its manifest, and the content digest recorded at store time.
type FSPluginRepository struct {
	root string // ~/.smarttavern/plugins
}

// NewFSPluginRepository creates a filesystem-based repository. An empty root
// defaults to ~/.smarttavern/plugins.
func NewFSPluginRepository(root string) (*FSPluginRepository, error) {
	if root == "" {
		home, _ := os.UserHomeDir()
		root = filepath.Join(home, ".smarttavern", "plugins")
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	return &FSPluginRepository{root: root}, nil
}

// Find retrieves a cached plugin and the path of its WASM module.
func (r *FSPluginRepository) Find(ctx context.Context, ref values.SourceRef) (*entities.Plugin, string, error) {
	path, err := r.pluginPath(ref)
	if err != nil {
		return nil, "", err
	}

	wasmPath := filepath.Join(path, moduleFileName)
	if _, err := os.Stat(wasmPath); err != nil {
		return nil, "", &entities.PluginNotFoundError{Ref: ref}
	}

	manifest, err := r.loadManifest(path)
	if err != nil {
		return nil, "", err
	}

	digest, err := r.loadDigest(path)
	if err != nil {
		return nil, "", err
	}

	return entities.NewPlugin(ref, digest, *manifest), wasmPath, nil
}

// Store persists a plugin and its WASM module, returning the module path.
func (r *FSPluginRepository) Store(ctx context.Context, plugin *entities.Plugin, module io.Reader) (string, error) {
	path, err := r.pluginPath(plugin.Ref())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(path, 0o750); err != nil {
		return "", err
	}

	wasmPath := filepath.Join(path, moduleFileName)
	wasmFile, err := os.Create(filepath.Clean(wasmPath))
	if err != nil {
		return "", err
	}
	defer func() { _ = wasmFile.Close() }()

	if _, err := io.Copy(wasmFile, module); err != nil {
		return "", fmt.Errorf("write wasm: %w", err)
	}

	manifest := plugin.Manifest()
	if err := r.saveManifest(path, &manifest); err != nil {
		return "", err
	}

	if err := r.saveDigest(path, plugin.Digest()); err != nil {
		return "", err
	}

	return wasmPath, nil
}

// List returns all cached plugins. Entries whose layout cannot be mapped
// back to a source reference are skipped.
func (r *FSPluginRepository) List(ctx context.Context) ([]*entities.Plugin, error) {
	var plugins []*entities.Plugin

	err := filepath.Walk(r.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.Name() == moduleFileName {
			ref, err := r.refFromPath(filepath.Dir(path))
			if err != nil {
				return nil //nolint:nilerr // Skip invalid entries
			}

			plugin, _, err := r.Find(ctx, ref)
			if err == nil {
				plugins = append(plugins, plugin)
			}
		}

		return nil
	})

	return plugins, err
}

// Delete removes a cached plugin version.
func (r *FSPluginRepository) Delete(ctx context.Context, ref values.SourceRef) error {
	path, err := r.pluginPath(ref)
	if err != nil {
		return err
	}
	return os.RemoveAll(path)
}

func (r *FSPluginRepository) pluginPath(ref values.SourceRef) (string, error) {
	if ref.IsLocal() {
		return "", fmt.Errorf("local plugin %q is not cached", ref.String())
	}

	relPath := filepath.Join(filepath.FromSlash(ref.Repository()), ref.Version())

	// Reject absolute paths before filepath.Join, which may ignore root on Unix.
	if filepath.IsAbs(relPath) {
		return "", fmt.Errorf("security violation: absolute paths not allowed in plugin reference %q", ref.String())
	}

	fullPath := filepath.Join(r.root, relPath)

	cleanRoot := filepath.Clean(r.root)
	cleanPath := filepath.Clean(fullPath)

	// A reference containing ".." segments must not escape the cache root.
	if !strings.HasPrefix(cleanPath, cleanRoot+string(os.PathSeparator)) && cleanPath != cleanRoot {
		return "", fmt.Errorf("security violation: path traversal detected for plugin reference %q", ref.String())
	}

	return cleanPath, nil
}

func (r *FSPluginRepository) refFromPath(path string) (values.SourceRef, error) {
	relPath, err := filepath.Rel(r.root, path)
	if err != nil {
		return values.SourceRef{}, err
	}

	// The last segment is the version, everything before it the repository.
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) < 5 {
		return values.SourceRef{}, fmt.Errorf("unexpected cache layout %q", relPath)
	}

	version := parts[len(parts)-1]
	return values.ParseSourceRef(strings.Join(parts[:len(parts)-1], "/") + ":" + version)
}

func (r *FSPluginRepository) loadManifest(path string) (*entities.Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(filepath.Join(path, manifestFileName)))
	if err != nil {
		return nil, err
	}

	var manifest entities.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode cached manifest: %w", err)
	}
	return &manifest, nil
}

func (r *FSPluginRepository) saveManifest(path string, manifest *entities.Manifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(path, manifestFileName), data, 0o600)
}

func (r *FSPluginRepository) loadDigest(path string) (values.Digest, error) {
	data, err := os.ReadFile(filepath.Clean(filepath.Join(path, digestFileName)))
	if err != nil {
		return values.Digest{}, err
	}
	return values.ParseDigest(strings.TrimSpace(string(data)))
}

func (r *FSPluginRepository) saveDigest(path string, digest values.Digest) error {
	return os.WriteFile(filepath.Join(path, digestFileName), []byte(digest.String()), 0o600)
}
