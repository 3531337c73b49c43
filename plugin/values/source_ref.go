package values

import (
	"fmt"
	"strings"
)

// SourceKind classifies where a plugin is fetched from.
type SourceKind int

const (
	// SourceLocal is a filesystem path, either a plugin directory or a
	// .wasm file.
	SourceLocal SourceKind = iota
	// SourceOCI is a versioned artifact in an OCI registry.
	SourceOCI
)

// SourceRef identifies a plugin source. Local refs carry only a path; OCI
// refs carry registry/org/repo/name and a version tag.
type SourceRef struct {
	kind     SourceKind
	path     string
	registry string
	org      string
	repo     string
	name     string
	version  string
}

// NewOCIRef creates an OCI reference from components.
func NewOCIRef(registry, org, repo, name, version string) SourceRef {
	return SourceRef{
		kind:     SourceOCI,
		registry: registry,
		org:      org,
		repo:     repo,
		name:     name,
		version:  version,
	}
}

// NewLocalRef creates a local filesystem reference.
func NewLocalRef(path string) SourceRef {
	return SourceRef{kind: SourceLocal, path: path, name: localName(path)}
}

func localName(path string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(path, "/"), ".wasm")
	if idx := strings.LastIndex(trimmed, "/"); idx != -1 {
		trimmed = trimmed[idx+1:]
	}
	return trimmed
}

// ParseSourceRef classifies and parses a source location string.
//
// Local: anything path-like ("./plugins/dice", "/opt/plugins/dice.wasm",
// "plugins/dice") or a bare name.
// OCI: a registry-qualified reference with a version tag, e.g.
// "ghcr.io/smarttavern/tavern-plugins/dice:1.2.0". The first path segment
// must look like a hostname.
func ParseSourceRef(ref string) (SourceRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return SourceRef{}, fmt.Errorf("empty plugin source")
	}

	if strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") {
		return NewLocalRef(ref), nil
	}

	parts := strings.Split(ref, "/")
	if len(parts) < 2 || !looksLikeHost(parts[0]) {
		return NewLocalRef(ref), nil
	}

	if len(parts) < 4 {
		return SourceRef{}, fmt.Errorf("invalid OCI reference %q: want registry/org/repo/name:version", ref)
	}

	name, version, ok := strings.Cut(parts[len(parts)-1], ":")
	if !ok || version == "" {
		return SourceRef{}, fmt.Errorf("OCI reference %q is missing a version tag", ref)
	}

	return SourceRef{
		kind:     SourceOCI,
		registry: parts[0],
		org:      parts[1],
		repo:     strings.Join(parts[2:len(parts)-1], "/"),
		name:     name,
		version:  version,
	}, nil
}

func looksLikeHost(s string) bool {
	return strings.Contains(s, ".") || strings.Contains(s, ":") || s == "localhost"
}

// String returns the canonical form: the path for local refs, the full
// registry reference for OCI refs.
func (r SourceRef) String() string {
	if r.kind == SourceLocal {
		return r.path
	}
	return fmt.Sprintf("%s/%s/%s/%s:%s", r.registry, r.org, r.repo, r.name, r.version)
}

// Repository returns the OCI repository part without the version tag.
func (r SourceRef) Repository() string {
	return fmt.Sprintf("%s/%s/%s/%s", r.registry, r.org, r.repo, r.name)
}

// IsLocal reports whether the ref points at the filesystem.
func (r SourceRef) IsLocal() bool { return r.kind == SourceLocal }

// Path returns the filesystem path for local refs.
func (r SourceRef) Path() string { return r.path }

// Name returns the plugin name.
func (r SourceRef) Name() string { return r.name }

// Version returns the version tag.
func (r SourceRef) Version() string { return r.version }

// Registry returns the registry hostname.
func (r SourceRef) Registry() string { return r.registry }

// WithVersion returns a copy pinned to an exact version. Used after a
// constraint like "^1.0" resolves to a concrete tag.
func (r SourceRef) WithVersion(version string) SourceRef {
	r.version = version
	return r
}

// Equals compares two refs.
func (r SourceRef) Equals(other SourceRef) bool {
	return r == other
}
