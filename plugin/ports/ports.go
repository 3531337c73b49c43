// Package ports defines the interfaces between plugin management and its
// infrastructure adapters.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/smarttavern/tavern-host-sdk/plugin/dto"
	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

// PluginRepository is the local cache of fetched plugins.
type PluginRepository interface {
	// Find retrieves a cached plugin and the path to its module file.
	Find(ctx context.Context, ref values.SourceRef) (*entities.Plugin, string, error)

	// Store persists a plugin with its module bytes and returns the path
	// to the stored module file.
	Store(ctx context.Context, plugin *entities.Plugin, module io.Reader) (string, error)

	// List returns all cached plugins.
	List(ctx context.Context) ([]*entities.Plugin, error)

	// Delete removes a plugin from the cache.
	Delete(ctx context.Context, ref values.SourceRef) error
}

// PluginRegistry provides access to remote OCI registries.
type PluginRegistry interface {
	// Pull downloads a plugin artifact.
	Pull(ctx context.Context, ref values.SourceRef) (*dto.Artifact, error)

	// Tags lists the version tags available for the reference.
	Tags(ctx context.Context, ref values.SourceRef) ([]string, error)

	// ResolveDigest resolves a tag to its module content digest.
	ResolveDigest(ctx context.Context, ref values.SourceRef) (values.Digest, error)
}

// AuthProvider retrieves registry credentials.
type AuthProvider interface {
	// GetCredentials returns (username, password, error).
	GetCredentials(ctx context.Context, registry string) (string, string, error)
}

// VersionResolver converts version constraints to exact versions.
type VersionResolver interface {
	Resolve(constraint string, available []string) (string, error)
}

// LockfileRepository manages lockfile persistence.
type LockfileRepository interface {
	Load(ctx context.Context, path string) (*entities.Lockfile, error)
	Save(ctx context.Context, lockfile *entities.Lockfile, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}

// SignatureVerifier verifies cryptographic signatures on plugin artifacts.
type SignatureVerifier interface {
	VerifySignature(ctx context.Context, ref values.SourceRef) (*SignatureResult, error)
}

// SignatureResult contains signature verification details.
type SignatureResult struct {
	SignedAt        time.Time
	Signer          string
	TransparencyLog string
	Certificate     []byte
	Verified        bool
}
