package plugin

import (
	"context"
	"io"
	"log/slog"

	"github.com/smarttavern/tavern-host-sdk/plugin/dto"
	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/ports"
	"github.com/smarttavern/tavern-host-sdk/plugin/services"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
)

// MockResolver implements services.ResolutionStrategy for testing
type MockResolver struct {
	services.BaseResolver
	FoundPlugin *entities.Plugin
	Err         error
	Called      bool
}

func (m *MockResolver) Resolve(ctx context.Context, ref values.SourceRef) (*entities.Plugin, error) {
	m.Called = true
	if m.Err != nil {
		return nil, m.Err
	}
	if m.FoundPlugin != nil {
		return m.FoundPlugin, nil
	}
	return m.ResolveNext(ctx, ref)
}

// MockRepository implements ports.PluginRepository
type MockRepository struct {
	FindPlugin *entities.Plugin
	FindPath   string
	FindErr    error

	StorePath   string
	StoreErr    error
	StoredWASM  []byte
	StoreCalled bool

	ListPlugins []*entities.Plugin
	ListErr     error
}

func (m *MockRepository) Find(ctx context.Context, ref values.SourceRef) (*entities.Plugin, string, error) {
	if m.FindErr != nil {
		return nil, "", m.FindErr
	}
	return m.FindPlugin, m.FindPath, nil
}

func (m *MockRepository) Store(ctx context.Context, plugin *entities.Plugin, module io.Reader) (string, error) {
	m.StoreCalled = true
	if m.StoreErr != nil {
		return "", m.StoreErr
	}
	m.StoredWASM, _ = io.ReadAll(module)
	return m.StorePath, nil
}

func (m *MockRepository) List(ctx context.Context) ([]*entities.Plugin, error) {
	return m.ListPlugins, m.ListErr
}

func (m *MockRepository) Delete(ctx context.Context, ref values.SourceRef) error {
	return nil
}

// MockRegistry implements ports.PluginRegistry
type MockRegistry struct {
	PullArtifact *dto.Artifact
	PullErr      error

	TagList []string
	TagsErr error

	Digest    values.Digest
	DigestErr error
}

func (m *MockRegistry) Pull(ctx context.Context, ref values.SourceRef) (*dto.Artifact, error) {
	if m.PullErr != nil {
		return nil, m.PullErr
	}
	return m.PullArtifact, nil
}

func (m *MockRegistry) Tags(ctx context.Context, ref values.SourceRef) ([]string, error) {
	return m.TagList, m.TagsErr
}

func (m *MockRegistry) ResolveDigest(ctx context.Context, ref values.SourceRef) (values.Digest, error) {
	if m.DigestErr != nil {
		return values.Digest{}, m.DigestErr
	}
	if !m.Digest.IsZero() {
		return m.Digest, nil
	}
	d, _ := values.NewDigest("sha256", "ab12")
	return d, nil
}

// MockVerifier implements ports.SignatureVerifier
type MockVerifier struct {
	VerifyResult *ports.SignatureResult
	VerifyErr    error
}

func (m *MockVerifier) VerifySignature(ctx context.Context, ref values.SourceRef) (*ports.SignatureResult, error) {
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	if m.VerifyResult == nil {
		return &ports.SignatureResult{
			Verified: true,
			Signer:   "tavern-ci",
		}, nil
	}
	return m.VerifyResult, nil
}

func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
