package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
	"github.com/smarttavern/tavern-host-sdk/plugin/values"
	"github.com/smarttavern/tavern-host-sdk/validation"
)

type staticNames []string

func (s staticNames) Names() []string { return s }

var hostSurface = staticNames{"getChar", "getChatSettings", "setVariable", "showToast.success", "showToast.error"}

func newValidator(t *testing.T) *validation.ManifestValidator {
	t.Helper()
	v, err := validation.NewManifestValidator(hostSurface)
	require.NoError(t, err)
	return v
}

func Test_ManifestValidator_Validate(t *testing.T) {
	manifest := func(caps ...string) *entities.Manifest {
		return &entities.Manifest{
			Name:         values.MustNewPluginName("dice"),
			Version:      "1.0.0",
			Capabilities: caps,
		}
	}

	t.Run("known capabilities pass", func(t *testing.T) {
		result, err := newValidator(t).Validate(manifest("getChar", "showToast.*"))

		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("unknown capability fails with its name", func(t *testing.T) {
		result, err := newValidator(t).Validate(manifest("launchMissiles"))

		require.NoError(t, err)
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "launchMissiles")
	})

	t.Run("glob covering nothing fails", func(t *testing.T) {
		result, err := newValidator(t).Validate(manifest("fs.*"))

		require.NoError(t, err)
		assert.False(t, result.Valid)
	})

	t.Run("entity invariant failures are reported", func(t *testing.T) {
		m := manifest()
		m.Version = "not-a-version"

		result, err := newValidator(t).Validate(m)

		require.NoError(t, err)
		assert.False(t, result.Valid)
	})

	t.Run("nil namer skips the capability cross-check", func(t *testing.T) {
		v, err := validation.NewManifestValidator(nil)
		require.NoError(t, err)

		result, err := v.Validate(manifest("anythingGoes"))

		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("nil manifest is an error", func(t *testing.T) {
		_, err := newValidator(t).Validate(nil)
		assert.Error(t, err)
	})
}

func Test_ManifestValidator_ValidateBytes(t *testing.T) {
	t.Run("well-formed document passes", func(t *testing.T) {
		result, err := newValidator(t).ValidateBytes([]byte(`{"name":"dice","version":"1.0.0","capabilities":["getChar"]}`))

		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("missing required fields fail", func(t *testing.T) {
		result, err := newValidator(t).ValidateBytes([]byte(`{"name":"dice"}`))

		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Errors)
	})

	t.Run("unknown fields fail", func(t *testing.T) {
		result, err := newValidator(t).ValidateBytes([]byte(`{"name":"dice","version":"1.0.0","shell":"/bin/sh"}`))

		require.NoError(t, err)
		assert.False(t, result.Valid)
	})

	t.Run("non-JSON input is an error", func(t *testing.T) {
		_, err := newValidator(t).ValidateBytes([]byte("name: dice"))
		assert.Error(t, err)
	})
}
