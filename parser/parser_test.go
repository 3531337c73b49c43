package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttavern/tavern-host-sdk/parser"
)

func Test_YAMLManifestParser(t *testing.T) {
	t.Run("parses a full manifest", func(t *testing.T) {
		data := []byte(`
name: dice
version: 1.2.0
description: Dice rolling commands
entry: dist/dice.wasm
capabilities:
  - getChatSettings
  - showToast.*
events:
  - plugin:loaded
`)

		manifest, err := parser.NewYAMLManifestParser().Parse(data)

		require.NoError(t, err)
		assert.Equal(t, "dice", manifest.Name.String())
		assert.Equal(t, "1.2.0", manifest.Version)
		assert.Equal(t, "dist/dice.wasm", manifest.EntryFile())
		assert.Equal(t, []string{"getChatSettings", "showToast.*"}, manifest.Capabilities)
		assert.NoError(t, manifest.Validate())
	})

	t.Run("rejects an invalid name during decode", func(t *testing.T) {
		_, err := parser.NewYAMLManifestParser().Parse([]byte("name: ../evil\nversion: 1.0.0\n"))
		assert.Error(t, err)
	})

	t.Run("rejects malformed YAML", func(t *testing.T) {
		_, err := parser.NewYAMLManifestParser().Parse([]byte("{{nope"))
		assert.Error(t, err)
	})
}

func Test_JSONManifestParser(t *testing.T) {
	t.Run("parses a manifest", func(t *testing.T) {
		data := []byte(`{"name":"dice","version":"1.2.0","capabilities":["getChar"]}`)

		manifest, err := parser.NewJSONManifestParser().Parse(data)

		require.NoError(t, err)
		assert.Equal(t, "dice", manifest.Name.String())
		assert.Equal(t, "plugin.wasm", manifest.EntryFile())
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		_, err := parser.NewJSONManifestParser().Parse([]byte(`{"name":`))
		assert.Error(t, err)
	})
}

func Test_ForFile(t *testing.T) {
	assert.IsType(t, parser.NewJSONManifestParser(), parser.ForFile("manifest.json"))
	assert.IsType(t, parser.NewYAMLManifestParser(), parser.ForFile("manifest.yaml"))
	assert.IsType(t, parser.NewYAMLManifestParser(), parser.ForFile("manifest"))
}
