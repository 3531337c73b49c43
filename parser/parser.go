// Package parser parses plugin manifests from their on-disk formats.
package parser

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
)

// ManifestParser parses raw manifest bytes into a Manifest.
type ManifestParser interface {
	Parse(data []byte) (*entities.Manifest, error)
}

// JSONManifestParser parses JSON manifests.
type JSONManifestParser struct{}

// NewJSONManifestParser creates a JSON manifest parser.
func NewJSONManifestParser() ManifestParser {
	return &JSONManifestParser{}
}

// Parse unmarshals JSON manifest bytes.
func (p *JSONManifestParser) Parse(data []byte) (*entities.Manifest, error) {
	var manifest entities.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse JSON manifest: %w", err)
	}
	return &manifest, nil
}

// YAMLManifestParser parses YAML manifests.
type YAMLManifestParser struct{}

// NewYAMLManifestParser creates a YAML manifest parser.
func NewYAMLManifestParser() ManifestParser {
	return &YAMLManifestParser{}
}

// Parse unmarshals YAML manifest bytes.
func (p *YAMLManifestParser) Parse(data []byte) (*entities.Manifest, error) {
	var manifest entities.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse YAML manifest: %w", err)
	}
	return &manifest, nil
}

// ForFile picks a parser by file extension. YAML is the default.
func ForFile(path string) ManifestParser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONManifestParser()
	default:
		return NewYAMLManifestParser()
	}
}
