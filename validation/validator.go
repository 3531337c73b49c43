// Package validation checks plugin manifests against the manifest schema
// and the host's known capability surface before a plugin is admitted.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
)

// manifestSchema is the structural contract for manifest documents.
// Semantic rules (name syntax, semver, entry confinement) live in
// entities.Manifest.Validate.
const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "version"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "author": {"type": "string"},
    "license": {"type": "string"},
    "entry": {"type": "string"},
    "capabilities": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "events": {"type": "array", "items": {"type": "string", "minLength": 1}}
  },
  "additionalProperties": false
}`

// CapabilityNamer lists the capability names the host exposes.
type CapabilityNamer interface {
	Names() []string
}

// Result is the outcome of manifest validation.
type Result struct {
	Valid  bool
	Errors []string
}

// ManifestValidator validates manifests structurally and against the host
// capability surface.
type ManifestValidator struct {
	schema *jsonschema.Schema
	namer  CapabilityNamer
}

// NewManifestValidator creates a validator. namer may be nil, in which case
// requested capabilities are not cross-checked against the host surface.
func NewManifestValidator(namer CapabilityNamer) (*ManifestValidator, error) {
	schema, err := jsonschema.CompileString("manifest.schema.json", manifestSchema)
	if err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}
	return &ManifestValidator{schema: schema, namer: namer}, nil
}

// ValidateBytes validates a raw JSON manifest document against the schema.
func (v *ManifestValidator) ValidateBytes(data []byte) (*Result, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("manifest is not valid JSON: %w", err)
	}

	result := &Result{Valid: true}
	if err := v.schema.Validate(doc); err != nil {
		result.Valid = false
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			for _, cause := range verr.BasicOutput().Errors {
				if cause.Error != "" {
					result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", cause.InstanceLocation, cause.Error))
				}
			}
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
	}
	return result, nil
}

// Validate checks a parsed manifest: entity invariants plus capability
// requests that name something the host actually exposes. A glob request
// is valid when it covers at least one known capability.
func (v *ManifestValidator) Validate(manifest *entities.Manifest) (*Result, error) {
	if manifest == nil {
		return nil, fmt.Errorf("manifest is nil")
	}

	result := &Result{Valid: true}
	if err := manifest.Validate(); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	if v.namer != nil {
		known := v.namer.Names()
		for _, requested := range manifest.Capabilities {
			if !coversAny(requested, known) {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("capability %q matches nothing the host exposes", requested))
			}
		}
	}
	return result, nil
}

// coversAny reports whether the requested glob pattern matches at least one
// known capability name.
func coversAny(pattern string, known []string) bool {
	for _, name := range known {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
