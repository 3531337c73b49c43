// Package values holds the value objects of the plugin distribution model:
// validated names, content digests, and source references.
package values

import (
	"fmt"
	"regexp"
	"strings"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// PluginName is a validated plugin identifier: alphanumeric with
// underscores and hyphens, at most 64 characters, never a path.
type PluginName struct {
	value string
}

// NewPluginName validates and wraps a plugin name.
func NewPluginName(name string) (PluginName, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PluginName{}, fmt.Errorf("plugin name cannot be empty")
	}
	if len(name) > 64 {
		return PluginName{}, fmt.Errorf("plugin name too long (max 64 chars)")
	}
	if !namePattern.MatchString(name) {
		return PluginName{}, fmt.Errorf("invalid plugin name %q: must contain only alphanumeric characters, underscores, and hyphens", name)
	}
	return PluginName{value: name}, nil
}

// MustNewPluginName wraps a name or panics. For constants and tests.
func MustNewPluginName(name string) PluginName {
	pn, err := NewPluginName(name)
	if err != nil {
		panic(err)
	}
	return pn
}

// String returns the name.
func (p PluginName) String() string { return p.value }

// IsEmpty reports whether this is the zero value.
func (p PluginName) IsEmpty() bool { return p.value == "" }

// Equals compares two names.
func (p PluginName) Equals(other PluginName) bool { return p.value == other.value }

// MarshalText implements encoding.TextMarshaler so names serialize as plain
// strings in both JSON and YAML.
func (p PluginName) MarshalText() ([]byte, error) {
	return []byte(p.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler with validation.
func (p *PluginName) UnmarshalText(data []byte) error {
	name, err := NewPluginName(string(data))
	if err != nil {
		return err
	}
	*p = name
	return nil
}
